package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/target/mmk-sso/internal/domain/auth"
)

// ClaimPaths maps identity fields to JMESPath expressions evaluated over the
// token's claim set, for authorities that nest identity (for example
// `realm_access.roles[0]`). Empty fields keep the standard claims.
type ClaimPaths struct {
	ID          string
	DisplayName string
	Email       string
	Avatar      string
	Role        string
}

// IsZero reports whether no expression is configured.
func (p ClaimPaths) IsZero() bool {
	return p == ClaimPaths{}
}

// ValidateClaimPath reports whether expr compiles. Blank expressions are valid.
func ValidateClaimPath(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

type claimSearch func(data any) (any, error)

type claimMapper struct {
	id, name, email, avatar, role claimSearch
}

func compileClaimPaths(p ClaimPaths) (*claimMapper, error) {
	if p.IsZero() {
		return nil, nil
	}
	m := &claimMapper{}
	fields := []struct {
		name string
		expr string
		dst  *claimSearch
	}{
		{"id", p.ID, &m.id},
		{"display name", p.DisplayName, &m.name},
		{"email", p.Email, &m.email},
		{"avatar", p.Avatar, &m.avatar},
		{"role", p.Role, &m.role},
	}
	for _, f := range fields {
		expr := strings.TrimSpace(f.expr)
		if expr == "" {
			continue
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile %s claim path %q: %w", f.name, expr, err)
		}
		*f.dst = func(data any) (any, error) { return jmespath.Search(expr, data) }
	}
	return m, nil
}

// apply overrides fields of base with whatever the configured expressions
// resolve to. Expressions that resolve to nothing leave the field alone.
func (m *claimMapper) apply(claims jwt.MapClaims, base domainauth.UserIdentity) domainauth.UserIdentity {
	if m == nil {
		return base
	}
	data := map[string]any(claims)
	set := func(search claimSearch, dst *string) {
		if search == nil {
			return
		}
		v, err := search(data)
		if err != nil {
			return
		}
		if s := claimString(v); s != "" {
			*dst = s
		}
	}

	out := base
	role := string(base.Role)
	set(m.id, &out.ID)
	set(m.name, &out.DisplayName)
	set(m.email, &out.Email)
	set(m.avatar, &out.Avatar)
	set(m.role, &role)
	out.Role = domainauth.Role(role)
	return out
}

// claimString flattens a JMESPath result into a single string. Lists yield
// their first non-empty scalar.
func claimString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		for _, item := range t {
			if s := claimString(item); s != "" {
				return s
			}
		}
	}
	return ""
}
