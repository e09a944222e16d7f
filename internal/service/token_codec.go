package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	domainauth "github.com/target/mmk-sso/internal/domain/auth"
	apperrors "github.com/target/mmk-sso/internal/errors"
)

// Query parameters the login authority uses to hand a grant back to a satellite.
const (
	ParamToken     = "token"
	ParamExpiresAt = "expiresAt"
	ParamUser      = "user"
)

// TokenCodec recognizes grants carried on a URL and decodes their payload.
//
// The codec never verifies signatures: trust is delegated to the login
// authority that issued the token over a secure channel. JWT tokens are only
// decoded to read their expiry and identity claims.
type TokenCodec struct {
	parser *jwt.Parser
	claims *claimMapper
}

// NewTokenCodec constructs a TokenCodec reading the standard identity claims.
func NewTokenCodec() *TokenCodec {
	return &TokenCodec{parser: jwt.NewParser()}
}

// NewTokenCodecWithClaims constructs a TokenCodec that resolves identity
// fields through paths before falling back to the standard claims.
func NewTokenCodecWithClaims(paths ClaimPaths) (*TokenCodec, error) {
	mapper, err := compileClaimPaths(paths)
	if err != nil {
		return nil, apperrors.ValidationField("claim_paths", err.Error())
	}
	return &TokenCodec{parser: jwt.NewParser(), claims: mapper}, nil
}

// ExtractFromLocation looks for a grant on rawURL.
//
// found is true whenever the URL carried a token parameter; stripped is then the
// same URL with every grant parameter removed and must replace the visible
// address even when err reports a malformed token.
func (c *TokenCodec) ExtractFromLocation(rawURL string) (tok domainauth.Token, stripped string, found bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return domainauth.Token{}, "", false, nil
	}
	q := u.Query()
	if !q.Has(ParamToken) {
		return domainauth.Token{}, "", false, nil
	}

	raw := strings.TrimSpace(q.Get(ParamToken))
	expiresParam := q.Get(ParamExpiresAt)
	userParam := q.Get(ParamUser)

	stripped = stripGrantParams(u, q)

	if raw == "" {
		return domainauth.Token{}, stripped, true, apperrors.MalformedToken("empty token parameter", nil)
	}
	tok, err = c.decode(raw, expiresParam, userParam)
	if err != nil {
		return domainauth.Token{}, stripped, true, err
	}
	return tok, stripped, true, nil
}

// StripGrant removes grant parameters from rawURL. It returns rawURL unchanged
// when it cannot be parsed.
func (c *TokenCodec) StripGrant(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return stripGrantParams(u, u.Query())
}

// IsExpired reports whether tok is expired at now. A token exactly at its expiry is expired.
func (c *TokenCodec) IsExpired(tok domainauth.Token, now time.Time) bool {
	return !now.Before(tok.ExpiresAt)
}

// ParseUserPayload decodes the identity embedded in a JWT token.
func (c *TokenCodec) ParseUserPayload(raw string) (domainauth.UserIdentity, error) {
	claims, err := c.parseClaims(raw)
	if err != nil {
		return domainauth.UserIdentity{}, err
	}
	user := c.identity(claims)
	if !user.Valid() {
		return domainauth.UserIdentity{}, apperrors.MalformedToken("token payload has no subject", nil)
	}
	return user, nil
}

func (c *TokenCodec) decode(raw, expiresParam, userParam string) (domainauth.Token, error) {
	// Opaque tokens are fine as long as the side channel supplies what they lack.
	claims, claimsErr := c.parseClaims(raw)

	var expiresAt time.Time
	switch {
	case expiresParam != "":
		t, err := parseExpiry(expiresParam)
		if err != nil {
			return domainauth.Token{}, err
		}
		expiresAt = t
	case claimsErr == nil:
		exp, err := claims.GetExpirationTime()
		if err != nil || exp == nil {
			return domainauth.Token{}, apperrors.MalformedToken("token carries no expiry", err)
		}
		expiresAt = exp.Time
	default:
		return domainauth.Token{}, apperrors.MalformedToken("token carries no expiry", claimsErr)
	}

	var user domainauth.UserIdentity
	switch {
	case userParam != "":
		u, err := decodeUserParam(userParam)
		if err != nil {
			return domainauth.Token{}, err
		}
		user = u
	case claimsErr == nil:
		user = c.identity(claims)
	default:
		return domainauth.Token{}, apperrors.MalformedToken("token carries no identity", claimsErr)
	}
	if !user.Valid() {
		return domainauth.Token{}, apperrors.MalformedToken("identity payload has no id", nil)
	}

	return domainauth.Token{Raw: raw, ExpiresAt: expiresAt.UTC(), User: user}, nil
}

// identity reads the standard identity claims, then applies configured claim paths.
// sub may be a string or a number.
func (c *TokenCodec) identity(claims jwt.MapClaims) domainauth.UserIdentity {
	str := func(name string) string { return claimString(claims[name]) }
	email := str("email")
	user := domainauth.UserIdentity{
		ID:          str("sub"),
		DisplayName: firstNonEmpty(str("name"), str("preferred_username"), email),
		Email:       email,
		Avatar:      str("picture"),
		Role:        domainauth.Role(str("role")),
	}
	return c.claims.apply(claims, user)
}

func (c *TokenCodec) parseClaims(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := c.parser.ParseUnverified(raw, claims); err != nil {
		return nil, apperrors.MalformedToken("parse token payload", err)
	}
	return claims, nil
}

// userPayload is the side-channel identity shape. The id may arrive as a JSON
// string or number.
type userPayload struct {
	ID          json.RawMessage `json:"id"`
	DisplayName string          `json:"displayName"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Avatar      string          `json:"avatar"`
	Role        string          `json:"role"`
}

func decodeUserParam(encoded string) (domainauth.UserIdentity, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return domainauth.UserIdentity{}, apperrors.MalformedToken("decode user parameter", err)
	}
	var p userPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domainauth.UserIdentity{}, apperrors.MalformedToken("unmarshal user parameter", err)
	}
	id, err := rawID(p.ID)
	if err != nil {
		return domainauth.UserIdentity{}, err
	}
	return domainauth.UserIdentity{
		ID:          id,
		DisplayName: firstNonEmpty(p.DisplayName, p.Name),
		Email:       p.Email,
		Avatar:      p.Avatar,
		Role:        domainauth.Role(p.Role),
	}, nil
}

// EncodeUserParam produces the side-channel encoding of user understood by the codec.
func EncodeUserParam(user domainauth.UserIdentity) (string, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal user: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func rawID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", apperrors.MalformedToken("decode user id", err)
	}
	switch id := v.(type) {
	case nil:
		return "", nil
	case string:
		return id, nil
	case json.Number:
		return id.String(), nil
	default:
		return "", apperrors.MalformedToken(fmt.Sprintf("unsupported user id type %T", v), nil)
	}
}

// parseExpiry accepts unix seconds or an RFC 3339 timestamp.
func parseExpiry(v string) (time.Time, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, apperrors.MalformedToken("parse expiresAt parameter", err)
	}
	return t.UTC(), nil
}

func stripGrantParams(u *url.URL, q url.Values) string {
	q.Del(ParamToken)
	q.Del(ParamExpiresAt)
	q.Del(ParamUser)
	clean := *u
	clean.RawQuery = q.Encode()
	return clean.String()
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
