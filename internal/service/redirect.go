package service

import (
	"net/url"
	"strings"

	apperrors "github.com/target/mmk-sso/internal/errors"
)

// ParamReturnTo carries the satellite's address to the login authority.
const ParamReturnTo = "returnTo"

// RedirectConfig holds the URLs the redirect protocol is built from.
type RedirectConfig struct {
	LoginAuthorityURL string
	SelfURL           string
	LoginPath         string // default "/login"
	LogoutPath        string // default "/logout"
}

// RedirectProtocol builds the URLs of the one-directional handoff between a
// satellite and the login authority. It never contacts the authority itself.
type RedirectProtocol struct {
	authority  *url.URL
	self       *url.URL
	loginPath  string
	logoutPath string
}

// NewRedirectProtocol validates cfg and constructs a RedirectProtocol.
// A missing or relative URL is a redirect_unavailable error.
func NewRedirectProtocol(cfg RedirectConfig) (*RedirectProtocol, error) {
	authority, err := parseAbsolute("LoginAuthorityURL", cfg.LoginAuthorityURL)
	if err != nil {
		return nil, err
	}
	self, err := parseAbsolute("SelfURL", cfg.SelfURL)
	if err != nil {
		return nil, err
	}
	return &RedirectProtocol{
		authority:  authority,
		self:       self,
		loginPath:  normalizePath(cfg.LoginPath, "/login"),
		logoutPath: normalizePath(cfg.LogoutPath, "/logout"),
	}, nil
}

// SelfURL returns the satellite's configured address.
func (p *RedirectProtocol) SelfURL() string { return p.self.String() }

// BuildLoginRedirect returns the login URL carrying returnTo.
// returnTo must belong to the satellite's own origin; anything else is
// replaced by the configured self URL.
func (p *RedirectProtocol) BuildLoginRedirect(returnTo string) string {
	return p.authorityURL(p.loginPath, p.safeReturnTo(returnTo))
}

// BuildLogoutRedirect returns the logout URL. The self URL is passed along so
// the authority may bounce the browser back after signing out.
func (p *RedirectProtocol) BuildLogoutRedirect() string {
	return p.authorityURL(p.logoutPath, p.self.String())
}

func (p *RedirectProtocol) authorityURL(path, returnTo string) string {
	u := *p.authority
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	q := u.Query()
	q.Set(ParamReturnTo, returnTo)
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

func (p *RedirectProtocol) safeReturnTo(candidate string) string {
	if candidate == "" {
		return p.self.String()
	}
	u, err := url.Parse(candidate)
	if err != nil || !u.IsAbs() {
		return p.self.String()
	}
	if !strings.EqualFold(u.Scheme, p.self.Scheme) || !strings.EqualFold(u.Host, p.self.Host) {
		return p.self.String()
	}
	return candidate
}

func parseAbsolute(field, raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperrors.RedirectUnavailable(field, field+" is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &apperrors.AppError{
			Code:    apperrors.ErrCodeRedirectUnavailable,
			Message: field + " is not a valid URL",
			Cause:   err,
			Field:   field,
		}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, apperrors.RedirectUnavailable(field, field+" must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperrors.RedirectUnavailable(field, field+" must use http or https")
	}
	return u, nil
}

func normalizePath(p, def string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return def
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
