package config

import (
	"net/url"
	"strings"

	apperrors "github.com/target/mmk-sso/internal/errors"
	"github.com/target/mmk-sso/internal/service"
)

// SSOConfig configures the satellite side of single sign-on.
type SSOConfig struct {
	// LoginAuthorityURL is the base URL of the central login application.
	LoginAuthorityURL string `env:"LOGIN_AUTHORITY_URL"`

	// SelfURL is this satellite's public base URL, sent as returnTo.
	SelfURL string `env:"SELF_URL"`

	TokenStorageKey string `env:"TOKEN_STORAGE_KEY" envDefault:"sso_token"`
	UserStorageKey  string `env:"USER_STORAGE_KEY"  envDefault:"sso_user"`

	// RevalidateOnFocus re-checks the session whenever a page becomes visible again.
	RevalidateOnFocus bool `env:"REVALIDATE_ON_FOCUS" envDefault:"true"`

	// Claim paths are JMESPath expressions over the token claims that override
	// the standard identity claims.
	ClaimIDPath          string `env:"CLAIM_ID_PATH"`
	ClaimDisplayNamePath string `env:"CLAIM_NAME_PATH"`
	ClaimEmailPath       string `env:"CLAIM_EMAIL_PATH"`
	ClaimAvatarPath      string `env:"CLAIM_AVATAR_PATH"`
	ClaimRolePath        string `env:"CLAIM_ROLE_PATH"`

	LoginPath  string `env:"LOGIN_PATH"  envDefault:"/login"`
	LogoutPath string `env:"LOGOUT_PATH" envDefault:"/logout"`

	// Debug raises SSO transition logging to info level and the logger to debug.
	Debug bool `env:"DEBUG" envDefault:"false"`
}

// Sanitize trims URLs and restores default paths.
func (s *SSOConfig) Sanitize() {
	s.LoginAuthorityURL = strings.TrimRight(strings.TrimSpace(s.LoginAuthorityURL), "/")
	s.SelfURL = strings.TrimRight(strings.TrimSpace(s.SelfURL), "/")
	s.TokenStorageKey = strings.TrimSpace(s.TokenStorageKey)
	s.UserStorageKey = strings.TrimSpace(s.UserStorageKey)
	s.ClaimIDPath = strings.TrimSpace(s.ClaimIDPath)
	s.ClaimDisplayNamePath = strings.TrimSpace(s.ClaimDisplayNamePath)
	s.ClaimEmailPath = strings.TrimSpace(s.ClaimEmailPath)
	s.ClaimAvatarPath = strings.TrimSpace(s.ClaimAvatarPath)
	s.ClaimRolePath = strings.TrimSpace(s.ClaimRolePath)
	s.LoginPath = sanitizePath(s.LoginPath, "/login")
	s.LogoutPath = sanitizePath(s.LogoutPath, "/logout")
}

// Validate reports a redirect_unavailable error for missing or unusable URLs
// and a validation error for unusable storage keys.
func (s *SSOConfig) Validate() error {
	if err := validateAbsoluteURL("SSO_LOGIN_AUTHORITY_URL", s.LoginAuthorityURL); err != nil {
		return err
	}
	if err := validateAbsoluteURL("SSO_SELF_URL", s.SelfURL); err != nil {
		return err
	}
	if s.TokenStorageKey == "" || s.UserStorageKey == "" {
		return apperrors.ValidationField("SSO_TOKEN_STORAGE_KEY", "storage keys must not be empty")
	}
	if s.TokenStorageKey == s.UserStorageKey {
		return apperrors.ValidationField("SSO_USER_STORAGE_KEY", "token and user storage keys must differ")
	}
	return s.validateClaimPaths()
}

// ClaimPaths returns the configured identity claim expressions.
func (s *SSOConfig) ClaimPaths() service.ClaimPaths {
	return service.ClaimPaths{
		ID:          s.ClaimIDPath,
		DisplayName: s.ClaimDisplayNamePath,
		Email:       s.ClaimEmailPath,
		Avatar:      s.ClaimAvatarPath,
		Role:        s.ClaimRolePath,
	}
}

func (s *SSOConfig) validateClaimPaths() error {
	paths := []struct{ field, expr string }{
		{"SSO_CLAIM_ID_PATH", s.ClaimIDPath},
		{"SSO_CLAIM_NAME_PATH", s.ClaimDisplayNamePath},
		{"SSO_CLAIM_EMAIL_PATH", s.ClaimEmailPath},
		{"SSO_CLAIM_AVATAR_PATH", s.ClaimAvatarPath},
		{"SSO_CLAIM_ROLE_PATH", s.ClaimRolePath},
	}
	for _, p := range paths {
		if err := service.ValidateClaimPath(p.expr); err != nil {
			return apperrors.ValidationField(p.field, "invalid JMESPath expression: "+err.Error())
		}
	}
	return nil
}

func validateAbsoluteURL(field, raw string) error {
	if raw == "" {
		return apperrors.RedirectUnavailable(field, field+" is required")
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return apperrors.RedirectUnavailable(field, field+" must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperrors.RedirectUnavailable(field, field+" must use http or https")
	}
	return nil
}

func sanitizePath(p, def string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return def
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
