package config

import (
	"errors"
	"os"
	"strings"

	apperrors "github.com/target/mmk-sso/internal/errors"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - sso.go: Satellite SSO configuration
//   - storage.go: Session storage backend and Redis configuration
//   - database.go: PostgreSQL configuration for the postgres backend
//   - http.go: HTTP server configuration
//   - devauthority.go: Development login authority
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Single sign-on configuration
	SSO SSOConfig `envPrefix:"SSO_"`

	// Session storage configuration
	Storage StorageConfig
	Redis   RedisConfig `envPrefix:"REDIS_"`
	DB      DBConfig    `envPrefix:"DB_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Development login authority
	DevAuthority DevAuthorityConfig `envPrefix:"DEV_AUTHORITY_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.SSO.Sanitize()
	c.HTTP.Sanitize()
	c.Storage.Sanitize()
	c.DevAuthority.Sanitize()

	c.detectDevMode()
}

// Validate reports configuration the satellite cannot start with.
func (c *AppConfig) Validate() error {
	err := errors.Join(c.SSO.Validate(), c.Storage.Validate(), c.HTTP.Validate())
	if err != nil {
		return err
	}
	if !cookieDomainCovers(c.HTTP.CookieDomain, c.SSO.SelfURL) {
		return apperrors.ValidationField("APP_COOKIE_DOMAIN", "cookie domain does not cover SSO_SELF_URL")
	}
	// The dev authority signs tokens for a fixed identity.
	if c.DevAuthority.Enabled && !c.IsDev {
		return apperrors.ValidationField("DEV_AUTHORITY_ENABLED", "development login authority requires DEV=true")
	}
	return nil
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
