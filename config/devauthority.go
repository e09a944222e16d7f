package config

import "time"

// DevAuthorityConfig controls the development login authority.
// When enabled it is mounted at /dev-authority and issues tokens for one fixed identity.
type DevAuthorityConfig struct {
	Enabled     bool          `env:"ENABLED"      envDefault:"false"`
	UserID      string        `env:"USER_ID"      envDefault:"dev-user"`
	DisplayName string        `env:"DISPLAY_NAME" envDefault:"Dev User"`
	Email       string        `env:"EMAIL"        envDefault:"dev@example.com"`
	Role        string        `env:"ROLE"         envDefault:"admin"`
	TokenTTL    time.Duration `env:"TOKEN_TTL"    envDefault:"1h"`
	// SigningKey is generated at startup when empty.
	SigningKey string `env:"SIGNING_KEY"`
}

// Sanitize applies guardrails to dev authority configuration values.
func (d *DevAuthorityConfig) Sanitize() {
	if d.TokenTTL <= 0 {
		d.TokenTTL = time.Hour
	}
}
