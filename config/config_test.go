package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/mmk-sso/internal/errors"
)

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("SSO_LOGIN_AUTHORITY_URL", "https://id.example/")
	t.Setenv("SSO_SELF_URL", "https://app.example")
	t.Setenv("SSO_REVALIDATE_ON_FOCUS", "false")
	t.Setenv("SSO_LOGIN_PATH", "signin")
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_URI", "redis.internal:6380")
	t.Setenv("REDIS_SENTINEL_NODES", "a:26379,b:26379")
	t.Setenv("DEV", "true")
	t.Setenv("DEV_AUTHORITY_ENABLED", "true")
	t.Setenv("DEV_AUTHORITY_TOKEN_TTL", "15m")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "https://id.example", cfg.SSO.LoginAuthorityURL)
	assert.Equal(t, "https://app.example", cfg.SSO.SelfURL)
	assert.Equal(t, "sso_token", cfg.SSO.TokenStorageKey)
	assert.Equal(t, "sso_user", cfg.SSO.UserStorageKey)
	assert.False(t, cfg.SSO.RevalidateOnFocus)
	assert.Equal(t, "/signin", cfg.SSO.LoginPath)
	assert.Equal(t, "/logout", cfg.SSO.LogoutPath)
	assert.Equal(t, StorageBackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.URI)
	assert.Equal(t, []string{"a:26379", "b:26379"}, cfg.Redis.SentinelNodes)
	assert.True(t, cfg.DevAuthority.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.DevAuthority.TokenTTL)
	assert.Equal(t, 1024, cfg.HTTP.PageCapacity)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.NoError(t, cfg.Validate())
}

func TestStorageBackend_UnmarshalText(t *testing.T) {
	for _, in := range []string{"memory", "REDIS", " sqlite ", "Postgres"} {
		var b StorageBackend
		require.NoError(t, b.UnmarshalText([]byte(in)), in)
	}
	var b StorageBackend
	require.NoError(t, b.UnmarshalText([]byte("Postgres")))
	assert.Equal(t, StorageBackendPostgres, b)
}

func TestSSOConfig_ClaimPaths(t *testing.T) {
	t.Setenv("SSO_LOGIN_AUTHORITY_URL", "https://id.example")
	t.Setenv("SSO_SELF_URL", "https://app.example")
	t.Setenv("SSO_CLAIM_ROLE_PATH", " realm_access.roles[0] ")
	t.Setenv("SSO_CLAIM_ID_PATH", "profile.id")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	require.NoError(t, cfg.Validate())

	paths := cfg.SSO.ClaimPaths()
	assert.Equal(t, "realm_access.roles[0]", paths.Role)
	assert.Equal(t, "profile.id", paths.ID)
	assert.Empty(t, paths.Email)
}

func TestSSOConfig_InvalidClaimPath(t *testing.T) {
	cfg := SSOConfig{
		LoginAuthorityURL: "https://id.example",
		SelfURL:           "https://app.example",
		TokenStorageKey:   "sso_token",
		UserStorageKey:    "sso_user",
		ClaimRolePath:     "roles[?",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "SSO_CLAIM_ROLE_PATH", apperrors.GetField(err))
}

func TestHTTPConfig_ValidateCookieDomain(t *testing.T) {
	tests := []struct {
		domain  string
		wantErr bool
	}{
		{domain: "", wantErr: false},
		{domain: ".example.com", wantErr: false},
		{domain: "apps.example.co.uk", wantErr: false},
		{domain: "co.uk", wantErr: true},
		{domain: "com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			cfg := HTTPConfig{CookieDomain: tt.domain}
			cfg.Sanitize()
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "APP_COOKIE_DOMAIN", apperrors.GetField(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAppConfig_CookieDomainMustCoverSelf(t *testing.T) {
	cfg := AppConfig{
		SSO: SSOConfig{
			LoginAuthorityURL: "https://id.example.com",
			SelfURL:           "https://app.example.com",
			TokenStorageKey:   "sso_token",
			UserStorageKey:    "sso_user",
		},
		HTTP: HTTPConfig{CookieDomain: "example.com"},
	}
	cfg.Sanitize()
	assert.NoError(t, cfg.Validate())

	cfg.HTTP.CookieDomain = "other.com"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, "APP_COOKIE_DOMAIN", apperrors.GetField(err))
}

func TestAppConfig_InvalidStorageBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "cassandra")

	var cfg AppConfig
	require.Error(t, env.Parse(&cfg))
}

func TestSSOConfig_Validate(t *testing.T) {
	valid := SSOConfig{
		LoginAuthorityURL: "https://id.example",
		SelfURL:           "https://app.example",
		TokenStorageKey:   "sso_token",
		UserStorageKey:    "sso_user",
	}

	tests := []struct {
		name        string
		mutate      func(*SSOConfig)
		redirect    bool
		field       string
		expectError bool
	}{
		{name: "valid", mutate: func(*SSOConfig) {}},
		{name: "missing authority", mutate: func(c *SSOConfig) { c.LoginAuthorityURL = "" }, redirect: true, field: "SSO_LOGIN_AUTHORITY_URL", expectError: true},
		{name: "relative self", mutate: func(c *SSOConfig) { c.SelfURL = "/app" }, redirect: true, field: "SSO_SELF_URL", expectError: true},
		{name: "non-http authority", mutate: func(c *SSOConfig) { c.LoginAuthorityURL = "ldap://id.example" }, redirect: true, field: "SSO_LOGIN_AUTHORITY_URL", expectError: true},
		{name: "equal keys", mutate: func(c *SSOConfig) { c.UserStorageKey = "sso_token" }, field: "SSO_USER_STORAGE_KEY", expectError: true},
		{name: "empty key", mutate: func(c *SSOConfig) { c.TokenStorageKey = "" }, field: "SSO_TOKEN_STORAGE_KEY", expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !tt.expectError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.redirect, apperrors.IsRedirectUnavailable(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{in: 0, want: 1024},
		{in: 3, want: 16},
		{in: 4096, want: 4096},
	}
	for _, tt := range tests {
		cfg := HTTPConfig{PageCapacity: tt.in}
		cfg.Sanitize()
		assert.Equal(t, tt.want, cfg.PageCapacity)
	}
}

func TestStorageConfig_Validate(t *testing.T) {
	cfg := StorageConfig{Backend: StorageBackendSQLite}
	cfg.Sanitize()
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	cfg = StorageConfig{TTL: -time.Second}
	cfg.Sanitize()
	assert.Equal(t, StorageBackendMemory, cfg.Backend)
	assert.Zero(t, cfg.TTL)
	assert.NoError(t, cfg.Validate())
}

func TestAppConfig_DetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := AppConfig{}
	cfg.Sanitize()
	assert.True(t, cfg.IsDev)
}

func TestAppConfig_DevAuthorityRequiresDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	cfg := AppConfig{
		SSO: SSOConfig{
			LoginAuthorityURL: "https://id.example",
			SelfURL:           "https://app.example",
			TokenStorageKey:   "sso_token",
			UserStorageKey:    "sso_user",
		},
		DevAuthority: DevAuthorityConfig{Enabled: true},
	}
	cfg.Sanitize()

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, "DEV_AUTHORITY_ENABLED", apperrors.GetField(err))

	cfg.IsDev = true
	assert.NoError(t, cfg.Validate())
}
