package service

import (
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/mmk-sso/internal/domain/auth"
	mocks "github.com/target/mmk-sso/internal/mocks/auth"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// signToken returns an HS256 JWT for user expiring at exp.
func signToken(t *testing.T, user domainauth.UserIdentity, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"name":  user.DisplayName,
		"email": user.Email,
		"exp":   exp.Unix(),
	}
	if user.Role != "" {
		claims["role"] = string(user.Role)
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return raw
}

// grantURL appends a token grant to base.
func grantURL(t *testing.T, base, token string, extra url.Values) string {
	t.Helper()
	u, err := url.Parse(base)
	require.NoError(t, err)
	q := u.Query()
	q.Set(ParamToken, token)
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type authorityFixture struct {
	authority *SessionAuthority
	store     *SessionStore
	storage   *mocks.FuncStorage
	nav       *mocks.RecordingNavigator
	now       *time.Time
}

func newAuthorityFixture(t *testing.T, currentURL string) *authorityFixture {
	t.Helper()
	storage := mocks.NewFuncStorage()
	return newAuthorityFixtureWithStorage(t, currentURL, storage)
}

func newAuthorityFixtureWithStorage(t *testing.T, currentURL string, storage *mocks.FuncStorage) *authorityFixture {
	t.Helper()

	store, err := NewSessionStore(SessionStoreOptions{
		Storage:  storage,
		TokenKey: "sso_token",
		UserKey:  "sso_user",
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	redirects, err := NewRedirectProtocol(RedirectConfig{
		LoginAuthorityURL: "https://id.example",
		SelfURL:           "https://app.example",
		LoginPath:         "/login",
	})
	require.NoError(t, err)

	now := testNow
	nav := mocks.NewRecordingNavigator(currentURL)
	authority, err := NewSessionAuthority(SessionAuthorityOptions{
		Store:     store,
		Redirects: redirects,
		Navigator: nav,
		Now:       func() time.Time { return now },
		Logger:    discardLogger(),
	})
	require.NoError(t, err)

	return &authorityFixture{
		authority: authority,
		store:     store,
		storage:   storage,
		nav:       nav,
		now:       &now,
	}
}
