package devauthority

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestAuthority(t *testing.T) (*Authority, *http.ServeMux) {
	t.Helper()
	a, err := New(Config{
		UserID:      "dev-user",
		DisplayName: "Dev User",
		Email:       "dev@example.com",
		Role:        "admin",
		SigningKey:  "dev-secret",
	},
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	mux := http.NewServeMux()
	a.Register(mux, "/dev-authority/")
	return a, mux
}

func TestNew_RequiresUserID(t *testing.T) {
	_, err := New(Config{Email: "dev@example.com"})
	require.Error(t, err)
}

func TestNew_GeneratesSigningKey(t *testing.T) {
	a, err := New(Config{UserID: "dev-user"})
	require.NoError(t, err)
	assert.Len(t, a.key, signingKeyBytes)
	assert.Equal(t, defaultTokenTTL, a.cfg.TokenTTL)
}

func TestIssueToken(t *testing.T) {
	a, _ := newTestAuthority(t)

	raw, exp, err := a.IssueToken()
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Hour), exp)

	claims := jwt.MapClaims{}
	_, err = jwt.NewParser(jwt.WithTimeFunc(func() time.Time { return fixedNow })).
		ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return []byte("dev-secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "dev-user", claims["sub"])
	assert.Equal(t, "Dev User", claims["name"])
	assert.Equal(t, "dev@example.com", claims["email"])
	assert.Equal(t, "admin", claims["role"])
	assert.NotEmpty(t, claims["jti"])
}

func TestLogin_RedirectsWithToken(t *testing.T) {
	_, mux := newTestAuthority(t)

	req := httptest.NewRequest(http.MethodGet,
		"/dev-authority/login?returnTo="+url.QueryEscape("https://app.example/reports?id=7"), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.example", loc.Host)
	assert.Equal(t, "/reports", loc.Path)
	assert.Equal(t, "7", loc.Query().Get("id"))
	assert.NotEmpty(t, loc.Query().Get("token"))
}

func TestLogin_RejectsBadReturnTo(t *testing.T) {
	_, mux := newTestAuthority(t)

	for _, returnTo := range []string{"", "/relative", "javascript:alert(1)", "ftp://files.example/"} {
		t.Run(returnTo, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet,
				"/dev-authority/login?returnTo="+url.QueryEscape(returnTo), nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLogout(t *testing.T) {
	_, mux := newTestAuthority(t)

	t.Run("redirects back", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/dev-authority/logout?returnTo="+url.QueryEscape("https://app.example"), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://app.example", rec.Header().Get("Location"))
	})

	t.Run("renders signed out page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/dev-authority/logout?stay=1&returnTo="+url.QueryEscape("https://app.example"), nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "signed out")
		assert.Contains(t, rec.Body.String(), `href="https://app.example"`)
	})

	t.Run("no return address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dev-authority/logout", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "href")
	})
}
