package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/mmk-sso/internal/adapters/memory"
	domainauth "github.com/target/mmk-sso/internal/domain/auth"
	"github.com/target/mmk-sso/internal/ports"
	"github.com/target/mmk-sso/internal/service"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T, backend *memory.Backend, capacity int) *PageRegistry {
	t.Helper()
	redirects, err := service.NewRedirectProtocol(service.RedirectConfig{
		LoginAuthorityURL: "https://id.example",
		SelfURL:           "https://app.example",
	})
	require.NoError(t, err)

	pages, err := NewPageRegistry(PageRegistryOptions{
		Capacity:          capacity,
		Redirects:         redirects,
		Storage:           func(ns string) ports.Storage { return backend.Namespace(ns) },
		TokenKey:          "sso_token",
		UserKey:           "sso_user",
		RevalidateOnFocus: true,
		Now:               func() time.Time { return testNow },
		Logger:            discardLogger(),
	})
	require.NoError(t, err)
	return pages
}

type testHost struct {
	backend *memory.Backend
	pages   *PageRegistry
	handler http.Handler
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	return newTestHostAt(t, "https://app.example")
}

// newTestHostAt builds a host whose self URL is selfURL.
func newTestHostAt(t *testing.T, selfURL string) *testHost {
	t.Helper()
	backend := memory.NewBackend()
	pages := newTestRegistry(t, backend, 0)
	sso, err := NewSSOHandlers(SSOHandlersOptions{
		Pages:   pages,
		SelfURL: selfURL,
		Logger:  discardLogger(),
	})
	require.NoError(t, err)

	return &testHost{
		backend: backend,
		pages:   pages,
		handler: NewRouter(RouterServices{SSO: sso, Title: "Reports", Logger: discardLogger()}),
	}
}

const testCSRFToken = "test-csrf-token"

// do serves req. Unsafe requests carry a matching CSRF cookie and header.
func (h *testHost) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if requiresCSRFValidation(req.Method) {
		req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRFToken})
		req.Header.Set(DefaultCSRFHeaderName, testCSRFToken)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// grantPath returns path carrying a side-channel grant for user valid for an hour.
func grantPath(t *testing.T, path string, user domainauth.UserIdentity) string {
	t.Helper()
	encoded, err := service.EncodeUserParam(user)
	require.NoError(t, err)
	u, err := url.Parse(path)
	require.NoError(t, err)
	q := u.Query()
	q.Set(service.ParamToken, "grant-"+user.ID)
	q.Set(service.ParamExpiresAt, testNow.Add(time.Hour).Format(time.RFC3339))
	q.Set(service.ParamUser, encoded)
	u.RawQuery = q.Encode()
	return u.String()
}

func clientCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == ClientCookieName {
			return c
		}
	}
	require.FailNow(t, "client cookie not set")
	return nil
}

// signIn loads a page carrying a grant and returns the client cookie.
func (h *testHost) signIn(t *testing.T, user domainauth.UserIdentity) *http.Cookie {
	t.Helper()
	rec := h.do(httptest.NewRequest(http.MethodGet, grantPath(t, "/", user), nil))
	require.Equal(t, http.StatusFound, rec.Code)
	return clientCookie(t, rec)
}
