package httpx

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfHandler() http.Handler {
	return CSRFProtection(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(CSRFTokenFromContext(r.Context())))
	}))
}

func csrfCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultCSRFCookieName {
			return c
		}
	}
	return nil
}

func TestCSRFProtection_GetIssuesToken(t *testing.T) {
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	c := csrfCookie(rec)
	require.NotNil(t, c)
	assert.NotEmpty(t, c.Value)
	assert.Equal(t, c.Value, rec.Body.String(), "token is exposed through the request context")
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.False(t, c.HttpOnly)
	assert.False(t, c.Secure)
}

func TestCSRFProtection_CookieNotReissued(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "existing"})
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, req)

	assert.Nil(t, csrfCookie(rec))
	assert.Equal(t, "existing", rec.Body.String())
}

func TestCSRFProtection_SecureCookie(t *testing.T) {
	t.Run("tls", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.TLS = &tls.ConnectionState{}
		rec := httptest.NewRecorder()
		csrfHandler().ServeHTTP(rec, req)
		require.NotNil(t, csrfCookie(rec))
		assert.True(t, csrfCookie(rec).Secure)
	})

	t.Run("forwarded proto list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-Proto", "http, HTTPS")
		rec := httptest.NewRecorder()
		csrfHandler().ServeHTTP(rec, req)
		require.NotNil(t, csrfCookie(rec))
		assert.True(t, csrfCookie(rec).Secure)
	})
}

func TestCSRFProtection_UnsafeMethods(t *testing.T) {
	form := url.Values{DefaultCSRFFormField: {"tok"}}.Encode()

	tests := []struct {
		name       string
		method     string
		cookie     string
		header     string
		body       string
		ctype      string
		wantStatus int
	}{
		{name: "no token", method: http.MethodPost, cookie: "tok", wantStatus: http.StatusForbidden},
		{name: "no cookie", method: http.MethodPost, header: "tok", wantStatus: http.StatusForbidden},
		{name: "header match", method: http.MethodPost, cookie: "tok", header: "tok", wantStatus: http.StatusOK},
		{name: "header mismatch", method: http.MethodPost, cookie: "tok", header: "other", wantStatus: http.StatusForbidden},
		{name: "form match", method: http.MethodPost, cookie: "tok", body: form, ctype: "application/x-www-form-urlencoded", wantStatus: http.StatusOK},
		{name: "form ignored for json", method: http.MethodPost, cookie: "tok", body: form, ctype: "application/json", wantStatus: http.StatusForbidden},
		{name: "delete checked too", method: http.MethodDelete, cookie: "tok", wantStatus: http.StatusForbidden},
		{name: "head exempt", method: http.MethodHead, wantStatus: http.StatusOK},
		{name: "options exempt", method: http.MethodOptions, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/sso/logout", strings.NewReader(tt.body))
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(DefaultCSRFHeaderName, tt.header)
			}
			if tt.ctype != "" {
				req.Header.Set("Content-Type", tt.ctype)
			}
			rec := httptest.NewRecorder()
			csrfHandler().ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCSRFProtection_RejectionIsJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sso/visibility", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Body.String(), "csrf_failed")
}
