package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	domainauth "github.com/target/mmk-sso/internal/domain/auth"
)

// ClientCookieName identifies a browser client. Pages of one client share a storage area.
const ClientCookieName = "sso_client"

const clientCookieMaxAge = 400 * 24 * 60 * 60

// SSOHandlersOptions groups dependencies for SSOHandlers.
type SSOHandlersOptions struct {
	Pages        *PageRegistry
	SelfURL      string
	CookieDomain string
	Logger       *slog.Logger
}

// SSOHandlers serves the satellite side of the single sign-on handshake.
type SSOHandlers struct {
	pages        *PageRegistry
	self         *url.URL
	cookieDomain string
	logger       *slog.Logger
}

// authStatus is the JSON shape of the page's authentication state.
type authStatus struct {
	Authenticated bool                     `json:"authenticated"`
	State         domainauth.State         `json:"state"`
	User          *domainauth.UserIdentity `json:"user"`
	RedirectTo    string                   `json:"redirect_to,omitempty"`
}

// NewSSOHandlers constructs SSOHandlers.
func NewSSOHandlers(opts SSOHandlersOptions) (*SSOHandlers, error) {
	if opts.Pages == nil {
		return nil, errors.New("page registry is required")
	}
	self, err := url.Parse(opts.SelfURL)
	if err != nil || !self.IsAbs() {
		return nil, errors.New("self URL must be absolute")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SSOHandlers{
		pages:        opts.Pages,
		self:         self,
		cookieDomain: opts.CookieDomain,
		logger:       logger,
	}, nil
}

// RequireSession treats every request as a page load: a new page twin is built
// and initialized. The browser is sent to the login authority when no session
// is available, or back to the same address without the grant when a token was
// consumed from the URL.
func (h *SSOHandlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := h.ensureClientID(w, r)
		page, err := h.pages.Open(clientID, h.pageURL(r))
		if err != nil {
			h.logger.ErrorContext(r.Context(), "could not open page", "error", err, "client_id", clientID)
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, Err: err})
			return
		}

		ok := page.Authority.InitializeAuth(r.Context())
		if target, pending := page.Navigator.TakeRedirect(); pending {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		if clean, replaced := page.Navigator.Replaced(); replaced {
			http.Redirect(w, r, clean, http.StatusFound)
			return
		}
		if !ok {
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: "authentication_required",
				Err:     errors.New("authentication required"),
			})
			return
		}

		ctx := withClientID(r.Context(), clientID)
		ctx = WithAuthState(ctx, page.Authority.Snapshot())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Visibility handles the page's "visible again" notification.
// POST /sso/visibility.
func (h *SSOHandlers) Visibility(w http.ResponseWriter, r *http.Request) {
	page, ok := h.currentPage(r)
	if !ok {
		// No live page: have the browser reload so a new one is initialized.
		WriteJSON(w, http.StatusOK, authStatus{
			State:      domainauth.StateUnauthenticated,
			RedirectTo: h.self.String(),
		})
		return
	}

	page.Visibility.Emit(r.Context())
	st := h.status(page)
	if target, pending := page.Navigator.TakeRedirect(); pending {
		st.RedirectTo = target
	}
	if !st.Authenticated && st.RedirectTo == "" {
		// The page already spent its login redirect or was logged out. A reload
		// builds a new page that starts over.
		st.RedirectTo = h.self.String()
	}
	WriteJSON(w, http.StatusOK, st)
}

// Status returns the current authentication status.
// GET /sso/status.
func (h *SSOHandlers) Status(w http.ResponseWriter, r *http.Request) {
	page, ok := h.currentPage(r)
	if !ok {
		WriteJSON(w, http.StatusOK, authStatus{State: domainauth.StateUnauthenticated})
		return
	}
	WriteJSON(w, http.StatusOK, h.status(page))
}

// Logout clears the client's session and sends the browser to the login authority's logout URL.
// POST /sso/logout. There is no GET form: a state change must carry a CSRF token.
func (h *SSOHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	clientID := h.ensureClientID(w, r)
	page, ok := h.pages.Get(clientID)
	if !ok {
		var err error
		page, err = h.pages.Open(clientID, h.self.String())
		if err != nil {
			h.logger.ErrorContext(r.Context(), "could not open page for logout", "error", err, "client_id", clientID)
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, Err: err})
			return
		}
	}

	page.Authority.Logout(r.Context())
	target, _ := page.Navigator.TakeRedirect()

	if isAJAX(r) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": target,
		})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *SSOHandlers) status(page *Page) authStatus {
	snap := page.Authority.Snapshot()
	return authStatus{
		Authenticated: snap.Authenticated,
		State:         snap.State,
		User:          snap.User,
	}
}

func (h *SSOHandlers) currentPage(r *http.Request) (*Page, bool) {
	id, ok := clientIDFromCookie(r)
	if !ok {
		return nil, false
	}
	return h.pages.Get(id)
}

// BasePath is the path prefix of the self URL without a trailing slash.
// It is empty when the satellite is served at the root of its origin.
func (h *SSOHandlers) BasePath() string {
	return strings.TrimSuffix(h.self.Path, "/")
}

// pageURL reconstructs the address the browser is at, on the configured
// origin and under the self URL's path prefix.
func (h *SSOHandlers) pageURL(r *http.Request) string {
	u := url.URL{Scheme: h.self.Scheme, Host: h.self.Host}
	return u.String() + h.BasePath() + r.URL.RequestURI()
}

// ensureClientID returns the request's client id, assigning a new one when absent.
func (h *SSOHandlers) ensureClientID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := clientIDFromCookie(r); ok {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    id,
		Path:     "/",
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   clientCookieMaxAge,
	})
	return id
}

func clientIDFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(ClientCookieName)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
