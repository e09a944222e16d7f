package httpx

import (
	"log/slog"
	"net/http"
)

// DevAuthority is a login authority that can be mounted next to the satellite.
type DevAuthority interface {
	Register(mux *http.ServeMux, prefix string)
}

// RouterServices holds everything needed by the HTTP router.
type RouterServices struct {
	SSO   *SSOHandlers
	Title string // landing page title
	// Optional: a development login authority served under /dev-authority.
	DevAuthority DevAuthority
	// CSRF configures the double-submit token on logout and visibility posts.
	CSRF   CSRFConfig
	Logger *slog.Logger
}

// NewRouter creates the satellite's HTTP handler.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	title := services.Title
	if title == "" {
		title = "Satellite"
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	registerSSORoutes(mux, services.SSO)
	if services.DevAuthority != nil {
		services.DevAuthority.Register(mux, "/dev-authority")
	}

	mux.Handle("GET /{$}", services.SSO.RequireSession(IndexHandler(title, services.SSO.BasePath(), logger)))

	return Chain(mux, Recover(logger), Logging(logger), CSRFProtection(services.CSRF))
}

func registerSSORoutes(mux *http.ServeMux, h *SSOHandlers) {
	mux.HandleFunc("POST /sso/visibility", h.Visibility)
	mux.HandleFunc("GET /sso/status", h.Status)
	mux.HandleFunc("POST /sso/logout", h.Logout)
}
