package devauthority

// Package devauthority provides a stand-in login authority for local development.
// It issues tokens for one configured identity and never checks credentials.

import (
	"crypto/rand"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultTokenTTL = time.Hour
	signingKeyBytes = 32
)

// Config controls the dev login authority.
// UserID is required. SigningKey is generated when empty.
type Config struct {
	UserID      string
	DisplayName string
	Email       string
	Role        string
	TokenTTL    time.Duration // default 1h when zero
	SigningKey  string
}

// Authority is a minimal login authority: /login hands a signed token back to
// the caller's returnTo address and /logout bounces the browser back.
type Authority struct {
	cfg    Config
	key    []byte
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes an Authority.
type Option func(*Authority)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authority) { a.logger = l }
}

// New constructs a dev login authority from Config.
func New(cfg Config, opts ...Option) (*Authority, error) {
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, errors.New("dev authority: UserID is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	key := []byte(cfg.SigningKey)
	if len(key) == 0 {
		key = make([]byte, signingKeyBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}

	a := &Authority{cfg: cfg, key: key, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// IssueToken signs a token for the configured identity.
func (a *Authority) IssueToken() (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.cfg.TokenTTL)
	claims := jwt.MapClaims{
		"sub": a.cfg.UserID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"jti": uuid.NewString(),
	}
	if a.cfg.DisplayName != "" {
		claims["name"] = a.cfg.DisplayName
	}
	if a.cfg.Email != "" {
		claims["email"] = a.cfg.Email
	}
	if a.cfg.Role != "" {
		claims["role"] = a.cfg.Role
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return raw, exp, nil
}

// Register mounts the authority's endpoints under prefix (e.g. "/dev-authority").
func (a *Authority) Register(mux *http.ServeMux, prefix string) {
	prefix = "/" + strings.Trim(prefix, "/")
	mux.HandleFunc("GET "+prefix+"/login", a.handleLogin)
	mux.HandleFunc("GET "+prefix+"/logout", a.handleLogout)
}

func (a *Authority) handleLogin(w http.ResponseWriter, r *http.Request) {
	target, err := parseReturnTo(r.URL.Query().Get("returnTo"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	raw, exp, err := a.IssueToken()
	if err != nil {
		a.logger.ErrorContext(r.Context(), "dev authority failed to issue token", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	q := target.Query()
	q.Set("token", raw)
	target.RawQuery = q.Encode()

	a.logger.InfoContext(r.Context(), "dev authority issued token",
		"user_id", a.cfg.UserID,
		"expires_at", exp,
		"return_host", target.Host)
	http.Redirect(w, r, target.String(), http.StatusFound)
}

var signedOutTmpl = template.Must(template.New("signed-out").Parse(
	`<!doctype html><html><head><title>Signed out</title></head><body>` +
		`<p>You have been signed out.</p>{{if .}}<p><a href="{{.}}">Sign in again</a></p>{{end}}` +
		`</body></html>`))

func (a *Authority) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("returnTo")
	a.logger.InfoContext(r.Context(), "dev authority logout", "user_id", a.cfg.UserID)

	var link string
	if target, err := parseReturnTo(raw); err == nil {
		if r.URL.Query().Get("stay") == "" {
			http.Redirect(w, r, target.String(), http.StatusFound)
			return
		}
		link = target.String()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := signedOutTmpl.Execute(w, link); err != nil {
		a.logger.ErrorContext(r.Context(), "render signed-out page", "error", err)
	}
}

func parseReturnTo(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("returnTo is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("returnTo is not a valid URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.New("returnTo must be an absolute http(s) URL")
	}
	return u, nil
}
