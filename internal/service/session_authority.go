package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/target/mmk-sso/internal/core"
	domainauth "github.com/target/mmk-sso/internal/domain/auth"
	apperrors "github.com/target/mmk-sso/internal/errors"
	"github.com/target/mmk-sso/internal/ports"
)

// SessionAuthorityOptions groups dependencies for SessionAuthority.
type SessionAuthorityOptions struct {
	Codec     *TokenCodec // optional, defaults to NewTokenCodec()
	Store     *SessionStore
	Redirects *RedirectProtocol
	Navigator ports.Navigator
	Now       func() time.Time // optional, defaults to time.Now
	Logger    *slog.Logger
	// Debug raises SSO transition logs from debug to info level.
	Debug bool
}

// SessionAuthority owns one page's session and its observable authentication state.
//
// InitializeAuth, Revalidate and Logout each run to completion under a single
// lock. The AuthState snapshot is replaced as one value, so Authenticated and
// User are never observed out of step. Subscribers are notified synchronously
// while the transition completes and must not call back into the authority.
type SessionAuthority struct {
	codec     *TokenCodec
	store     *SessionStore
	redirects *RedirectProtocol
	nav       ports.Navigator
	now       func() time.Time
	logger    *slog.Logger
	debug     bool

	mu         sync.Mutex
	session    *domainauth.Session
	redirected bool // a login redirect was issued during this page lifetime

	state         *core.Observable[domainauth.AuthState]
	revalidations singleflight.Group
}

var errNoStoredSession = errors.New("stored session absent")

// NewSessionAuthority constructs a SessionAuthority in the Unauthenticated state.
func NewSessionAuthority(opts SessionAuthorityOptions) (*SessionAuthority, error) {
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Redirects == nil {
		return nil, apperrors.RedirectUnavailable("Redirects", "redirect protocol is required")
	}
	if opts.Navigator == nil {
		return nil, errors.New("navigator is required")
	}
	codec := opts.Codec
	if codec == nil {
		codec = NewTokenCodec()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionAuthority{
		codec:     codec,
		store:     opts.Store,
		redirects: opts.Redirects,
		nav:       opts.Navigator,
		now:       now,
		logger:    logger,
		debug:     opts.Debug,
		state:     core.NewObservable(domainauth.Unauthenticated(domainauth.StateUnauthenticated)),
	}, nil
}

// InitializeAuth acquires a session for the page and reports whether the page is authenticated.
//
// Precedence: a valid token on the current URL, then a valid stored session.
// Otherwise the authority becomes Unauthenticated and redirects to the login
// authority. A recognized URL grant is always stripped from the address.
func (a *SessionAuthority) InitializeAuth(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.state.Get()
	if cur.State == domainauth.StateLoggedOut {
		return false
	}
	if !cur.Authenticated {
		a.commit(ctx, domainauth.Unauthenticated(domainauth.StateAuthenticating))
	}

	if sess, ok := a.sessionFromLocation(ctx); ok {
		a.establish(ctx, sess, "location")
		return true
	}
	if sess, ok := a.sessionFromStore(ctx); ok {
		a.establish(ctx, sess, "store")
		return true
	}

	a.fail(ctx, "no valid session")
	return false
}

// Revalidate re-derives the validity of the current session.
//
// Concurrent calls are coalesced into one execution and share its result, so a
// burst of focus events yields at most one login redirect. Outside the
// Authenticated state there is nothing to revalidate and false is returned
// without a new redirect.
func (a *SessionAuthority) Revalidate(ctx context.Context) bool {
	v, _, _ := a.revalidations.Do("revalidate", func() (any, error) {
		return a.revalidate(ctx), nil
	})
	ok, _ := v.(bool)
	return ok
}

func (a *SessionAuthority) revalidate(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.state.Get()
	if !domainauth.IsAuthenticatedState(cur.State) || a.session == nil {
		return false
	}
	a.commit(ctx, domainauth.AuthenticatedAs(domainauth.StateRevalidating, a.session.User))

	now := a.now()
	stored, err := a.store.Load(ctx)
	switch {
	case err != nil:
		a.logger.WarnContext(ctx, "revalidation could not read session store", "error", err)
		a.fail(ctx, "store unavailable")
		return false
	case stored == nil:
		a.trace(ctx, "session cleared by another instance", "error", errNoStoredSession)
		a.fail(ctx, "stored session absent")
		return false
	case stored.Token != a.session.Token:
		if stored.ExpiredAt(now) {
			a.expire(ctx, stored.ExpiresAt)
			return false
		}
		// Another instance signed in again; a new identity means a new session.
		a.establish(ctx, *stored, "store")
		return true
	}

	if a.session.ExpiredAt(now) {
		a.expire(ctx, a.session.ExpiresAt)
		return false
	}
	a.commit(ctx, domainauth.AuthenticatedAs(domainauth.StateAuthenticated, a.session.User))
	return true
}

// Logout clears the store and redirects to the login authority's logout URL.
// It is idempotent: later calls only repeat the redirect.
func (a *SessionAuthority) Logout(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Get().State != domainauth.StateLoggedOut {
		if err := a.store.Clear(ctx); err != nil {
			a.logger.ErrorContext(ctx, "logout could not clear session store", "error", err)
		}
		a.session = nil
		a.commit(ctx, domainauth.Unauthenticated(domainauth.StateLoggedOut))
	}

	target := a.redirects.BuildLogoutRedirect()
	a.trace(ctx, "sso logout redirect", "redirect_to", target)
	a.nav.Redirect(target)
}

// Snapshot returns the current authentication state.
func (a *SessionAuthority) Snapshot() domainauth.AuthState {
	st := a.state.Get()
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// IsAuthenticated reports whether the page currently holds a valid session.
func (a *SessionAuthority) IsAuthenticated() bool { return a.state.Get().Authenticated }

// User returns a copy of the current identity, or nil.
func (a *SessionAuthority) User() *domainauth.UserIdentity { return a.Snapshot().User }

// State returns the current lifecycle state.
func (a *SessionAuthority) State() domainauth.State { return a.state.Get().State }

// Subscribe registers fn for every state transition and returns a function that removes it.
func (a *SessionAuthority) Subscribe(fn func(domainauth.AuthState)) func() {
	return a.state.Subscribe(fn)
}

// Session returns a copy of the current session, or nil.
func (a *SessionAuthority) Session() *domainauth.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil
	}
	s := *a.session
	return &s
}

func (a *SessionAuthority) sessionFromLocation(ctx context.Context) (domainauth.Session, bool) {
	tok, stripped, found, err := a.codec.ExtractFromLocation(a.nav.CurrentURL())
	if !found {
		return domainauth.Session{}, false
	}
	a.nav.ReplaceURL(stripped)

	if err != nil {
		a.logger.WarnContext(ctx, "ignoring malformed token on location",
			"error", err,
			"code", apperrors.GetCode(err))
		return domainauth.Session{}, false
	}
	if a.codec.IsExpired(tok, a.now()) {
		a.trace(ctx, "ignoring expired token on location", "expires_at", tok.ExpiresAt)
		return domainauth.Session{}, false
	}

	sess := domainauth.NewSession(tok)
	if err := a.store.Save(ctx, sess); err != nil {
		a.logger.WarnContext(ctx, "could not persist session from location", "error", err)
		return domainauth.Session{}, false
	}
	return sess, true
}

func (a *SessionAuthority) sessionFromStore(ctx context.Context) (domainauth.Session, bool) {
	stored, err := a.store.Load(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "could not read session store", "error", err)
		return domainauth.Session{}, false
	}
	if stored == nil {
		return domainauth.Session{}, false
	}
	if stored.ExpiredAt(a.now()) {
		a.clearStore(ctx, apperrors.ExpiredSession("stored session expired"))
		return domainauth.Session{}, false
	}
	return *stored, true
}

func (a *SessionAuthority) establish(ctx context.Context, sess domainauth.Session, source string) {
	a.session = &sess
	a.commit(ctx, domainauth.AuthenticatedAs(domainauth.StateAuthenticated, sess.User))
	a.trace(ctx, "sso session established",
		"source", source,
		"user_id", sess.User.ID,
		"expires_at", sess.ExpiresAt)
}

func (a *SessionAuthority) expire(ctx context.Context, at time.Time) {
	a.clearStore(ctx, apperrors.ExpiredSession("session expired at "+at.Format(time.RFC3339)))
	a.fail(ctx, "session expired")
}

func (a *SessionAuthority) clearStore(ctx context.Context, reason error) {
	a.trace(ctx, "clearing session store", "reason", reason)
	if err := a.store.Clear(ctx); err != nil {
		a.logger.WarnContext(ctx, "could not clear session store", "error", err)
	}
}

// fail drops the session and sends the page to the login authority once.
func (a *SessionAuthority) fail(ctx context.Context, reason string) {
	a.session = nil
	a.commit(ctx, domainauth.Unauthenticated(domainauth.StateUnauthenticated))

	if a.redirected {
		return
	}
	a.redirected = true
	target := a.redirects.BuildLoginRedirect(a.codec.StripGrant(a.nav.CurrentURL()))
	a.trace(ctx, "sso login redirect", "reason", reason, "redirect_to", target)
	a.nav.Redirect(target)
}

func (a *SessionAuthority) commit(ctx context.Context, next domainauth.AuthState) {
	prev := a.state.Get()
	a.state.Set(next)
	if prev.State != next.State {
		a.trace(ctx, "sso state transition", "from", prev.State, "to", next.State)
	}
}

func (a *SessionAuthority) trace(ctx context.Context, msg string, args ...any) {
	level := slog.LevelDebug
	if a.debug {
		level = slog.LevelInfo
	}
	a.logger.Log(ctx, level, msg, args...)
}
