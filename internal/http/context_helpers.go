package httpx

import (
	"context"

	domainauth "github.com/target/mmk-sso/internal/domain/auth"
)

// authStateKey is an unexported context key type to avoid collisions across packages.
type authStateKey struct{}

// clientIDKey carries the sso_client cookie value.
type clientIDKey struct{}

// WithAuthState returns a child context that carries the page's authentication state.
func WithAuthState(ctx context.Context, st domainauth.AuthState) context.Context {
	return context.WithValue(ctx, authStateKey{}, st)
}

// AuthStateFromContext returns the authentication state and a boolean indicating presence.
func AuthStateFromContext(ctx context.Context) (domainauth.AuthState, bool) {
	st, ok := ctx.Value(authStateKey{}).(domainauth.AuthState)
	return st, ok
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *domainauth.UserIdentity {
	st, ok := AuthStateFromContext(ctx)
	if !ok || !st.Authenticated {
		return nil
	}
	return st.User
}

// IsGuestUser reports whether the current request context is unauthenticated or a guest.
func IsGuestUser(ctx context.Context) bool {
	u := UserFromContext(ctx)
	return u == nil || u.IsGuest()
}

func withClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, id)
}

// ClientIDFromContext returns the browser client id assigned by the SSO handlers.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}
