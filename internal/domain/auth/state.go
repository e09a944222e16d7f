package auth

// State is a Session Authority lifecycle state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	// StateRevalidating is a non-blocking sub-state of StateAuthenticated.
	StateRevalidating State = "revalidating"
	// StateLoggedOut is terminal for the lifetime of a page.
	StateLoggedOut State = "logged_out"
)

// AuthState is the observable authentication state.
// Authenticated and User always change together.
type AuthState struct {
	State         State
	Authenticated bool
	User          *UserIdentity
}

// IsAuthenticatedState reports whether s counts as authenticated for consumers.
func IsAuthenticatedState(s State) bool {
	return s == StateAuthenticated || s == StateRevalidating
}

// Unauthenticated returns an empty AuthState in the given state.
func Unauthenticated(s State) AuthState {
	return AuthState{State: s}
}

// AuthenticatedAs returns an AuthState holding a private copy of user.
func AuthenticatedAs(s State, user UserIdentity) AuthState {
	u := user
	return AuthState{State: s, Authenticated: true, User: &u}
}
