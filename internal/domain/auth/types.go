package auth

// Package auth contains domain-level types for satellite SSO sessions.
// It is pure and free of framework/adapter concerns.

import "time"

// Role represents the role the login authority attached to a user.
// Keep string form for easy persistence in storage entries and token claims.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// UserIdentity is the user record delivered by the login authority.
// It is immutable once attached to a Session.
type UserIdentity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Avatar      string `json:"avatar,omitempty"`
	Role        Role   `json:"role,omitempty"`
}

// Valid reports whether the identity carries the fields a session needs.
func (u UserIdentity) Valid() bool { return u.ID != "" }

// IsGuest returns true if the identity role is guest.
func (u UserIdentity) IsGuest() bool { return u.Role == RoleGuest }

// Token is an opaque bearer credential handed over by the login authority.
type Token struct {
	Raw       string
	ExpiresAt time.Time
	User      UserIdentity // embedded or side-channel identity payload
}

// Session is the satellite's record of an authenticated user.
// A Session is either absent (nil) or fully populated.
type Session struct {
	Token     string       `json:"token"`
	User      UserIdentity `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Complete reports whether every field of the session is populated.
func (s Session) Complete() bool {
	return s.Token != "" && s.User.Valid() && !s.ExpiresAt.IsZero()
}

// ExpiredAt reports whether the session is expired at now.
// There is no grace window: a session exactly at its expiry is expired.
func (s Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NewSession builds a session from a token.
func NewSession(tok Token) Session {
	return Session{Token: tok.Raw, User: tok.User, ExpiresAt: tok.ExpiresAt}
}
