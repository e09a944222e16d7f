package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/target/mmk-sso/internal/domain/auth"
	apperrors "github.com/target/mmk-sso/internal/errors"
	"github.com/target/mmk-sso/internal/ports"
)

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Storage  ports.Storage
	TokenKey string
	UserKey  string
	Logger   *slog.Logger
}

// SessionStore persists a session as two entries of a keyed storage area:
// the serialized token (with its expiry) and the serialized user identity.
type SessionStore struct {
	storage  ports.Storage
	tokenKey string
	userKey  string
	logger   *slog.Logger
}

// tokenRecord is the value stored under the token key.
type tokenRecord struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(opts SessionStoreOptions) (*SessionStore, error) {
	if opts.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if opts.TokenKey == "" || opts.UserKey == "" {
		return nil, apperrors.Validation("token and user storage keys are required")
	}
	if opts.TokenKey == opts.UserKey {
		return nil, apperrors.Validation("token and user storage keys must differ")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		storage:  opts.Storage,
		tokenKey: opts.TokenKey,
		userKey:  opts.UserKey,
		logger:   logger,
	}, nil
}

// Save persists a complete session. Partial sessions are rejected.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if !sess.Complete() {
		return apperrors.Validation("refusing to persist a partial session")
	}

	userData, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	tokenData, err := json.Marshal(tokenRecord{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	// The token entry is written last: a crash in between leaves a user entry
	// without a token, which Load treats as corruption and clears.
	if err := s.storage.Set(ctx, s.userKey, string(userData)); err != nil {
		return fmt.Errorf("save user entry: %w", err)
	}
	if err := s.storage.Set(ctx, s.tokenKey, string(tokenData)); err != nil {
		return fmt.Errorf("save token entry: %w", err)
	}
	return nil
}

// Load returns the persisted session, or nil when none is stored.
//
// Partial or unparsable records are cleared and reported as absent. Expiry is
// not judged here.
func (s *SessionStore) Load(ctx context.Context) (*domainauth.Session, error) {
	tokenData, tokenFound, err := s.storage.Get(ctx, s.tokenKey)
	if err != nil {
		return nil, fmt.Errorf("load token entry: %w", err)
	}
	userData, userFound, err := s.storage.Get(ctx, s.userKey)
	if err != nil {
		return nil, fmt.Errorf("load user entry: %w", err)
	}
	if !tokenFound && !userFound {
		return nil, nil
	}

	sess, corruptErr := decodeRecord(tokenData, tokenFound, userData, userFound)
	if corruptErr != nil {
		s.logger.WarnContext(ctx, "clearing corrupt session record",
			"error", corruptErr,
			"code", apperrors.GetCode(corruptErr))
		if clearErr := s.Clear(ctx); clearErr != nil {
			return nil, errors.Join(corruptErr, clearErr)
		}
		return nil, nil
	}
	return sess, nil
}

// Clear removes both entries.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.tokenKey, s.userKey); err != nil {
		return fmt.Errorf("clear session entries: %w", err)
	}
	return nil
}

func decodeRecord(tokenData string, tokenFound bool, userData string, userFound bool) (*domainauth.Session, error) {
	if !tokenFound {
		return nil, apperrors.StoreCorruption("token entry missing", nil)
	}
	if !userFound {
		return nil, apperrors.StoreCorruption("user entry missing", nil)
	}

	var rec tokenRecord
	if err := json.Unmarshal([]byte(tokenData), &rec); err != nil {
		return nil, apperrors.StoreCorruption("unmarshal token entry", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, rec.ExpiresAt)
	if err != nil {
		return nil, apperrors.StoreCorruption("parse token expiry", err)
	}

	var user domainauth.UserIdentity
	if err := json.Unmarshal([]byte(userData), &user); err != nil {
		return nil, apperrors.StoreCorruption("unmarshal user entry", err)
	}

	sess := &domainauth.Session{Token: rec.Token, User: user, ExpiresAt: expiresAt}
	if !sess.Complete() {
		return nil, apperrors.StoreCorruption("session record incomplete", nil)
	}
	return sess, nil
}
