package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/mmk-sso/internal/domain/auth"
	"github.com/target/mmk-sso/internal/service"
	"github.com/target/mmk-sso/internal/testutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	sqlDB := testutil.SetupEphemeralSchemaDB(t)
	db, err := New(context.Background(), sqlDB)
	require.NoError(t, err)
	return db
}

func TestStorage_SetGetOverwriteDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t).Namespace("client-1")

	_, found, err := s.Get(ctx, "sso_token")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "sso_token", "v1"))
	require.NoError(t, s.Set(ctx, "sso_token", "v2"))
	require.NoError(t, s.Set(ctx, "sso_user", "u"))

	v, found, err := s.Get(ctx, "sso_token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "sso_token", "sso_user", "missing"))
	for _, k := range []string{"sso_token", "sso_user"} {
		_, found, err = s.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, found, k)
	}
}

func TestStorage_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.Namespace("a").Set(ctx, "k", "a"))
	_, found, err := db.Namespace("b").Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorage_BacksSessionStore(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	store, err := service.NewSessionStore(service.SessionStoreOptions{
		Storage:  db.Namespace("client-1"),
		TokenKey: "sso_token",
		UserKey:  "sso_user",
	})
	require.NoError(t, err)

	sess := domainauth.Session{
		Token:     "opaque",
		User:      domainauth.UserIdentity{ID: "1", DisplayName: "A", Email: "a@x.com"},
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, sess.User, loaded.User)

	require.NoError(t, store.Clear(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	sqlDB := testutil.SetupEphemeralSchemaDB(t)
	require.NoError(t, EnsureSchema(context.Background(), sqlDB))
	require.NoError(t, EnsureSchema(context.Background(), sqlDB))
}

func TestNew_RequiresDB(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)
}

func TestMapError(t *testing.T) {
	missing := mapError("get", &pgconn.PgError{Code: pgerrcode.UndefinedTable})
	assert.ErrorIs(t, missing, ErrSchemaMissing)

	lost := mapError("set", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgerrcode.ConnectionFailure}))
	assert.Contains(t, lost.Error(), "connection lost")
	assert.NotErrorIs(t, lost, ErrSchemaMissing)

	plain := mapError("delete", errors.New("boom"))
	assert.EqualError(t, plain, "postgres delete: boom")
}

func TestIsConcurrentCreate(t *testing.T) {
	assert.True(t, isConcurrentCreate(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.True(t, isConcurrentCreate(&pgconn.PgError{Code: pgerrcode.DuplicateTable}))
	assert.False(t, isConcurrentCreate(&pgconn.PgError{Code: pgerrcode.SyntaxError}))
	assert.False(t, isConcurrentCreate(errors.New("other")))
}
