package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/mmk-sso/internal/domain/auth"
	"github.com/target/mmk-sso/internal/service"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sso", "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
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

	v, found, err := s.Get(ctx, "sso_token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "sso_token", "missing"))
	_, found, err = s.Get(ctx, "sso_token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorage_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.Namespace("a").Set(ctx, "k", "a"))
	_, found, err := db.Namespace("b").Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.db")

	db, err := Open(path)
	require.NoError(t, err)
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
	require.NoError(t, db.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	store, err = service.NewSessionStore(service.SessionStoreOptions{
		Storage:  reopened.Namespace("client-1"),
		TokenKey: "sso_token",
		UserKey:  "sso_user",
	})
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, sess.User, loaded.User)
	assert.True(t, sess.ExpiresAt.Equal(loaded.ExpiresAt))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
