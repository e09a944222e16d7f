package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k", "v"))
	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Delete(ctx, "k", "missing"))
	_, found, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBackend_NamespacesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()
	a := b.Namespace("app-a")
	other := b.Namespace("app-b")

	require.NoError(t, a.Set(ctx, "sso_token", "a-token"))

	_, found, err := other.Get(ctx, "sso_token")
	require.NoError(t, err)
	assert.False(t, found)

	// Two views of the same namespace share entries, like two tabs of one origin.
	v, found, err := b.Namespace("app-a").Get(ctx, "sso_token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a-token", v)
}
