package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()

	backend, err := NewMemory[string](10)
	require.NoError(t, err)
	defer backend.Close()

	key := NewKey("client-1", "audience-1", "read").String()
	require.NoError(t, backend.Set(ctx, key, "value-1"))

	got, found, err := backend.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value-1", got)
}

func TestMemoryGet_NotFound(t *testing.T) {
	ctx := context.Background()

	backend, err := NewMemory[string](10)
	require.NoError(t, err)
	defer backend.Close()

	got, found, err := backend.Get(ctx, NewKey("client-1", "audience-1", "read").String())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestMemoryGet_ScopeSuperset(t *testing.T) {
	ctx := context.Background()

	backend, err := NewMemory[string](10)
	require.NoError(t, err)
	defer backend.Close()

	stored := NewKey("client-1", "audience-1", "read write").String()
	require.NoError(t, backend.Set(ctx, stored, "value-1"))

	got, found, err := backend.Get(ctx, NewKey("client-1", "audience-1", "read").String())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value-1", got)

	_, found, err = backend.Get(ctx, NewKey("client-1", "audience-1", "read admin").String())
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = backend.Get(ctx, NewKey("client-2", "audience-1", "read").String())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryRemove(t *testing.T) {
	ctx := context.Background()

	backend, err := NewMemory[string](10)
	require.NoError(t, err)
	defer backend.Close()

	key := NewKey("client-1", "audience-1", "read").String()
	require.NoError(t, backend.Set(ctx, key, "value-1"))
	require.NoError(t, backend.Remove(ctx, key))

	_, found, err := backend.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()

	backend, err := NewMemory[string](10)
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Set(ctx, NewKey("client-1", "audience-1", "read").String(), "a"))
	require.NoError(t, backend.Set(ctx, NewKey("client-2", "audience-2", "write").String(), "b"))

	require.NoError(t, backend.Clear(ctx))

	_, found, err := backend.Get(ctx, NewKey("client-1", "audience-1", "read").String())
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = backend.Get(ctx, NewKey("client-2", "audience-2", "write").String())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemorySet_Overwrite(t *testing.T) {
	ctx := context.Background()

	backend, err := NewMemory[string](10)
	require.NoError(t, err)
	defer backend.Close()

	key := NewKey("client-1", "audience-1", "read").String()
	require.NoError(t, backend.Set(ctx, key, "old"))
	require.NoError(t, backend.Set(ctx, key, "new"))

	got, found, err := backend.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "new", got)
}
