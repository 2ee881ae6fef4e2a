package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend records calls and returns canned results.
type stubBackend struct {
	value string
	found bool
	err   error

	calls []string
}

func (s *stubBackend) Get(ctx context.Context, key string) (string, bool, error) {
	s.calls = append(s.calls, "get:"+key)
	return s.value, s.found, s.err
}

func (s *stubBackend) Set(ctx context.Context, key, value string) error {
	s.calls = append(s.calls, "set:"+key)
	return s.err
}

func (s *stubBackend) Remove(ctx context.Context, key string) error {
	s.calls = append(s.calls, "remove:"+key)
	return s.err
}

func (s *stubBackend) Clear(ctx context.Context) error {
	s.calls = append(s.calls, "clear")
	return s.err
}

func (s *stubBackend) Close() error {
	s.calls = append(s.calls, "close")
	return s.err
}

func TestInstrumented_Delegates(t *testing.T) {
	ctx := context.Background()
	stub := &stubBackend{value: "value-1", found: true}
	backend := NewInstrumented[string](stub, "memory")

	got, found, err := backend.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value-1", got)

	require.NoError(t, backend.Set(ctx, "key-1", "value-2"))
	require.NoError(t, backend.Remove(ctx, "key-1"))
	require.NoError(t, backend.Clear(ctx))
	require.NoError(t, backend.Close())

	assert.Equal(t, []string{"get:key-1", "set:key-1", "remove:key-1", "clear", "close"}, stub.calls)
}

func TestInstrumented_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("backend unavailable")
	stub := &stubBackend{err: wantErr}
	backend := NewInstrumented[string](stub, "valkey")

	_, _, err := backend.Get(ctx, "key-1")
	assert.ErrorIs(t, err, wantErr)

	assert.ErrorIs(t, backend.Set(ctx, "key-1", "v"), wantErr)
	assert.ErrorIs(t, backend.Remove(ctx, "key-1"), wantErr)
	assert.ErrorIs(t, backend.Clear(ctx), wantErr)
	assert.ErrorIs(t, backend.Close(), wantErr)
}
