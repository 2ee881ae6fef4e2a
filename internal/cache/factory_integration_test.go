//go:build integration

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidebrook/credcache/internal/config"
	"github.com/tidebrook/credcache/internal/testhelpers"
)

func TestIntegrationNewFromConfig_Valkey(t *testing.T) {
	valkeyCfg := testhelpers.RunValkeyContainer(t)

	backend, err := NewFromConfig[WrappedEntry](config.CacheConfig{
		Type:   "valkey",
		Valkey: valkeyCfg,
	})
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	key := NewKey("client-1", "audience-1", "read").String()

	wrapped := WrappedEntry{
		Body:      Entry{AccessToken: "at-1", RefreshToken: "rt-1"},
		ExpiresAt: 1_700_003_600,
	}

	require.NoError(t, backend.Set(ctx, key, wrapped))

	got, found, err := backend.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, wrapped, got)
}
