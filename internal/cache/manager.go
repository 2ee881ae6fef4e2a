package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager owns the cache policy: key derivation, expiry evaluation and
// refresh-token preservation. The backend underneath is a dumb key/value
// surface with no knowledge of either.
//
// Operations are internally sequential but take no locks across concurrent
// calls. Two concurrent Gets observing the same about-to-expire entry may
// both truncate it to the refresh-token remnant and both write it back; the
// write-back content is identical, so the race is redundant rather than
// harmful. Concurrent Sets for one key are last-write-wins.
type Manager struct {
	backend Backend[WrappedEntry]
	now     func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock replaces the manager's time source. Tests use this to step
// simulated time over entry deadlines.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager over the given backend.
func NewManager(backend Backend[WrappedEntry], opts ...ManagerOption) *Manager {
	m := &Manager{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached entry for the key, applying the expiry policy.
//
// A positive leeway treats entries as expired that many seconds ahead of
// their true deadline, so a caller about to make a request can refresh
// proactively instead of racing token expiry.
//
// An expired entry that still carries a refresh token is truncated in place:
// the stored body is rewritten to hold only the refresh token (access token,
// ID token and claims discarded) and that remnant is returned. The refresh
// token routinely outlives the access token; discarding it here would force
// a full re-authentication where a silent refresh suffices. An expired entry
// without a refresh token is removed, and absence is returned.
//
// Absence is (nil, nil), never an error.
func (m *Manager) Get(ctx context.Context, key Key, leeway time.Duration) (*Entry, error) {
	raw := key.String()

	wrapped, found, err := m.backend.Get(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("cache read for key %q: %w", raw, err)
	}
	if !found {
		return nil, nil
	}

	nowSeconds := m.now().Unix()
	if wrapped.ExpiresAt-int64(leeway.Seconds()) < nowSeconds {
		if wrapped.Body.RefreshToken == "" {
			if err := m.backend.Remove(ctx, raw); err != nil {
				return nil, fmt.Errorf("removing expired entry for key %q: %w", raw, err)
			}

			log.Debug().Str("key", raw).Msg("expired entry removed")
			return nil, nil
		}

		wrapped.Body = Entry{RefreshToken: wrapped.Body.RefreshToken}
		if err := m.backend.Set(ctx, raw, wrapped); err != nil {
			return nil, fmt.Errorf("storing refresh token remnant for key %q: %w", raw, err)
		}

		log.Debug().Str("key", raw).Msg("expired entry reduced to refresh token")
		return &wrapped.Body, nil
	}

	return &wrapped.Body, nil
}

// Set persists an entry under the key derived from its own client ID,
// audience and scope, overwriting any prior value for that exact key.
//
// The absolute deadline is computed once, here: the earlier of now plus the
// issued lifetime and the ID token's exp claim. The tighter of the two stated
// lifetimes always governs.
func (m *Manager) Set(ctx context.Context, entry Entry) error {
	key := Key{
		Prefix:   DefaultKeyPrefix,
		ClientID: entry.ClientID,
		Audience: entry.Audience,
		Scope:    entry.Scope,
	}

	expiresAt := m.now().Unix() + entry.ExpiresIn
	if entry.DecodedToken != nil {
		if exp := entry.DecodedToken.Claims.Expiry; exp > 0 && exp < expiresAt {
			expiresAt = exp
		}
	}

	wrapped := WrappedEntry{
		Body:      entry,
		ExpiresAt: expiresAt,
	}

	raw := key.String()
	if err := m.backend.Set(ctx, raw, wrapped); err != nil {
		return fmt.Errorf("cache write for key %q: %w", raw, err)
	}

	log.Debug().Str("key", raw).Int64("expires_at", expiresAt).Msg("entry cached")
	return nil
}

// Clear removes this subsystem's entries from the backend.
func (m *Manager) Clear(ctx context.Context) error {
	return m.backend.Clear(ctx)
}

// Close releases the backend.
func (m *Manager) Close() error {
	return m.backend.Close()
}
