package cache

import (
	"context"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
)

// Memory is the ephemeral backend: an in-process store using otter, living
// only as long as the process. No TTL is configured on the underlying cache;
// entry expiry is owned entirely by the manager.
type Memory[T any] struct {
	cache   *otter.Cache[string, T]
	counter *stats.Counter
}

// NewMemory creates an in-process backend bounded to maxSize entries.
func NewMemory[T any](maxSize int) (*Memory[T], error) {
	counter := stats.NewCounter()
	cache := otter.Must(&otter.Options[string, T]{
		MaximumSize:   maxSize,
		StatsRecorder: counter,
	})

	return &Memory[T]{
		cache:   cache,
		counter: counter,
	}, nil
}

// Get returns the value stored under the first key satisfying the requested
// key. Iteration order over the underlying map is not stable: with multiple
// qualifying entries under overlapping scopes, any of them may win.
func (m *Memory[T]) Get(ctx context.Context, key string) (T, bool, error) {
	want := ParseKey(key)

	for stored := range m.cache.All() {
		if !want.Satisfies(ParseKey(stored)) {
			continue
		}
		if entry, ok := m.cache.GetEntry(stored); ok {
			return entry.Value, true, nil
		}
	}

	var zero T
	return zero, false, nil
}

// Set stores a value under the exact key.
func (m *Memory[T]) Set(ctx context.Context, key string, value T) error {
	m.cache.Set(key, value)
	return nil
}

// Remove deletes the exact key.
func (m *Memory[T]) Remove(ctx context.Context, key string) error {
	m.cache.Invalidate(key)
	return nil
}

// Clear drops the entire mapping. The map is private to this subsystem, so
// there is no shared-namespace concern as with the durable backend.
func (m *Memory[T]) Clear(ctx context.Context) error {
	m.cache.InvalidateAll()
	return nil
}

// Close releases any resources held by the cache.
func (m *Memory[T]) Close() error {
	return nil
}
