package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// Valkey is the durable backend: entries persist in a Valkey server and are
// shared by every process pointed at it. One record is stored per exact key
// string, with the value JSON-serialized.
//
// No server-side TTL is applied: the manager evaluates expiry lazily on read,
// and an expired entry may be rewritten as a refresh-token remnant that must
// outlive the original deadline.
type Valkey[T any] struct {
	client valkey.Client
}

// NewValkey creates a Valkey-backed backend over an established client.
func NewValkey[T any](client valkey.Client) (*Valkey[T], error) {
	return &Valkey[T]{client: client}, nil
}

// Get enumerates the stored keys in this subsystem's namespace and returns
// the value of the first that satisfies the requested key. SCAN order is
// server-defined: with multiple qualifying entries under overlapping scopes,
// any of them may win.
func (d *Valkey[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T

	want := ParseKey(key)

	stored, err := d.scanKeys(ctx, want.Prefix+keySeparator+"*")
	if err != nil {
		return zero, false, fmt.Errorf("enumerating cache keys: %w", err)
	}

	matched, ok := matchStoredKey(stored, want)
	if !ok {
		return zero, false, nil
	}

	result := d.client.Do(ctx, d.client.B().Get().Key(matched).Build())
	if err := result.Error(); err != nil {
		// Removed between the scan and the read: absence, not failure.
		if valkey.IsValkeyNil(err) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("failed to get cached value: %w", err)
	}

	val, err := result.ToString()
	if err != nil {
		return zero, false, fmt.Errorf("failed to read cached value: %w", err)
	}

	var value T
	if err := json.Unmarshal([]byte(val), &value); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cached value for key %q: %w", matched, err)
	}

	return value, true, nil
}

// Set stores the JSON-serialized value under the exact key, overwriting any
// prior value.
func (d *Valkey[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cached value: %w", err)
	}

	cmd := d.client.B().Set().Key(key).Value(string(data)).Build()
	if err := d.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to set cached value: %w", err)
	}
	return nil
}

// Remove deletes the exact key.
func (d *Valkey[T]) Remove(ctx context.Context, key string) error {
	cmd := d.client.B().Del().Key(key).Build()
	if err := d.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to remove cached value: %w", err)
	}
	return nil
}

// Clear removes all keys carrying this subsystem's namespace prefix,
// leaving unrelated co-located data untouched.
func (d *Valkey[T]) Clear(ctx context.Context) error {
	stored, err := d.scanKeys(ctx, DefaultKeyPrefix+keySeparator+"*")
	if err != nil {
		return fmt.Errorf("enumerating cache keys: %w", err)
	}

	if len(stored) == 0 {
		return nil
	}

	cmd := d.client.B().Del().Key(stored...).Build()
	if err := d.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to clear cached values: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (d *Valkey[T]) Close() error {
	d.client.Close()
	return nil
}

// scanKeys collects every key matching the pattern via cursor iteration.
func (d *Valkey[T]) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string

	var cursor uint64
	for {
		cmd := d.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		entry, err := d.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, err
		}

		keys = append(keys, entry.Elements...)

		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
