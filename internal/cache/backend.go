package cache

import (
	"context"
)

// Backend is the storage capability under the cache manager: a raw mapping
// from an opaque string key to an opaque serializable value. The generic type
// T is the stored value type; backends serialize it without interpreting or
// validating its shape.
//
// Get performs a scope-superset lookup rather than an exact one: the
// requested key is matched against every stored key in this subsystem's
// namespace, and the first stored entry whose granted scope set contains the
// requested scope set is returned. Both implementations share this matching
// logic; it is the load-bearing behavior of the cache, letting a request for
// scope "read" be served by an entry granted "read write" without a network
// round trip.
//
// Expiry is not a backend concern. Backends hold values until removed or
// cleared; the manager applies the expiry policy on read.
type Backend[T any] interface {
	// Get retrieves the value for the first stored key satisfying the
	// requested key. Returns the value, whether a match was found, and any
	// error. Absence is not an error.
	Get(ctx context.Context, key string) (T, bool, error)

	// Set stores a value under the exact key string, overwriting any prior
	// value for that key.
	Set(ctx context.Context, key string, value T) error

	// Remove deletes the exact key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Clear removes this subsystem's entries. A durable backend removes only
	// keys carrying the namespace prefix, leaving co-located data untouched.
	Clear(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}
