package cache

import (
	"slices"
	"strings"
)

// DefaultKeyPrefix namespaces this subsystem's records among co-located data
// in a shared store. Clear operations on a durable backend only touch keys
// carrying this prefix.
const DefaultKeyPrefix = "@@credcache@@"

// keySeparator joins the key components. Components are stored verbatim: a
// component containing the separator will not round-trip. See ParseKey.
const keySeparator = "::"

// Key identifies a cached credential set by the triple of client, audience
// and scope. Keys are value types, constructed fresh per cache operation and
// never mutated.
type Key struct {
	Prefix   string
	ClientID string
	Audience string
	Scope    string
}

// NewKey constructs a Key with the default prefix. Empty components are
// legal; no validation is performed.
func NewKey(clientID, audience, scope string) Key {
	return Key{
		Prefix:   DefaultKeyPrefix,
		ClientID: clientID,
		Audience: audience,
		Scope:    scope,
	}
}

// String serializes the key as prefix::client_id::audience::scope. The scope
// string is preserved verbatim, including token order.
func (k Key) String() string {
	return strings.Join(
		[]string{k.Prefix, k.ClientID, k.Audience, k.Scope},
		keySeparator,
	)
}

// ParseKey is the inverse of String. It is deliberately permissive: a key
// with fewer than four components yields a Key with the remaining fields
// empty, and components past the fourth are ignored. Strictness here would
// reject keys the encode side is happy to produce.
func ParseKey(raw string) Key {
	parts := strings.Split(raw, keySeparator)

	var k Key
	for i, part := range parts {
		switch i {
		case 0:
			k.Prefix = part
		case 1:
			k.ClientID = part
		case 2:
			k.Audience = part
		case 3:
			k.Scope = part
		}
	}

	return k
}

// Satisfies reports whether a credential stored under candidate can serve a
// request for k. The prefix, client ID and audience must match exactly; the
// candidate's scope set must contain every token of the requested scope set.
// Set containment, not equality: an entry granted "read write" serves a
// request for "read", but not one for "read write admin".
func (k Key) Satisfies(candidate Key) bool {
	return candidate.Prefix == k.Prefix &&
		candidate.ClientID == k.ClientID &&
		candidate.Audience == k.Audience &&
		scopeIncludes(candidate.Scope, k.Scope)
}

// scopeIncludes reports whether the granted scope string contains every
// whitespace-delimited token of the requested scope string, in any order.
func scopeIncludes(granted, requested string) bool {
	have := strings.Fields(granted)
	for _, want := range strings.Fields(requested) {
		if !slices.Contains(have, want) {
			return false
		}
	}
	return true
}

// matchStoredKey scans raw stored keys for the first that satisfies the
// requested key. The iteration order of the supplied slice is the backend's
// enumeration order: when several stored entries with overlapping scopes
// qualify, the winner is backend-defined and not guaranteed stable.
func matchStoredKey(stored []string, want Key) (string, bool) {
	for _, raw := range stored {
		if want.Satisfies(ParseKey(raw)) {
			return raw, true
		}
	}
	return "", false
}
