package cache

// Claims holds the registered claims extracted from a verified ID token. The
// expiry is the only claim the cache itself depends on: Set uses it to bound
// the entry lifetime.
type Claims struct {
	Issuer   string `json:"iss,omitempty"`
	Subject  string `json:"sub,omitempty"`
	Audience string `json:"aud,omitempty"`
	Expiry   int64  `json:"exp,omitempty"`
	IssuedAt int64  `json:"iat,omitempty"`
}

// DecodedToken is the output of the external claims verifier: the registered
// claims plus the user profile derived from the remaining ID token claims.
// The cache stores it opaquely and never re-invokes the verifier.
type DecodedToken struct {
	Claims Claims         `json:"claims"`
	User   map[string]any `json:"user,omitempty"`
}

// Entry is a cached credential set as issued by a token exchange. The
// audience, scope and client ID fields are the source of truth used to
// reconstruct the storage key on write, and must match the key the entry is
// stored under.
type Entry struct {
	IDToken      string        `json:"id_token,omitempty"`
	AccessToken  string        `json:"access_token,omitempty"`
	ExpiresIn    int64         `json:"expires_in,omitempty"`
	DecodedToken *DecodedToken `json:"decoded_token,omitempty"`
	Audience     string        `json:"audience,omitempty"`
	Scope        string        `json:"scope,omitempty"`
	ClientID     string        `json:"client_id,omitempty"`
	RefreshToken string        `json:"refresh_token,omitempty"`
}

// WrappedEntry is the on-storage representation of an Entry. ExpiresAt is an
// absolute deadline in epoch seconds, computed once when the entry is
// written. It is never recomputed from ExpiresIn on read, so repeated reads
// cannot drift the deadline.
type WrappedEntry struct {
	Body      Entry `json:"body"`
	ExpiresAt int64 `json:"expiresAt"`
}
