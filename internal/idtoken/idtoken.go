// Package idtoken extracts claims and the derived user profile from an ID
// token. It parses only: signature verification belongs to the authorization
// flow that issued the token, and the cache never re-validates what it
// stores.
package idtoken

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/tidebrook/credcache/internal/cache"
)

// Decode parses an ID token and returns its registered claims alongside the
// full claim set as the user profile. The exp claim is the input the cache
// uses to bound entry lifetimes at write time.
func Decode(raw string) (*cache.DecodedToken, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parsing id token: %w", err)
	}

	decoded := &cache.DecodedToken{
		Claims: cache.Claims{
			Expiry:   numericClaim(claims, "exp"),
			IssuedAt: numericClaim(claims, "iat"),
		},
		User: map[string]any(claims),
	}

	if iss, ok := claims["iss"].(string); ok {
		decoded.Claims.Issuer = iss
	}
	if sub, ok := claims["sub"].(string); ok {
		decoded.Claims.Subject = sub
	}
	decoded.Claims.Audience = audienceClaim(claims)

	return decoded, nil
}

// numericClaim reads an epoch-seconds claim, tolerating the numeric types
// JSON decoding may produce. Absent or non-numeric claims yield zero.
func numericClaim(claims jwt.MapClaims, name string) int64 {
	switch v := claims[name].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

// audienceClaim reads the aud claim, which may be a single string or an
// array. An array yields its first element.
func audienceClaim(claims jwt.MapClaims) string {
	switch v := claims["aud"].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
