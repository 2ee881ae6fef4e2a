package idtoken

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestDecode(t *testing.T) {
	raw := mintToken(t, jwt.MapClaims{
		"iss":   "https://auth.example.com/",
		"sub":   "user-1",
		"aud":   "client-1",
		"exp":   float64(1_700_003_600),
		"iat":   float64(1_700_000_000),
		"email": "user@example.com",
	})

	decoded, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com/", decoded.Claims.Issuer)
	assert.Equal(t, "user-1", decoded.Claims.Subject)
	assert.Equal(t, "client-1", decoded.Claims.Audience)
	assert.Equal(t, int64(1_700_003_600), decoded.Claims.Expiry)
	assert.Equal(t, int64(1_700_000_000), decoded.Claims.IssuedAt)

	// the full claim set is exposed as the user profile
	assert.Equal(t, "user@example.com", decoded.User["email"])
	assert.Equal(t, "user-1", decoded.User["sub"])
}

func TestDecode_AudienceArray(t *testing.T) {
	raw := mintToken(t, jwt.MapClaims{
		"aud": []string{"client-1", "client-2"},
	})

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "client-1", decoded.Claims.Audience)
}

func TestDecode_MissingClaims(t *testing.T) {
	raw := mintToken(t, jwt.MapClaims{})

	decoded, err := Decode(raw)
	require.NoError(t, err)

	assert.Empty(t, decoded.Claims.Issuer)
	assert.Empty(t, decoded.Claims.Subject)
	assert.Empty(t, decoded.Claims.Audience)
	assert.Zero(t, decoded.Claims.Expiry)
	assert.Zero(t, decoded.Claims.IssuedAt)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode("not-a-jwt")
	require.ErrorContains(t, err, "parsing id token")
}
