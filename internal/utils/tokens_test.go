package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(0)
	require.NoError(t, err)
	b, err := NewRefreshToken(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	tok, exp, err := NewAccessToken(secret, 42, 15*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, time.Second)

	claims, err := ParseAccessToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)

	_, err = ParseAccessToken([]byte("other"), tok)
	assert.Error(t, err)
}

func TestParseAccessToken_Expired(t *testing.T) {
	secret := []byte("s3cret")
	tok, _, err := NewAccessToken(secret, 1, -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, tok)
	assert.Error(t, err)
}

func TestParseAccessToken_RejectsNone(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken([]byte("s3cret"), tok)
	assert.Error(t, err)
}
