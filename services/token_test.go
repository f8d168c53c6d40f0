package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)

	signed, err := tokens.Generate(42, "ana")
	require.NoError(t, err)

	userID, username, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
	assert.Equal(t, "ana", username)
}

func TestTokenManager_Rejects(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)

	otherKey, err := NewTokenManager("other", time.Hour).Generate(1, "ana")
	require.NoError(t, err)
	expired, err := NewTokenManager("secret", -time.Minute).Generate(1, "ana")
	require.NoError(t, err)
	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{Username: "ana"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, tokenClaims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":        "not-a-token",
		"wrong secret":   otherKey,
		"expired":        expired,
		"missing user":   noUser,
		"none algorithm": unsigned,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := tokens.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
