package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, CheckPassword("secret123", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestTokenRoundtrip(t *testing.T) {
	token, err := GenerateToken("secret", 42, "0811111111", "CUSTOMER", time.Hour)
	require.NoError(t, err)

	session, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), session.UserID)
	assert.Equal(t, "0811111111", session.Phone)
	assert.Equal(t, "CUSTOMER", session.Role)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", 42, "0811111111", "CUSTOMER", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	token, err := GenerateToken("secret", 42, "0811111111", "CUSTOMER", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	_, err := ParseToken("secret", "not.a.token")
	assert.Error(t, err)
}
