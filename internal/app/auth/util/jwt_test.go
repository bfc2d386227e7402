package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)

	token, err := manager.GenerateAccessToken("user-1", "admin@example.com", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestJWTManager_ValidateToken_WrongSecret(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)
	other := NewJWTManager("other-secret", time.Hour)

	token, err := manager.GenerateAccessToken("user-1", "admin@example.com", "admin")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_ValidateToken_Expired(t *testing.T) {
	manager := NewJWTManager("secret", -time.Minute)

	token, err := manager.GenerateAccessToken("user-1", "admin@example.com", "admin")
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_ValidateToken_Garbage(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)

	_, err := manager.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
