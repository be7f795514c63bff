package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateBoardToken(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.GenerateBoardToken("user-1", "board-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateBoardToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "board-1", claims.BoardID)
	assert.Equal(t, "canvas-gateway", claims.Issuer)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	other := NewJWTManager("other-secret", time.Hour)

	token, err := m.GenerateBoardToken("user-1", "board-1")
	require.NoError(t, err)

	_, err = other.ValidateBoardToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)

	token, err := m.GenerateBoardToken("user-1", "board-1")
	require.NoError(t, err)

	_, err = m.ValidateBoardToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	_, err := m.ValidateBoardToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
