package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenPair_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, 24*time.Hour)
	id := uuid.New()

	pair, err := m.GenerateTokenPair(id, "ana@example.com")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)

	claims, err = m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
}

func TestValidate_WrongTokenType(t *testing.T) {
	m := NewJWTManager("secret", time.Hour, 24*time.Hour)
	pair, err := m.GenerateTokenPair(uuid.New(), "")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	m := NewJWTManager("secret", time.Minute, time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	pair, err := m.GenerateTokenPair(uuid.New(), "")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	pair, err := NewJWTManager("one", time.Hour, time.Hour).GenerateTokenPair(uuid.New(), "")
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Hour, time.Hour).ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = HashPassword(strings.Repeat("a", 80))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword("correct horse", hash))
	assert.ErrorIs(t, VerifyPassword("wrong horse", hash), ErrPasswordMismatch)
}
