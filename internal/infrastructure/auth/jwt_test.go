package auth

import (
	"testing"
	"time"

	"github.com/knjigovodja/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     "test-secret",
		Issuer:     "knjigovodja",
		Expiration: expiration,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(time.Hour)

	token, err := svc.GenerateToken("ana", "Ana Anić")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.ApproverID)
	assert.Equal(t, "Ana Anić", claims.Name)
	assert.Equal(t, "knjigovodja", claims.Issuer)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, err := svc.GenerateToken("ana", "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := newTestService(time.Hour).GenerateToken("ana", "")
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "another-secret", Expiration: time.Hour})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateGarbageToken(t *testing.T) {
	_, err := newTestService(time.Hour).ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenWithoutApprover(t *testing.T) {
	svc := newTestService(time.Hour)

	token, err := svc.GenerateToken("", "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrMissingApprover)
}
