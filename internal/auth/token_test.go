package auth

import (
	"testing"
	"time"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(ttl time.Duration) *TokenService {
	return NewTokenService(config.AuthConfig{
		SigningKey: "test-signing-key",
		Issuer:     "citizenly-registry-test",
		TokenTTL:   ttl,
	})
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := newTestTokenService(time.Hour)
	userID := uuid.NewString()

	token, expiresAt, err := svc.GenerateAccessToken(userID, "admin@barangay.gov.ph", "barangay_admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "admin@barangay.gov.ph", claims.Email)
	assert.Equal(t, "barangay_admin", claims.RoleName)
	assert.Equal(t, "citizenly-registry-test", claims.Issuer)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newTestTokenService(time.Hour)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newTestTokenService(-time.Hour)

	token, _, err := svc.GenerateAccessToken(uuid.NewString(), "admin@barangay.gov.ph", "barangay_admin")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateToken_WrongKey(t *testing.T) {
	issuing := newTestTokenService(time.Hour)
	token, _, err := issuing.GenerateAccessToken(uuid.NewString(), "admin@barangay.gov.ph", "barangay_admin")
	require.NoError(t, err)

	validating := NewTokenService(config.AuthConfig{
		SigningKey: "different-key",
		Issuer:     "citizenly-registry-test",
		TokenTTL:   time.Hour,
	})
	_, err = validating.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Str0ngPassword!")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NoError(t, VerifyPassword(hash, "Str0ngPassword!"))

	err = VerifyPassword(hash, "wrong-password")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}
