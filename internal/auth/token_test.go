package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/josephcall20-lang/Admissions-co-pilot/pkg/domain-errors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-signing-key")

	token, err := svc.GenerateToken("staff-7", "coordinator", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-7", claims.UserID)
	assert.Equal(t, "coordinator", claims.Role)
}

func TestTokenExpired(t *testing.T) {
	svc := NewTokenService("test-signing-key")

	token, err := svc.GenerateToken("staff-7", "coordinator", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestTokenWrongKey(t *testing.T) {
	issuerSvc := NewTokenService("key-a")
	verifierSvc := NewTokenService("key-b")

	token, err := issuerSvc.GenerateToken("staff-7", "coordinator", time.Hour)
	require.NoError(t, err)

	_, err = verifierSvc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestTokenGarbageInput(t *testing.T) {
	svc := NewTokenService("test-signing-key")
	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
