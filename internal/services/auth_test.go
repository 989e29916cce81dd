package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTokenVerifierRoundTrip(t *testing.T) {
	v, err := NewTokenVerifier("secret", "course-platform")
	require.NoError(t, err)
	userID := uuid.New()

	tok, err := v.IssueToken(userID, RoleAdmin, time.Minute)
	require.NoError(t, err)
	id, err := v.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, userID, id.UserID)
	require.Equal(t, RoleAdmin, id.Role)
}

func TestTokenVerifierDefaultsRoleToStudent(t *testing.T) {
	v, err := NewTokenVerifier("secret", "")
	require.NoError(t, err)
	tok, err := v.IssueToken(uuid.New(), "", time.Minute)
	require.NoError(t, err)
	id, err := v.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, RoleStudent, id.Role)
}

func TestTokenVerifierRejects(t *testing.T) {
	v, err := NewTokenVerifier("secret", "course-platform")
	require.NoError(t, err)
	other, err := NewTokenVerifier("other-secret", "course-platform")
	require.NoError(t, err)
	wrongIssuer, err := NewTokenVerifier("secret", "someone-else")
	require.NoError(t, err)

	expired, err := v.IssueToken(uuid.New(), RoleStudent, -time.Minute)
	require.NoError(t, err)
	foreign, err := other.IssueToken(uuid.New(), RoleStudent, time.Minute)
	require.NoError(t, err)
	misissued, err := wrongIssuer.IssueToken(uuid.New(), RoleStudent, time.Minute)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		Issuer:    "course-platform",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":        "",
		"expired":      expired,
		"wrong secret": foreign,
		"wrong issuer": misissued,
		"alg none":     unsigned,
		"bad subject":  badSubject,
	} {
		_, err := v.Verify(tok)
		require.True(t, errors.Is(err, ErrInvalidToken), "%s: got %v", name, err)
	}
}

func TestNewTokenVerifierRequiresSecret(t *testing.T) {
	_, err := NewTokenVerifier("  ", "")
	require.Error(t, err)
}
