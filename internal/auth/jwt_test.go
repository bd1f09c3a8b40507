package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret")
	token, err := svc.SignAccessToken("user-42")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
}

func TestVerify_wrongSecret(t *testing.T) {
	token, err := NewTokenService("a").SignAccessToken("user-42")
	require.NoError(t, err)

	_, err = NewTokenService("b").VerifyToken(token)
	assert.Error(t, err)
}

func TestSubjectFromToken(t *testing.T) {
	token, err := NewTokenService("whatever").SignAccessToken("user-7")
	require.NoError(t, err)

	sub, err := SubjectFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", sub)

	sub, err = SubjectFromToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", sub, "Bearer prefix must be tolerated")
}

func TestSubjectFromToken_rejects(t *testing.T) {
	_, err := SubjectFromToken("")
	assert.ErrorIs(t, err, ErrNoSubject)

	_, err = SubjectFromToken("not-a-jwt")
	assert.Error(t, err)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{})
	signed, err := noSub.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = SubjectFromToken(signed)
	assert.ErrorIs(t, err, ErrNoSubject)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err = expired.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = SubjectFromToken(signed)
	assert.Error(t, err)
}
