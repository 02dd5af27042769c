package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct {
	Email string `json:"email"`
	Level int    `json:"level"`
	jwt.RegisteredClaims
}

func TestSignAndVerify(t *testing.T) {
	m := NewManager("secret", "cesizen", time.Hour)

	signed, err := m.Sign(&testClaims{Email: "a@b.com", Level: 80, RegisteredClaims: m.RegisteredClaims("7")})
	require.NoError(t, err)

	var parsed testClaims
	require.NoError(t, m.Verify(signed, &parsed))
	assert.Equal(t, "a@b.com", parsed.Email)
	assert.Equal(t, 80, parsed.Level)
	assert.Equal(t, "7", parsed.Subject)
	assert.Equal(t, "cesizen", parsed.Issuer)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := NewManager("secret", "cesizen", time.Hour)
	verifier := NewManager("other", "cesizen", time.Hour)

	signed, err := signer.Sign(&testClaims{RegisteredClaims: signer.RegisteredClaims("1")})
	require.NoError(t, err)

	err = verifier.Verify(signed, &testClaims{})
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewManager("secret", "cesizen", time.Minute)
	m.now = func() time.Time { return time.Now().UTC().Add(-2 * time.Hour) }

	signed, err := m.Sign(&testClaims{RegisteredClaims: m.RegisteredClaims("1")})
	require.NoError(t, err)

	err = m.Verify(signed, &testClaims{})
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerifyRejectsOtherIssuer(t *testing.T) {
	signer := NewManager("secret", "someone-else", time.Hour)
	verifier := NewManager("secret", "cesizen", time.Hour)

	signed, err := signer.Sign(&testClaims{RegisteredClaims: signer.RegisteredClaims("1")})
	require.NoError(t, err)

	assert.Error(t, verifier.Verify(signed, &testClaims{}))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewManager("secret", "", time.Hour)
	assert.True(t, errors.Is(m.Verify("not-a-token", &testClaims{}), ErrInvalidToken))
}
