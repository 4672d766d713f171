package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	verifier := NewVerifier("secret")

	token, err := verifier.Sign(Identity{UserID: 42, Username: "alice"}, time.Minute)
	require.NoError(t, err)

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, identity.UserID)
	assert.Equal(t, "alice", identity.Username)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewVerifier("secret-a").Sign(Identity{UserID: 42, Username: "alice"}, time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	verifier := NewVerifier("secret")
	token, err := verifier.Sign(Identity{UserID: 42, Username: "alice"}, -time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMissingUserID(t *testing.T) {
	verifier := NewVerifier("secret")
	token, err := verifier.Sign(Identity{Username: "ghost"}, time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewVerifier("secret").Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
