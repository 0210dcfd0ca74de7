package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRegisterError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "profiles_email_key"}
	assert.ErrorIs(t, mapRegisterError(dup), ErrEmailTaken)
	assert.ErrorIs(t, mapRegisterError(fmt.Errorf("scan: %w", dup)), ErrEmailTaken)

	other := errors.New("connection refused")
	assert.Equal(t, other, mapRegisterError(other))
	assert.NotErrorIs(t, mapRegisterError(&pgconn.PgError{Code: "23503"}), ErrEmailTaken)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService(nil, "metatradex", []byte("test-secret"), time.Hour)

	token, err := svc.SignToken("user-123")
	require.NoError(t, err)

	userID, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	signer := NewService(nil, "metatradex", []byte("secret-a"), time.Hour)
	verifier := NewService(nil, "metatradex", []byte("secret-b"), time.Hour)

	token, err := signer.SignToken("user-123")
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongIssuer(t *testing.T) {
	signer := NewService(nil, "someone-else", []byte("test-secret"), time.Hour)
	verifier := NewService(nil, "metatradex", []byte("test-secret"), time.Hour)

	token, err := signer.SignToken("user-123")
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := NewService(nil, "metatradex", []byte("test-secret"), -time.Minute)

	token, err := svc.SignToken("user-123")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	svc := NewService(nil, "metatradex", []byte("test-secret"), time.Hour)

	_, err := svc.ParseToken("not-a-token")
	assert.Error(t, err)
}
