package approval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signEndpointToken(t *testing.T, secret []byte, subject, role string) string {
	t.Helper()
	claims := endpointClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func authRequest(bearer string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/internal/approve", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func TestEndpointAuthorize(t *testing.T) {
	secret := []byte("endpoint-secret")
	isAdmin := func(_ context.Context, userID string) bool {
		return userID == "admin-profile"
	}
	e := NewEndpoint(nil, "svc-token", secret, isAdmin)

	t.Run("internal token acts as system reviewer", func(t *testing.T) {
		adminID, ok := e.authorize(authRequest("svc-token"))
		require.True(t, ok)
		assert.Empty(t, adminID)
	})

	t.Run("admin role token carries its subject", func(t *testing.T) {
		token := signEndpointToken(t, secret, "admin-1", "admin")
		adminID, ok := e.authorize(authRequest(token))
		require.True(t, ok)
		assert.Equal(t, "admin-1", adminID)
	})

	t.Run("user token with admin profile", func(t *testing.T) {
		token := signEndpointToken(t, secret, "admin-profile", "")
		adminID, ok := e.authorize(authRequest(token))
		require.True(t, ok)
		assert.Equal(t, "admin-profile", adminID)
	})

	t.Run("plain user token is refused", func(t *testing.T) {
		token := signEndpointToken(t, secret, "regular-user", "")
		_, ok := e.authorize(authRequest(token))
		assert.False(t, ok)
	})

	t.Run("wrong secret is refused", func(t *testing.T) {
		token := signEndpointToken(t, []byte("other"), "admin-1", "admin")
		_, ok := e.authorize(authRequest(token))
		assert.False(t, ok)
	})

	t.Run("missing header is refused", func(t *testing.T) {
		_, ok := e.authorize(authRequest(""))
		assert.False(t, ok)
	})
}
