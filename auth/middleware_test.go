package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedEcho(t *testing.T, gotUserID *int, called *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		id, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		*gotUserID = id
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTMiddleware_ValidAccessTokenPasses(t *testing.T) {
	cfg := testAuthConfig()
	s := NewAuthService(nil, cfg)
	token, _, err := s.generateSpecificToken(42, tokenTypeAccess, time.Hour)
	require.NoError(t, err)

	var userID int
	var called bool
	handler := JWTMiddleware(&cfg)(protectedEcho(t, &userID, &called))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 42, userID)
}

func TestJWTMiddleware_MissingHeaderIs401(t *testing.T) {
	cfg := testAuthConfig()
	var userID int
	var called bool
	handler := JWTMiddleware(&cfg)(protectedEcho(t, &userID, &called))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_MalformedHeaderIs401(t *testing.T) {
	cfg := testAuthConfig()
	var userID int
	var called bool
	handler := JWTMiddleware(&cfg)(protectedEcho(t, &userID, &called))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_RefreshTokenIsRejected(t *testing.T) {
	cfg := testAuthConfig()
	s := NewAuthService(nil, cfg)
	refresh, _, err := s.generateSpecificToken(42, tokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	var userID int
	var called bool
	handler := JWTMiddleware(&cfg)(protectedEcho(t, &userID, &called))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware_ExpiredTokenIsRejected(t *testing.T) {
	cfg := testAuthConfig()
	s := NewAuthService(nil, cfg)
	expired, _, err := s.generateSpecificToken(42, tokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	var userID int
	var called bool
	handler := JWTMiddleware(&cfg)(protectedEcho(t, &userID, &called))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
