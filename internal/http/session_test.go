package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSessions(t *testing.T) (*RedisTokenVerifier, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisTokenVerifier(client), mr
}

func TestRedisTokenVerifier_IssueAndVerify(t *testing.T) {
	v, mr := setupTestSessions(t)
	ctx := context.Background()

	token, err := v.Issue(ctx, Principal{UserID: "u1", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)
	assert.Len(t, token, 48)
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(token)))

	p, err := v.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.True(t, p.IsAdmin())
}

func TestRedisTokenVerifier_UnknownToken(t *testing.T) {
	v, _ := setupTestSessions(t)

	_, err := v.Verify(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRedisTokenVerifier_Expired(t *testing.T) {
	v, mr := setupTestSessions(t)
	ctx := context.Background()

	token, err := v.Issue(ctx, Principal{UserID: "u1", Role: RoleUser}, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = v.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRedisTokenVerifier_StoredValues(t *testing.T) {
	v, mr := setupTestSessions(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(sessionKey("malformed"), "no-role-separator"))
	_, err := v.Verify(ctx, "malformed")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, mr.Set(sessionKey("odd-role"), "u2:superuser"))
	p, err := v.Verify(ctx, "odd-role")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, p.Role, "unknown roles get user rights")
}

func TestRedisTokenVerifier_RejectsBadUserID(t *testing.T) {
	v, _ := setupTestSessions(t)

	_, err := v.Issue(context.Background(), Principal{UserID: "a:b"}, time.Hour)
	assert.Error(t, err)
}

func TestAuthMiddleware_StoreDown(t *testing.T) {
	v, mr := setupTestSessions(t)
	mr.Close()

	reached := false
	h := AuthMiddleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, reached)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)

			token, ok := bearerToken(req)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}
