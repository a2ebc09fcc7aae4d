package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultSessionTTL = 7 * 24 * time.Hour

// RedisTokenVerifier looks sessions up in Redis under session:<token>. The
// value is "<userID>:<role>".
type RedisTokenVerifier struct {
	client *redis.Client
}

func NewRedisTokenVerifier(client *redis.Client) *RedisTokenVerifier {
	return &RedisTokenVerifier{client: client}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (v *RedisTokenVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	val, err := v.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session failed: %w", err)
	}

	userID, role, ok := strings.Cut(val, ":")
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}
	if role != RoleAdmin {
		role = RoleUser
	}
	return &Principal{UserID: userID, Role: role}, nil
}

// Issue stores a new session for p and returns its token.
func (v *RedisTokenVerifier) Issue(ctx context.Context, p Principal, ttl time.Duration) (string, error) {
	if p.UserID == "" || strings.Contains(p.UserID, ":") {
		return "", fmt.Errorf("invalid user id %q", p.UserID)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token failed: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := v.client.Set(ctx, sessionKey(token), p.UserID+":"+p.Role, ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set session failed: %w", err)
	}
	return token, nil
}
