// Package redis keeps the token revocation list in Redis so every instance
// sees the same revocations.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/medisupply-security/internal/model"
)

const keyPrefix = "revoked:jti:"

// redisAPI is the subset of redis.UniversalClient used here.
type redisAPI interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

var (
	_ model.RevocationList = (*RevocationList)(nil)
	_ model.Pinger         = (*RevocationList)(nil)
)

// RevocationList stores one key per revoked jti, expiring with the token.
type RevocationList struct {
	client redisAPI
	now    func() time.Time
}

// NewClient parses a redis:// URL into a client. Socket I/O honours context
// deadlines, so callers bound every command with their own timeout.
func NewClient(url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.ContextTimeoutEnabled = true
	return redis.NewClient(opts), nil
}

// NewRevocationList constructs a Redis-backed revocation list.
func NewRevocationList(client redis.UniversalClient) *RevocationList {
	return newRevocationList(client)
}

func newRevocationList(client redisAPI) *RevocationList {
	return &RevocationList{client: client, now: time.Now}
}

// Revoke marks jti as revoked until the token's own expiry.
func (l *RevocationList) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("persist revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has a live revocation entry.
func (l *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("load revocation: %w", err)
	}
	return n > 0, nil
}

// Ping checks connectivity.
func (l *RevocationList) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
