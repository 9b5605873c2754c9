package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "auth:revoked:"

// RevocationRegistry keeps revoked access token ids as redis keys
// Every key lives exactly as long as the token would be valid, redis drops it after that
type RevocationRegistry struct {
	rdb    *goredis.Client
	prefix string
	now    func() time.Time
}

// Connect creates redis client from URL (like redis://:pass@host:6379/0) and checks redis is reachable
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url. Err: %w", err)
	}

	rdb := goredis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis is not reachable. Err: %w", err)
	}

	return rdb, nil
}

// If prefix is empty "auth:revoked:" is used
// Key TTL is counted from 'now' clock, time.Now if nil
func NewRevocationRegistry(rdb *goredis.Client, prefix string, now func() time.Time) *RevocationRegistry {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if now == nil {
		now = time.Now
	}

	return &RevocationRegistry{rdb: rdb, prefix: prefix, now: now}
}

func (r *RevocationRegistry) key(tokenID string) string { return r.prefix + tokenID }

func (r *RevocationRegistry) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		// Token is expired already and will be rejected by expiry check
		return nil
	}

	// Value is not used, keep expiry for debugging purposes
	err := r.rdb.Set(ctx, r.key(tokenID), expiresAt.Unix(), ttl).Err()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RevocationRegistry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}
