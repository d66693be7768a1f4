package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository implements Repository using Redis.
// Revocations are stored under "<prefix><tokenID>" with TTL = expiresAt - now.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based revocation store. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "blacklist:access:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(tokenID string) string {
	return r.prefix + tokenID
}

func (r *RedisRepository) Revoke(ctx context.Context, rev *Revocation) error {
	ttl := time.Until(rev.ExpiresAt)
	if ttl <= 0 {
		// already expired, the guard rejects it without our help
		return nil
	}
	return r.client.Set(ctx, r.key(rev.TokenID), rev.IdentityID, ttl).Err()
}

func (r *RedisRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
