package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_RevokeAndCheck(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:revoked:")

	ctx := context.Background()
	require.NoError(t, repo.Revoke(ctx, &Revocation{
		TokenID:    "jti-1",
		IdentityID: "donor-1",
		ExpiresAt:  time.Now().Add(5 * time.Second),
	}))

	ok, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	require.False(t, ok)

	v, err := m.Get("test:revoked:jti-1")
	require.NoError(t, err)
	require.Equal(t, "donor-1", v)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "")

	ctx := context.Background()
	require.NoError(t, repo.Revoke(ctx, &Revocation{TokenID: "jti-3", ExpiresAt: time.Now().Add(2 * time.Second)}))

	ok, err := repo.IsRevoked(ctx, "jti-3")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, m.Exists("blacklist:access:jti-3"))

	// advance miniredis clock past TTL
	m.FastForward(3 * time.Second)

	ok, err = repo.IsRevoked(ctx, "jti-3")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisRepository_AlreadyExpiredIsNoop(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	repo := NewRedisRepository(redis.NewClient(&redis.Options{Addr: m.Addr()}), "")
	require.NoError(t, repo.Revoke(context.Background(), &Revocation{TokenID: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.False(t, m.Exists("blacklist:access:old"))
}
