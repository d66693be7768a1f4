package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists revoked token ids.
type Repository interface {
	Revoke(ctx context.Context, r *Revocation) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MongoRepository stores revocations in a collection with a TTL index on expiresAt
// (created by database.EnsureIndexes), so Mongo drops entries once the token is expired anyway.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Revoke(ctx context.Context, rev *Revocation) error {
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now().UTC()
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": rev.TokenID}, rev, opts)
	return err
}

func (r *MongoRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var rev Revocation
	if err := r.col.FindOne(ctx, bson.M{"_id": tokenID}).Decode(&rev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	// the TTL monitor runs once a minute; treat stale entries as gone
	return time.Now().UTC().Before(rev.ExpiresAt), nil
}

// MemoryRepository keeps revocations in process. Used in tests and when
// neither Redis nor Mongo is reachable.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]time.Time)}
}

func (m *MemoryRepository) Revoke(ctx context.Context, rev *Revocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[rev.TokenID] = rev.ExpiresAt
	return nil
}

func (m *MemoryRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.store[tokenID]
	return ok && time.Now().Before(exp), nil
}
