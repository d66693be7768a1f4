package deletelog

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ananduvinod04/hemohub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists delete-log entries.
type Repository interface {
	Insert(ctx context.Context, l *models.DeleteLog) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.DeleteLog, error)
	List(ctx context.Context, includeRecovered bool) ([]models.DeleteLog, error)
	Remove(ctx context.Context, id primitive.ObjectID) error
	// SetRecovered flips the recovered flag only when it currently equals !recovered.
	// It reports whether an entry was changed.
	SetRecovered(ctx context.Context, id primitive.ObjectID, recovered bool, at *time.Time) (bool, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, l *models.DeleteLog) error {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, l)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.DeleteLog, error) {
	var l models.DeleteLog
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *MongoRepository) List(ctx context.Context, includeRecovered bool) ([]models.DeleteLog, error) {
	filter := bson.M{}
	if !includeRecovered {
		filter["recovered"] = bson.M{"$ne": true}
	}
	opts := options.Find().SetSort(bson.D{{Key: "deletedAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []models.DeleteLog{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository) Remove(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository) SetRecovered(ctx context.Context, id primitive.ObjectID, recovered bool, at *time.Time) (bool, error) {
	filter := bson.M{"_id": id, "recovered": bson.M{"$ne": recovered}}
	update := bson.M{"$set": bson.M{"recovered": recovered}}
	if at != nil {
		update["$set"].(bson.M)["recoveredAt"] = *at
	} else {
		update["$unset"] = bson.M{"recoveredAt": ""}
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// MemoryRepo is an in-memory Repository used by unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[primitive.ObjectID]models.DeleteLog
	// InsertErr, when set, is returned by Insert.
	InsertErr error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[primitive.ObjectID]models.DeleteLog)}
}

func (m *MemoryRepo) Insert(ctx context.Context, l *models.DeleteLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	m.store[l.ID] = *l
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id primitive.ObjectID) (*models.DeleteLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.store[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *MemoryRepo) List(ctx context.Context, includeRecovered bool) ([]models.DeleteLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DeleteLog, 0, len(m.store))
	for _, l := range m.store {
		if l.Recovered && !includeRecovered {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeletedAt.Equal(out[j].DeletedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].DeletedAt.After(out[j].DeletedAt)
	})
	return out, nil
}

func (m *MemoryRepo) Remove(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

func (m *MemoryRepo) SetRecovered(ctx context.Context, id primitive.ObjectID, recovered bool, at *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.store[id]
	if !ok || l.Recovered == recovered {
		return false, nil
	}
	l.Recovered = recovered
	l.RecoveredAt = at
	m.store[id] = l
	return true, nil
}
