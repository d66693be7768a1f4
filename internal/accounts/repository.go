package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// identityPtr constrains PT to a pointer to one of the role documents.
type identityPtr[T any] interface {
	*T
	models.Identity
}

// Repository defines persistence operations for one identity collection.
// Lookups return (nil, nil) when nothing matches.
type Repository[T any] interface {
	Create(ctx context.Context, acct *T) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*T, error)
	// Lookup is GetByID with the password hash left out.
	Lookup(ctx context.Context, id primitive.ObjectID) (*T, error)
	FindBy(ctx context.Context, field, value string) (*T, error)
	List(ctx context.Context) ([]T, error)
	Count(ctx context.Context) (int64, error)
	Replace(ctx context.Context, acct *T) error
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	RestoreSnapshot(ctx context.Context, snapshot bson.M) error
}

var errDuplicate = apperr.Wrap(apperr.ErrConflict, "an account with these details already exists")

// MongoRepository implements Repository for one role collection.
type MongoRepository[T any, PT identityPtr[T]] struct {
	col *mongo.Collection
}

// NewMongoRepository creates a repository for the given collection.
func NewMongoRepository[T any, PT identityPtr[T]](col *mongo.Collection) *MongoRepository[T, PT] {
	return &MongoRepository[T, PT]{col: col}
}

func (r *MongoRepository[T, PT]) Create(ctx context.Context, acct *T) error {
	a := PT(acct).Acct()
	now := time.Now().UTC()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, acct); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicate
		}
		return err
	}
	return nil
}

func (r *MongoRepository[T, PT]) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*T, error) {
	var out T
	if err := r.col.FindOne(ctx, filter, opts...).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *MongoRepository[T, PT]) GetByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository[T, PT]) Lookup(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"password": 0}))
}

func (r *MongoRepository[T, PT]) FindBy(ctx context.Context, field, value string) (*T, error) {
	return r.findOne(ctx, bson.M{field: value})
}

func (r *MongoRepository[T, PT]) List(ctx context.Context) ([]T, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"password": 0})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoRepository[T, PT]) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *MongoRepository[T, PT]) Replace(ctx context.Context, acct *T) error {
	a := PT(acct).Acct()
	a.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": a.ID}, acct)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("account")
	}
	return nil
}

func (r *MongoRepository[T, PT]) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// RestoreSnapshot inserts the snapshot unchanged, original _id included.
func (r *MongoRepository[T, PT]) RestoreSnapshot(ctx context.Context, snapshot bson.M) error {
	if _, err := r.col.InsertOne(ctx, snapshot); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.ErrConflict, "cannot restore: id or email already in use")
		}
		return err
	}
	return nil
}

// MemoryRepository is an in-memory Repository used by unit tests. It enforces
// the same unique fields the Mongo indexes do.
type MemoryRepository[T any, PT identityPtr[T]] struct {
	mu     sync.RWMutex
	store  map[primitive.ObjectID]T
	order  []primitive.ObjectID
	unique []string
}

// NewMemoryRepository creates an empty store. email is always unique; extra
// names more unique bson fields.
func NewMemoryRepository[T any, PT identityPtr[T]](extra ...string) *MemoryRepository[T, PT] {
	return &MemoryRepository[T, PT]{
		store:  make(map[primitive.ObjectID]T),
		unique: append([]string{"email"}, extra...),
	}
}

func fieldOf(v interface{}, field string) (interface{}, bool) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, false
	}
	val, err := bson.Raw(raw).LookupErr(field)
	if err != nil {
		return nil, false
	}
	var out interface{}
	if err := val.Unmarshal(&out); err != nil {
		return nil, false
	}
	return out, true
}

// clashes reports whether acct collides with another document on a unique field.
func (m *MemoryRepository[T, PT]) clashes(acct *T) bool {
	id := PT(acct).Acct().ID
	for _, f := range m.unique {
		want, ok := fieldOf(acct, f)
		if !ok || want == "" {
			continue
		}
		for oid, doc := range m.store {
			if oid == id {
				continue
			}
			d := doc
			if got, ok := fieldOf(&d, f); ok && got == want {
				return true
			}
		}
	}
	return false
}

func (m *MemoryRepository[T, PT]) Create(ctx context.Context, acct *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := PT(acct).Acct()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, exists := m.store[a.ID]; exists || m.clashes(acct) {
		return errDuplicate
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	m.store[a.ID] = *acct
	m.order = append(m.order, a.ID)
	return nil
}

func (m *MemoryRepository[T, PT]) GetByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.store[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (m *MemoryRepository[T, PT]) Lookup(ctx context.Context, id primitive.ObjectID) (*T, error) {
	doc, err := m.GetByID(ctx, id)
	if doc != nil {
		PT(doc).Acct().Password = ""
	}
	return doc, err
}

func (m *MemoryRepository[T, PT]) FindBy(ctx context.Context, field, value string) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		doc, ok := m.store[id]
		if !ok {
			continue
		}
		if got, ok := fieldOf(&doc, field); ok && got == value {
			return &doc, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository[T, PT]) List(ctx context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.store))
	for i := len(m.order) - 1; i >= 0; i-- {
		doc, ok := m.store[m.order[i]]
		if !ok {
			continue
		}
		PT(&doc).Acct().Password = ""
		out = append(out, doc)
	}
	return out, nil
}

func (m *MemoryRepository[T, PT]) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.store)), nil
}

func (m *MemoryRepository[T, PT]) Replace(ctx context.Context, acct *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := PT(acct).Acct()
	if _, ok := m.store[a.ID]; !ok {
		return apperr.NotFound("account")
	}
	if m.clashes(acct) {
		return errDuplicate
	}
	a.UpdatedAt = time.Now().UTC()
	m.store[a.ID] = *acct
	return nil
}

func (m *MemoryRepository[T, PT]) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return false, nil
	}
	delete(m.store, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *MemoryRepository[T, PT]) RestoreSnapshot(ctx context.Context, snapshot bson.M) error {
	raw, err := bson.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	var doc T
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := PT(&doc).Acct().ID
	if _, exists := m.store[id]; exists || m.clashes(&doc) {
		return apperr.Wrap(apperr.ErrConflict, "cannot restore: id or email already in use")
	}
	m.store[id] = doc
	m.order = append(m.order, id)
	return nil
}
