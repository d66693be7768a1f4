// Package document is the collection store the resource services build on.
// MongoStore backs production; MemoryStore has the same behaviour for tests.
package document

import (
	"context"
	"errors"
	"time"

	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Doc constrains PT to a pointer to a stored resource.
type Doc[T any] interface {
	*T
	DocID() primitive.ObjectID
	Stamp(now time.Time)
}

// Store defines persistence for one collection. Get returns (nil, nil) when
// nothing matches. Find returns documents newest first. Filters are equality
// matches on bson field names.
type Store[T any] interface {
	Insert(ctx context.Context, doc *T) error
	Get(ctx context.Context, id primitive.ObjectID) (*T, error)
	Find(ctx context.Context, filter bson.M) ([]T, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	Replace(ctx context.Context, doc *T) error
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	RestoreSnapshot(ctx context.Context, snapshot bson.M) error
}

// MongoStore implements Store on a Mongo collection.
type MongoStore[T any, PT Doc[T]] struct {
	col  *mongo.Collection
	what string
}

// NewMongoStore wraps col. what names the resource in error messages.
func NewMongoStore[T any, PT Doc[T]](col *mongo.Collection, what string) *MongoStore[T, PT] {
	return &MongoStore[T, PT]{col: col, what: what}
}

// Collection exposes the underlying collection for resource-specific queries.
func (s *MongoStore[T, PT]) Collection() *mongo.Collection { return s.col }

func (s *MongoStore[T, PT]) Insert(ctx context.Context, doc *T) error {
	PT(doc).Stamp(time.Now().UTC())
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.ErrConflict, "%s already exists", s.what)
		}
		return err
	}
	return nil
}

func (s *MongoStore[T, PT]) Get(ctx context.Context, id primitive.ObjectID) (*T, error) {
	var out T
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (s *MongoStore[T, PT]) Find(ctx context.Context, filter bson.M) ([]T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore[T, PT]) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return s.col.CountDocuments(ctx, filter)
}

func (s *MongoStore[T, PT]) Replace(ctx context.Context, doc *T) error {
	PT(doc).Stamp(time.Now().UTC())
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": PT(doc).DocID()}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound(s.what)
	}
	return nil
}

func (s *MongoStore[T, PT]) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// RestoreSnapshot inserts the snapshot unchanged, original _id included.
func (s *MongoStore[T, PT]) RestoreSnapshot(ctx context.Context, snapshot bson.M) error {
	if _, err := s.col.InsertOne(ctx, snapshot); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.ErrConflict, "cannot restore: %s id already in use", s.what)
		}
		return err
	}
	return nil
}
