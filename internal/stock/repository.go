package stock

import (
	"context"
	"time"

	"github.com/ananduvinod04/hemohub/internal/document"
	"github.com/ananduvinod04/hemohub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const what = "blood stock"

// Repository stores blood stock lots.
type Repository interface {
	document.Store[models.BloodStock]
	// MarkExpired flips every Available lot with expiryDate <= now to Expired
	// and returns how many changed.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

type MongoRepository struct {
	*document.MongoStore[models.BloodStock, *models.BloodStock]
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{document.NewMongoStore[models.BloodStock](col, what)}
}

func (r *MongoRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{"status": models.StockAvailable, "expiryDate": bson.M{"$lte": now}}
	update := bson.M{"$set": bson.M{"status": models.StockExpired, "updatedAt": now}}
	res, err := r.Collection().UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

type MemoryRepository struct {
	*document.MemoryStore[models.BloodStock, *models.BloodStock]
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{document.NewMemoryStore[models.BloodStock](what)}
}

func (r *MemoryRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.Update(func(s *models.BloodStock) bool {
		if s.Status != models.StockAvailable || s.ExpiryDate.After(now) {
			return false
		}
		s.Status = models.StockExpired
		s.UpdatedAt = now
		return true
	}), nil
}
