package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ananduvinod04/hemohub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RunStore keeps the latest run of each job.
type RunStore interface {
	Save(ctx context.Context, run *models.JobRun) error
	// Load returns nil when the job never ran.
	Load(ctx context.Context, job string) (*models.JobRun, error)
}

type MongoRunStore struct {
	col *mongo.Collection
}

func NewMongoRunStore(col *mongo.Collection) *MongoRunStore {
	return &MongoRunStore{col: col}
}

// Save upserts run by job name.
func (s *MongoRunStore) Save(ctx context.Context, run *models.JobRun) error {
	opts := options.Update().SetUpsert(true)
	if _, err := s.col.UpdateOne(ctx, bson.M{"job": run.Job}, bson.M{"$set": run}, opts); err != nil {
		return fmt.Errorf("save job run %s: %w", run.Job, err)
	}
	return nil
}

func (s *MongoRunStore) Load(ctx context.Context, job string) (*models.JobRun, error) {
	var run models.JobRun
	if err := s.col.FindOne(ctx, bson.M{"job": job}).Decode(&run); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

type MemoryRunStore struct {
	mu   sync.Mutex
	runs map[string]models.JobRun
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: map[string]models.JobRun{}}
}

func (s *MemoryRunStore) Save(ctx context.Context, run *models.JobRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.Job] = *run
	return nil
}

func (s *MemoryRunStore) Load(ctx context.Context, job string) (*models.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[job]
	if !ok {
		return nil, nil
	}
	return &run, nil
}
