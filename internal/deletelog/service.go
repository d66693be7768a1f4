// Package deletelog captures a snapshot of every document before it is deleted
// and restores snapshots on request.
package deletelog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/logger"
	"github.com/ananduvinod04/hemohub/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Restorer re-inserts a snapshot into the collection it was deleted from.
// Implementations keep the snapshot's _id and report duplicates as apperr.ErrConflict.
type Restorer interface {
	RestoreSnapshot(ctx context.Context, snapshot bson.M) error
}

// DeleteFunc removes the captured document and reports whether it existed.
type DeleteFunc func(ctx context.Context) (bool, error)

// Deleter captures a document in the delete log before removing it.
// *Service implements it.
type Deleter interface {
	CaptureAndDelete(ctx context.Context, itemType string, entity interface{}, deletedBy primitive.ObjectID, del DeleteFunc) (*models.DeleteLog, error)
}

type Service struct {
	repo      Repository
	restorers map[string]Restorer
	now       func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, restorers: map[string]Restorer{}, now: time.Now}
}

// Register binds an item type to the collection that restores it.
func (s *Service) Register(itemType string, r Restorer) {
	s.restorers[itemType] = r
}

// Snapshot converts a document into its bson form, _id included.
func Snapshot(entity interface{}) (bson.M, error) {
	raw, err := bson.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return m, nil
}

// Capture stores a snapshot of entity under itemType.
func (s *Service) Capture(ctx context.Context, itemType string, entity interface{}, deletedBy primitive.ObjectID) (*models.DeleteLog, error) {
	snap, err := Snapshot(entity)
	if err != nil {
		return nil, err
	}
	l := &models.DeleteLog{
		ItemType:  itemType,
		Snapshot:  snap,
		DeletedAt: s.now().UTC(),
	}
	if !deletedBy.IsZero() {
		l.DeletedBy = &deletedBy
	}
	if err := s.repo.Insert(ctx, l); err != nil {
		return nil, fmt.Errorf("capture %s: %w", itemType, err)
	}
	metrics.DeleteLogEvents.WithLabelValues("capture", itemType).Inc()
	return l, nil
}

// CaptureAndDelete captures entity, then runs del. When del fails or finds
// nothing, the captured entry is removed again so the log only ever holds
// documents that were actually deleted.
func (s *Service) CaptureAndDelete(ctx context.Context, itemType string, entity interface{}, deletedBy primitive.ObjectID, del DeleteFunc) (*models.DeleteLog, error) {
	l, err := s.Capture(ctx, itemType, entity, deletedBy)
	if err != nil {
		return nil, err
	}
	deleted, err := del(ctx)
	if err == nil && !deleted {
		err = apperr.NotFound(itemType)
	}
	if err != nil {
		if rerr := s.repo.Remove(ctx, l.ID); rerr != nil {
			logger.Errorf("delete-log rollback of %s failed: %v", l.ID.Hex(), rerr)
		}
		metrics.DeleteLogEvents.WithLabelValues("rollback", itemType).Inc()
		return nil, err
	}
	return l, nil
}

// List returns entries newest first. Restored entries are left out unless
// includeRecovered is set.
func (s *Service) List(ctx context.Context, includeRecovered bool) ([]models.DeleteLog, error) {
	logs, err := s.repo.List(ctx, includeRecovered)
	if err != nil {
		return nil, err
	}
	for i := range logs {
		logs[i].Snapshot = scrub(logs[i].Snapshot)
	}
	return logs, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.DeleteLog, error) {
	oid, err := models.ParseID(id, "delete log")
	if err != nil {
		return nil, err
	}
	l, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, apperr.NotFound("delete log")
	}
	l.Snapshot = scrub(l.Snapshot)
	return l, nil
}

// Restore re-inserts the snapshot of log id with its original _id and marks
// the entry recovered. The entry is claimed before the insert so two
// concurrent restores cannot both succeed.
func (s *Service) Restore(ctx context.Context, id string) (*models.DeleteLog, error) {
	oid, err := models.ParseID(id, "delete log")
	if err != nil {
		return nil, err
	}
	l, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, apperr.NotFound("delete log")
	}
	if l.Recovered {
		return nil, apperr.Wrap(apperr.ErrConflict, "%s already restored", l.ItemType)
	}
	r, ok := s.restorers[l.ItemType]
	if !ok {
		return nil, apperr.Wrap(apperr.ErrValidation, "cannot restore item type %q", l.ItemType)
	}

	at := s.now().UTC()
	claimed, err := s.repo.SetRecovered(ctx, oid, true, &at)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, apperr.Wrap(apperr.ErrConflict, "%s already restored", l.ItemType)
	}

	if err := r.RestoreSnapshot(ctx, l.Snapshot); err != nil {
		if _, uerr := s.repo.SetRecovered(ctx, oid, false, nil); uerr != nil {
			logger.Errorf("delete-log %s: release after failed restore: %v", oid.Hex(), uerr)
		}
		if !errors.Is(err, apperr.ErrConflict) {
			err = fmt.Errorf("restore %s: %w", l.ItemType, err)
		}
		return nil, err
	}

	metrics.DeleteLogEvents.WithLabelValues("restore", l.ItemType).Inc()
	l.Recovered = true
	l.RecoveredAt = &at
	l.Snapshot = scrub(l.Snapshot)
	return l, nil
}

// scrub returns a copy of snap without credential fields.
func scrub(snap bson.M) bson.M {
	if _, ok := snap["password"]; !ok {
		return snap
	}
	out := make(bson.M, len(snap))
	for k, v := range snap {
		if k == "password" {
			continue
		}
		out[k] = v
	}
	return out
}
