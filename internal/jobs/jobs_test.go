package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/internal/stock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRunner_RecordsSuccessAndFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRunStore()
	r := NewRunner(store)

	last, err := r.Last(ctx, StockExpirySweep)
	require.NoError(t, err)
	require.Nil(t, last)

	run, err := r.Run(ctx, StockExpirySweep, func(context.Context) (int64, error) { return 4, nil })
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, run.Status)
	require.EqualValues(t, 4, run.Affected)

	_, err = r.Run(ctx, StockExpirySweep, func(context.Context) (int64, error) { return 0, errors.New("mongo down") })
	require.ErrorContains(t, err, "mongo down")

	last, err = r.Last(ctx, StockExpirySweep)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, last.Status)
	require.Equal(t, "mongo down", last.Error)
	require.False(t, last.FinishedAt.Before(last.StartedAt))
}

func TestRunner_StockSweep(t *testing.T) {
	ctx := context.Background()
	repo := stock.NewMemoryRepository()
	svc := stock.NewService(repo, deletelog.NewService(deletelog.NewMemoryRepo()))
	h := access.Caller{ID: primitive.NewObjectID(), Role: models.RoleHospital}

	lot, err := svc.Add(ctx, h, stock.NewLot{BloodGroup: "O-", Units: 2, ExpiryDate: models.Date(time.Now().Add(time.Hour))})
	require.NoError(t, err)
	// backdate the lot as if it had been stored long ago
	lot.ExpiryDate = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Replace(ctx, lot))

	r := NewRunner(NewMemoryRunStore())
	run, err := r.Run(ctx, StockExpirySweep, svc.ExpireLots)
	require.NoError(t, err)
	require.EqualValues(t, 1, run.Affected)

	got, err := repo.Get(ctx, lot.ID)
	require.NoError(t, err)
	require.Equal(t, models.StockExpired, got.Status)
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(NewRunner(NewMemoryRunStore()))
	require.Error(t, s.Add("not a spec", StockExpirySweep, func(context.Context) (int64, error) { return 0, nil }))
	require.NoError(t, s.Add("5 0 * * *", StockExpirySweep, func(context.Context) (int64, error) { return 0, nil }))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
