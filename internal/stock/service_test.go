package stock

import (
	"context"
	"testing"
	"time"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newService() (*Service, *deletelog.Service) {
	repo := NewMemoryRepository()
	logs := deletelog.NewService(deletelog.NewMemoryRepo())
	logs.Register(models.ItemBloodStock, repo)
	svc := NewService(repo, logs)
	svc.now = func() time.Time { return now }
	return svc, logs
}

func hospital() access.Caller {
	return access.Caller{ID: primitive.NewObjectID(), Role: models.RoleHospital, Name: "City"}
}

func TestStockScenario(t *testing.T) {
	ctx := context.Background()
	svc, logs := newService()
	h1 := hospital()

	lot, err := svc.Add(ctx, h1, NewLot{BloodGroup: "O+", Units: 5, ExpiryDate: models.Date(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	require.Equal(t, models.StockAvailable, lot.Status)

	list, err := svc.List(ctx, h1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 5, list[0].Units)

	three := 3
	_, err = svc.Update(ctx, h1, lot.ID.Hex(), LotUpdate{Units: &three})
	require.NoError(t, err)
	list, err = svc.List(ctx, h1)
	require.NoError(t, err)
	require.Equal(t, 3, list[0].Units)
	require.Equal(t, "O+", list[0].BloodGroup)

	require.NoError(t, svc.Delete(ctx, h1, lot.ID.Hex()))
	list, err = svc.List(ctx, h1)
	require.NoError(t, err)
	require.Empty(t, list)

	entries, err := logs.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.ItemBloodStock, entries[0].ItemType)
	require.EqualValues(t, 3, entries[0].Snapshot["units"])
}

func TestAdd_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	h := hospital()
	exp := now.Add(30 * 24 * time.Hour)

	_, err := svc.Add(ctx, h, NewLot{BloodGroup: "C+", Units: 1, ExpiryDate: models.Date(exp)})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Add(ctx, h, NewLot{BloodGroup: "A+", Units: 0, ExpiryDate: models.Date(exp)})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Add(ctx, h, NewLot{BloodGroup: "A+", Units: 1})
	require.ErrorIs(t, err, apperr.ErrValidation)

	donor := access.Caller{ID: primitive.NewObjectID(), Role: models.RoleDonor}
	_, err = svc.Add(ctx, donor, NewLot{BloodGroup: "A+", Units: 1, ExpiryDate: models.Date(exp)})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	lot, err := svc.Add(ctx, h, NewLot{BloodGroup: "A+", Units: 1, ExpiryDate: models.Date(now.Add(-time.Hour))})
	require.NoError(t, err)
	require.Equal(t, models.StockExpired, lot.Status)
}

func TestOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	h1, h2 := hospital(), hospital()
	admin := access.Caller{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	lot, err := svc.Add(ctx, h1, NewLot{BloodGroup: "B+", Units: 2, ExpiryDate: models.Date(now.Add(time.Hour))})
	require.NoError(t, err)

	_, err = svc.Get(ctx, h2, lot.ID.Hex())
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, h2, lot.ID.Hex()), apperr.ErrNotFound)
	list, err := svc.List(ctx, h2)
	require.NoError(t, err)
	require.Empty(t, list)

	ten := 10
	got, err := svc.Update(ctx, admin, lot.ID.Hex(), LotUpdate{Units: &ten})
	require.NoError(t, err)
	require.Equal(t, 10, got.Units)

	all, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestUpdate_ExpiryRederivesStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	h := hospital()
	lot, err := svc.Add(ctx, h, NewLot{BloodGroup: "AB-", Units: 4, ExpiryDate: models.Date(now.Add(time.Hour))})
	require.NoError(t, err)

	past := models.Date(now.Add(-time.Hour))
	got, err := svc.Update(ctx, h, lot.ID.Hex(), LotUpdate{ExpiryDate: &past})
	require.NoError(t, err)
	require.Equal(t, models.StockExpired, got.Status)

	neg := -1
	_, err = svc.Update(ctx, h, lot.ID.Hex(), LotUpdate{Units: &neg})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSummarizeAndExpire(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	h := hospital()

	_, err := svc.Add(ctx, h, NewLot{BloodGroup: "O+", Units: 4, ExpiryDate: models.Date(now.Add(48 * time.Hour))})
	require.NoError(t, err)
	_, err = svc.Add(ctx, h, NewLot{BloodGroup: "O+", Units: 2, ExpiryDate: models.Date(now.Add(2 * time.Hour))})
	require.NoError(t, err)
	_, err = svc.Add(ctx, h, NewLot{BloodGroup: "A-", Units: 1, ExpiryDate: models.Date(now.Add(72 * time.Hour))})
	require.NoError(t, err)

	sum, err := svc.Summarize(ctx, h)
	require.NoError(t, err)
	require.Equal(t, 6, sum.UnitsByGroup["O+"])
	require.Equal(t, 7, sum.TotalUnits)
	require.Zero(t, sum.ExpiredLots)

	// a day later the short-dated lot has lapsed
	now = now.Add(24 * time.Hour)
	defer func() { now = now.Add(-24 * time.Hour) }()

	before := testutil.ToFloat64(metrics.StockExpired)
	n, err := svc.ExpireLots(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.StockExpired))

	n, err = svc.ExpireLots(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	sum, err = svc.Summarize(ctx, h)
	require.NoError(t, err)
	require.Equal(t, 4, sum.UnitsByGroup["O+"])
	require.Equal(t, 1, sum.ExpiredLots)
}
