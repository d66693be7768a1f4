package requests

import (
	"context"
	"testing"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/accounts"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/internal/notify"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	svc       *Service
	logs      *deletelog.Service
	mail      *notify.Recorder
	hospital  access.Caller
	recipient access.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	hospitals := accounts.NewHospitalService(accounts.NewMemoryRepository[models.Hospital]("licenseNumber", "hospitalName"))
	recipients := accounts.NewRecipientService(accounts.NewMemoryRepository[models.Recipient]())

	h, err := hospitals.Register(ctx, accounts.HospitalRegistration{Name: "Ops", Email: "ops@city.org", HospitalName: "City", LicenseNumber: "L1"}.Hospital(), "pw")
	require.NoError(t, err)
	r, err := recipients.Register(ctx, accounts.RecipientRegistration{Name: "Meena", Email: "meena@x.com", BloodGroup: "B+"}.Recipient(), "pw")
	require.NoError(t, err)

	logs := deletelog.NewService(deletelog.NewMemoryRepo())
	repo := NewMemoryRepository()
	logs.Register(models.ItemRecipientRequest, repo)
	mail := &notify.Recorder{}
	return &fixture{
		svc:       NewService(repo, hospitals, recipients, logs, mail),
		logs:      logs,
		mail:      mail,
		hospital:  access.CallerOf(h),
		recipient: access.CallerOf(r),
	}
}

func (f *fixture) file(t *testing.T) *models.RecipientRequest {
	t.Helper()
	r, err := f.svc.Create(context.Background(), f.recipient, NewRequest{HospitalID: f.hospital.ID.Hex(), BloodGroup: "B+", Quantity: 2})
	require.NoError(t, err)
	return r
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.file(t)
	require.Equal(t, models.RequestPending, r.Status)
	require.Equal(t, models.RequestNormal, r.RequestType)

	_, err := f.svc.Create(ctx, f.recipient, NewRequest{HospitalID: primitive.NewObjectID().Hex(), BloodGroup: "B+", Quantity: 1})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Create(ctx, f.recipient, NewRequest{HospitalID: "bogus", BloodGroup: "B+", Quantity: 1})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.svc.Create(ctx, f.recipient, NewRequest{HospitalID: f.hospital.ID.Hex(), BloodGroup: "B+", Quantity: 1, RequestType: "Urgent"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Create(ctx, f.recipient, NewRequest{HospitalID: f.hospital.ID.Hex(), BloodGroup: "B+"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Create(ctx, f.hospital, NewRequest{HospitalID: f.hospital.ID.Hex(), BloodGroup: "B+", Quantity: 1})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestListScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.file(t)

	mine, err := f.svc.List(ctx, f.recipient)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	incoming, err := f.svc.List(ctx, f.hospital)
	require.NoError(t, err)
	require.Len(t, incoming, 1)

	stranger := access.Caller{ID: primitive.NewObjectID(), Role: models.RoleRecipient}
	none, err := f.svc.List(ctx, stranger)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.file(t)
	id := r.ID.Hex()

	_, err := f.svc.UpdateStatus(ctx, f.hospital, id, models.RequestFulfilled)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.svc.UpdateStatus(ctx, f.recipient, id, models.RequestApproved)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.svc.UpdateStatus(ctx, f.hospital, id, "Lost")
	require.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.svc.UpdateStatus(ctx, f.hospital, id, models.RequestApproved)
	require.NoError(t, err)
	require.Equal(t, models.RequestApproved, got.Status)

	// repeat is a no-op and sends nothing
	_, err = f.svc.UpdateStatus(ctx, f.hospital, id, models.RequestApproved)
	require.NoError(t, err)
	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "meena@x.com", sent[0].To)
	require.Contains(t, sent[0].Body, "City")

	_, err = f.svc.UpdateStatus(ctx, f.hospital, id, models.RequestFulfilled)
	require.NoError(t, err)

	// terminal: not even an admin can reopen it
	admin := access.Caller{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	_, err = f.svc.UpdateStatus(ctx, admin, id, models.RequestApproved)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	other := access.Caller{ID: primitive.NewObjectID(), Role: models.RoleHospital, Name: "Other"}
	_, err = f.svc.UpdateStatus(ctx, other, id, models.RequestRejected)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteLogsRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.file(t)

	require.ErrorIs(t, f.svc.Delete(ctx, f.hospital, "bad"), apperr.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, f.recipient, r.ID.Hex()))
	require.ErrorIs(t, f.svc.Delete(ctx, f.recipient, r.ID.Hex()), apperr.ErrNotFound)

	entries, err := f.logs.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.ItemRecipientRequest, entries[0].ItemType)

	counts, err := f.svc.Counts(ctx, f.recipient)
	require.NoError(t, err)
	require.Zero(t, counts[models.RequestPending])
}
