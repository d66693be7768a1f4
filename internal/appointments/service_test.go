package appointments

import (
	"context"
	"testing"
	"time"

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
	svc    *Service
	donors *accounts.DonorService
	logs   *deletelog.Service
	mail   *notify.Recorder
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	donors := accounts.NewDonorService(accounts.NewMemoryRepository[models.Donor]())
	logs := deletelog.NewService(deletelog.NewMemoryRepo())
	mail := &notify.Recorder{}
	repo := NewMemoryRepository()
	svc := NewService(repo, donors, logs, mail)
	now := time.Now().UTC().Truncate(time.Second)
	svc.now = func() time.Time { return now }
	logs.Register(models.ItemAppointment, repo)
	return &fixture{svc: svc, donors: donors, logs: logs, mail: mail, now: now}
}

func (f *fixture) donor(t *testing.T, email string) access.Caller {
	t.Helper()
	reg := accounts.DonorRegistration{Name: "Donor " + email, Email: email, BloodGroup: "O+", Age: 30, Weight: 70}
	d, err := f.donors.Register(context.Background(), reg.Donor(f.now), "pw")
	require.NoError(t, err)
	return access.CallerOf(d)
}

func hospital(name string) access.Caller {
	return access.Caller{ID: primitive.NewObjectID(), Role: models.RoleHospital, Name: name}
}

var admin = access.Caller{ID: primitive.NewObjectID(), Role: models.RoleAdmin, Name: "root"}

func TestBook_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donor(t, "v@x.com")

	_, err := f.svc.Book(ctx, d, Booking{Type: models.AppointmentDonation, Date: models.Date(f.now)})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Book(ctx, d, Booking{HospitalName: "City", Type: "Checkup", Date: models.Date(f.now)})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Book(ctx, hospital("City"), Booking{HospitalName: "City", Type: models.AppointmentBloodTest, Date: models.Date(f.now)})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	a, err := f.svc.Book(ctx, d, Booking{HospitalName: " City ", Type: models.AppointmentBloodTest, Date: models.Date(f.now)})
	require.NoError(t, err)
	require.Equal(t, models.AppointmentPending, a.Status)
	require.Equal(t, "City", a.HospitalName)
	require.Equal(t, d.ID, a.DonorID)
}

func TestBook_IneligibleDonorCannotBookDonation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := accounts.DonorRegistration{Name: "Young", Email: "y@x.com", BloodGroup: "A+", Age: 16, Weight: 60}
	d, err := f.donors.Register(ctx, reg.Donor(f.now), "pw")
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, access.CallerOf(d), Booking{HospitalName: "City", Type: models.AppointmentDonation, Date: models.Date(f.now)})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Book(ctx, access.CallerOf(d), Booking{HospitalName: "City", Type: models.AppointmentBloodTest, Date: models.Date(f.now)})
	require.NoError(t, err)
}

func TestOwnershipScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.donor(t, "a@x.com")
	b := f.donor(t, "b@x.com")

	appt, err := f.svc.Book(ctx, a, Booking{HospitalName: "City", Type: models.AppointmentBloodTest, Date: models.Date(f.now)})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, b)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = f.svc.Get(ctx, b, appt.ID.Hex())
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, f.svc.Cancel(ctx, b, appt.ID.Hex()), apperr.ErrNotFound)

	got, err := f.svc.Get(ctx, a, appt.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, appt.ID, got.ID)

	// hospitals see appointments booked under their name only
	mine, err := f.svc.List(ctx, hospital("City"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	other, err := f.svc.List(ctx, hospital("General"))
	require.NoError(t, err)
	require.Empty(t, other)

	all, err := f.svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestUpdateStatus_Workflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donor(t, "w@x.com")
	city := hospital("City")

	appt, err := f.svc.Book(ctx, d, Booking{HospitalName: "City", Type: models.AppointmentDonation, Date: models.Date(f.now.Add(-time.Hour))})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, city, appt.ID.Hex(), "Done")
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.UpdateStatus(ctx, city, appt.ID.Hex(), models.AppointmentCompleted)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.svc.UpdateStatus(ctx, d, appt.ID.Hex(), models.AppointmentApproved)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.svc.UpdateStatus(ctx, hospital("General"), appt.ID.Hex(), models.AppointmentApproved)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.svc.UpdateStatus(ctx, city, appt.ID.Hex(), models.AppointmentApproved)
	require.NoError(t, err)
	require.Equal(t, models.AppointmentApproved, got.Status)
	require.Len(t, f.mail.Sent(), 1)

	got, err = f.svc.UpdateStatus(ctx, admin, appt.ID.Hex(), models.AppointmentCompleted)
	require.NoError(t, err)
	require.Equal(t, models.AppointmentCompleted, got.Status)

	donor, err := f.donors.Profile(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, donor.LastDonationDate)
	require.False(t, donor.IsEligible)

	_, err = f.svc.UpdateStatus(ctx, city, appt.ID.Hex(), models.AppointmentCancelled)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	require.ErrorIs(t, f.svc.Cancel(ctx, d, appt.ID.Hex()), apperr.ErrInvalidTransition)
}

func TestUpdateStatus_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donor(t, "i@x.com")
	city := hospital("City")

	appt, err := f.svc.Book(ctx, d, Booking{HospitalName: "City", Type: models.AppointmentBloodTest, Date: models.Date(f.now)})
	require.NoError(t, err)

	first, err := f.svc.UpdateStatus(ctx, city, appt.ID.Hex(), models.AppointmentApproved)
	require.NoError(t, err)
	second, err := f.svc.UpdateStatus(ctx, city, appt.ID.Hex(), models.AppointmentApproved)
	require.NoError(t, err)
	require.Equal(t, first.UpdatedAt, second.UpdatedAt)
	require.Len(t, f.mail.Sent(), 1)

	list, err := f.svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestUpdateStatus_CompletedRefusedBeforeDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donor(t, "f@x.com")
	city := hospital("City")

	appt, err := f.svc.Book(ctx, d, Booking{HospitalName: "City", Type: models.AppointmentBloodTest, Date: models.Date(f.now.Add(48 * time.Hour))})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, city, appt.ID.Hex(), models.AppointmentApproved)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, city, appt.ID.Hex(), models.AppointmentCompleted)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestCancel_LogsAndRestores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donor(t, "c@x.com")

	appt, err := f.svc.Book(ctx, d, Booking{HospitalName: "City", Type: models.AppointmentBloodTest, Date: models.Date(f.now)})
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, d, appt.ID.Hex()))

	_, err = f.svc.Get(ctx, d, appt.ID.Hex())
	require.ErrorIs(t, err, apperr.ErrNotFound)

	logs, err := f.logs.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, models.ItemAppointment, logs[0].ItemType)
	require.Equal(t, d.ID, *logs[0].DeletedBy)

	_, err = f.logs.Restore(ctx, logs[0].ID.Hex())
	require.NoError(t, err)
	back, err := f.svc.Get(ctx, d, appt.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, "City", back.HospitalName)
}

func TestCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donor(t, "n@x.com")
	for i := 0; i < 2; i++ {
		_, err := f.svc.Book(ctx, d, Booking{HospitalName: "City", Type: models.AppointmentBloodTest, Date: models.Date(f.now)})
		require.NoError(t, err)
	}
	counts, err := f.svc.Counts(ctx, d)
	require.NoError(t, err)
	require.EqualValues(t, 2, counts[models.AppointmentPending])
	require.EqualValues(t, 0, counts[models.AppointmentCompleted])
}
