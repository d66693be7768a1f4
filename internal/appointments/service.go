// Package appointments books donor appointments and moves them through their
// status workflow.
package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/accounts"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/document"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/internal/notify"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/logger"
	"github.com/ananduvinod04/hemohub/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const what = "appointment"

type Repository = document.Store[models.Appointment]

func NewMongoRepository(col *mongo.Collection) Repository {
	return document.NewMongoStore[models.Appointment](col, what)
}

func NewMemoryRepository() *document.MemoryStore[models.Appointment, *models.Appointment] {
	return document.NewMemoryStore[models.Appointment](what)
}

// Donors is the donor store the workflow reads contacts from and records
// completed donations in.
type Donors interface {
	Profile(ctx context.Context, id primitive.ObjectID) (*models.Donor, error)
	accounts.DonorUpdater
}

type Booking struct {
	HospitalName string                 `json:"hospitalName" validate:"required"`
	Type         models.AppointmentType `json:"type" validate:"required"`
	Date         models.Date            `json:"date" validate:"required"`
}

type Service struct {
	repo     Repository
	donors   Donors
	logs     deletelog.Deleter
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(repo Repository, donors Donors, logs deletelog.Deleter, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Noop{}
	}
	return &Service{repo: repo, donors: donors, logs: logs, notifier: n, now: time.Now}
}

// Repository exposes the store so the delete log can restore into it.
func (s *Service) Repository() Repository { return s.repo }

// Book creates a Pending appointment for the calling donor. Donation
// appointments require an eligible donor.
func (s *Service) Book(ctx context.Context, caller access.Caller, b Booking) (*models.Appointment, error) {
	if caller.Role != models.RoleDonor {
		return nil, apperr.Wrap(apperr.ErrUnauthorized, "only donors can book appointments")
	}
	b.HospitalName = strings.TrimSpace(b.HospitalName)
	if b.HospitalName == "" {
		return nil, apperr.Wrap(apperr.ErrValidation, "hospitalName is required")
	}
	if b.Type != models.AppointmentBloodTest && b.Type != models.AppointmentDonation {
		return nil, apperr.Wrap(apperr.ErrValidation, "type must be %q or %q", models.AppointmentBloodTest, models.AppointmentDonation)
	}
	if b.Date.IsZero() {
		return nil, apperr.Wrap(apperr.ErrValidation, "date is required")
	}
	donor, err := s.donors.Profile(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if b.Type == models.AppointmentDonation && !donor.Eligible(s.now()) {
		return nil, apperr.Wrap(apperr.ErrValidation, "donor is not currently eligible to donate")
	}
	a := &models.Appointment{
		DonorID:      caller.ID,
		DonorName:    donor.Name,
		HospitalName: b.HospitalName,
		Type:         b.Type,
		Date:         b.Date.UTC(),
		Status:       models.AppointmentPending,
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// scope returns the filter selecting the appointments caller may see.
func scope(caller access.Caller) bson.M {
	switch caller.Role {
	case models.RoleDonor:
		return bson.M{"donorId": caller.ID}
	case models.RoleHospital:
		return bson.M{"hospitalName": caller.Name}
	case models.RoleAdmin:
		return bson.M{}
	}
	return nil
}

// List returns the caller's appointments, newest first. Admins see all.
func (s *Service) List(ctx context.Context, caller access.Caller) ([]models.Appointment, error) {
	filter := scope(caller)
	if filter == nil {
		return []models.Appointment{}, nil
	}
	return s.repo.Find(ctx, filter)
}

// Get returns one appointment the caller owns.
func (s *Service) Get(ctx context.Context, caller access.Caller, id string) (*models.Appointment, error) {
	oid, err := models.ParseID(id, what)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound(what)
	}
	if err := access.Check(caller, access.Appointment(a), what); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateStatus moves an appointment to next. Writing the current status again
// changes nothing.
func (s *Service) UpdateStatus(ctx context.Context, caller access.Caller, id string, next models.AppointmentStatus) (*models.Appointment, error) {
	if caller.Role != models.RoleHospital && caller.Role != models.RoleAdmin {
		return nil, apperr.Wrap(apperr.ErrUnauthorized, "only hospitals and admins can change appointment status")
	}
	if !next.Valid() {
		return nil, apperr.Wrap(apperr.ErrValidation, "invalid appointment status %q", next)
	}
	a, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if a.Status == next {
		return a, nil
	}
	if !a.Status.CanTransition(next) {
		return nil, apperr.Wrap(apperr.ErrInvalidTransition, "cannot move appointment from %s to %s", a.Status, next)
	}
	if next == models.AppointmentCompleted && a.Date.After(s.now()) {
		return nil, apperr.Wrap(apperr.ErrInvalidTransition, "cannot complete an appointment before its date")
	}

	a.Status = next
	if err := s.repo.Replace(ctx, a); err != nil {
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(what, string(next)).Inc()

	if next == models.AppointmentCompleted && a.Type == models.AppointmentDonation {
		if _, err := accounts.RecordDonation(ctx, s.donors, a.DonorID, a.Date); err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				return nil, err
			}
			logger.Warnf("appointment %s completed for missing donor %s", a.ID.Hex(), a.DonorID.Hex())
		}
	}
	s.notifyDonor(ctx, a)
	return a, nil
}

func (s *Service) notifyDonor(ctx context.Context, a *models.Appointment) {
	d, err := s.donors.Profile(ctx, a.DonorID)
	if err != nil {
		logger.Debugf("appointment %s: no donor to notify: %v", a.ID.Hex(), err)
		return
	}
	s.notifier.Notify(ctx, notify.AppointmentStatus(d, a))
}

// Cancel removes an appointment the caller owns, logging it first.
// Completed appointments stay on record.
func (s *Service) Cancel(ctx context.Context, caller access.Caller, id string) error {
	a, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if a.Status == models.AppointmentCompleted {
		return apperr.Wrap(apperr.ErrInvalidTransition, "completed appointments cannot be cancelled")
	}
	_, err = s.logs.CaptureAndDelete(ctx, models.ItemAppointment, a, caller.ID, func(ctx context.Context) (bool, error) {
		return s.repo.Delete(ctx, a.ID)
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound(what)
	}
	return err
}

// Counts returns how many of the caller's appointments are in each status.
func (s *Service) Counts(ctx context.Context, caller access.Caller) (map[models.AppointmentStatus]int64, error) {
	list, err := s.List(ctx, caller)
	if err != nil {
		return nil, err
	}
	out := map[models.AppointmentStatus]int64{
		models.AppointmentPending:   0,
		models.AppointmentApproved:  0,
		models.AppointmentCompleted: 0,
		models.AppointmentCancelled: 0,
	}
	for _, a := range list {
		out[a.Status]++
	}
	return out, nil
}
