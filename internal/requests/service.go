// Package requests handles recipients' blood requests to hospitals.
package requests

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/document"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/internal/notify"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/logger"
	"github.com/ananduvinod04/hemohub/pkg/metrics"
	"github.com/ananduvinod04/hemohub/pkg/validator"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const what = "request"

type Repository = document.Store[models.RecipientRequest]

func NewMongoRepository(col *mongo.Collection) Repository {
	return document.NewMongoStore[models.RecipientRequest](col, what)
}

func NewMemoryRepository() *document.MemoryStore[models.RecipientRequest, *models.RecipientRequest] {
	return document.NewMemoryStore[models.RecipientRequest](what)
}

type Hospitals interface {
	Profile(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error)
}

type Recipients interface {
	Profile(ctx context.Context, id primitive.ObjectID) (*models.Recipient, error)
}

type NewRequest struct {
	HospitalID  string             `json:"hospitalId" validate:"required"`
	BloodGroup  string             `json:"bloodGroup" validate:"required,bloodgroup"`
	Quantity    int                `json:"quantity" validate:"required,gt=0"`
	RequestType models.RequestType `json:"requestType"`
	Note        string             `json:"note"`
}

type Service struct {
	repo       Repository
	hospitals  Hospitals
	recipients Recipients
	logs       deletelog.Deleter
	notifier   notify.Notifier
	now        func() time.Time
}

func NewService(repo Repository, hospitals Hospitals, recipients Recipients, logs deletelog.Deleter, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Noop{}
	}
	return &Service{repo: repo, hospitals: hospitals, recipients: recipients, logs: logs, notifier: n, now: time.Now}
}

func (s *Service) Repository() Repository { return s.repo }

// Create files a Pending request from the calling recipient to a hospital.
func (s *Service) Create(ctx context.Context, caller access.Caller, in NewRequest) (*models.RecipientRequest, error) {
	if caller.Role != models.RoleRecipient {
		return nil, apperr.Wrap(apperr.ErrUnauthorized, "only recipients can request blood")
	}
	if !validator.IsBloodGroup(in.BloodGroup) {
		return nil, apperr.Wrap(apperr.ErrValidation, "bloodGroup must be a valid blood group")
	}
	if in.Quantity <= 0 {
		return nil, apperr.Wrap(apperr.ErrValidation, "quantity must be positive")
	}
	switch in.RequestType {
	case "":
		in.RequestType = models.RequestNormal
	case models.RequestNormal, models.RequestEmergency:
	default:
		return nil, apperr.Wrap(apperr.ErrValidation, "requestType must be %q or %q", models.RequestNormal, models.RequestEmergency)
	}
	hid, err := models.ParseID(in.HospitalID, "hospital")
	if err != nil {
		return nil, err
	}
	if _, err := s.hospitals.Profile(ctx, hid); err != nil {
		return nil, err
	}
	r := &models.RecipientRequest{
		RecipientID: caller.ID,
		HospitalID:  hid,
		BloodGroup:  in.BloodGroup,
		Quantity:    in.Quantity,
		RequestType: in.RequestType,
		Status:      models.RequestPending,
		Note:        strings.TrimSpace(in.Note),
	}
	if err := s.repo.Insert(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the requests the caller filed or received, newest first.
func (s *Service) List(ctx context.Context, caller access.Caller) ([]models.RecipientRequest, error) {
	switch caller.Role {
	case models.RoleRecipient:
		return s.repo.Find(ctx, bson.M{"recipientId": caller.ID})
	case models.RoleHospital:
		return s.repo.Find(ctx, bson.M{"hospitalId": caller.ID})
	case models.RoleAdmin:
		return s.repo.Find(ctx, bson.M{})
	}
	return []models.RecipientRequest{}, nil
}

func (s *Service) Get(ctx context.Context, caller access.Caller, id string) (*models.RecipientRequest, error) {
	oid, err := models.ParseID(id, what)
	if err != nil {
		return nil, err
	}
	r, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound(what)
	}
	if err := access.Check(caller, access.Request(r), what); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateStatus moves a request to next. Writing the current status again
// changes nothing.
func (s *Service) UpdateStatus(ctx context.Context, caller access.Caller, id string, next models.RequestStatus) (*models.RecipientRequest, error) {
	if caller.Role != models.RoleHospital && caller.Role != models.RoleAdmin {
		return nil, apperr.Wrap(apperr.ErrUnauthorized, "only hospitals and admins can change request status")
	}
	if !next.Valid() {
		return nil, apperr.Wrap(apperr.ErrValidation, "invalid request status %q", next)
	}
	r, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if r.Status == next {
		return r, nil
	}
	if !r.Status.CanTransition(next) {
		return nil, apperr.Wrap(apperr.ErrInvalidTransition, "cannot move request from %s to %s", r.Status, next)
	}
	r.Status = next
	if err := s.repo.Replace(ctx, r); err != nil {
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(what, string(next)).Inc()
	s.notifyRecipient(ctx, r)
	return r, nil
}

func (s *Service) notifyRecipient(ctx context.Context, r *models.RecipientRequest) {
	rec, err := s.recipients.Profile(ctx, r.RecipientID)
	if err != nil {
		logger.Debugf("request %s: no recipient to notify: %v", r.ID.Hex(), err)
		return
	}
	hospital := "the hospital"
	if h, err := s.hospitals.Profile(ctx, r.HospitalID); err == nil {
		hospital = h.DisplayName()
	}
	s.notifier.Notify(ctx, notify.RequestStatus(rec, r, hospital))
}

// Delete withdraws a request the caller owns after logging it.
func (s *Service) Delete(ctx context.Context, caller access.Caller, id string) error {
	r, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	_, err = s.logs.CaptureAndDelete(ctx, models.ItemRecipientRequest, r, caller.ID, func(ctx context.Context) (bool, error) {
		return s.repo.Delete(ctx, r.ID)
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound(what)
	}
	return err
}

// Counts returns how many of the caller's requests are in each status.
func (s *Service) Counts(ctx context.Context, caller access.Caller) (map[models.RequestStatus]int64, error) {
	list, err := s.List(ctx, caller)
	if err != nil {
		return nil, err
	}
	out := map[models.RequestStatus]int64{
		models.RequestPending:   0,
		models.RequestApproved:  0,
		models.RequestRejected:  0,
		models.RequestFulfilled: 0,
	}
	for _, r := range list {
		out[r.Status]++
	}
	return out, nil
}
