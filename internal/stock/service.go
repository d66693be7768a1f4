// Package stock manages hospital blood stock lots and their expiry.
package stock

import (
	"context"
	"errors"
	"time"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/metrics"
	"github.com/ananduvinod04/hemohub/pkg/validator"
	"go.mongodb.org/mongo-driver/bson"
)

type NewLot struct {
	BloodGroup string      `json:"bloodGroup" validate:"required,bloodgroup"`
	Units      int         `json:"units" validate:"required,gt=0"`
	ExpiryDate models.Date `json:"expiryDate" validate:"required"`
}

// LotUpdate is a partial update; nil fields keep their stored value.
type LotUpdate struct {
	BloodGroup *string      `json:"bloodGroup"`
	Units      *int         `json:"units"`
	ExpiryDate *models.Date `json:"expiryDate"`
}

// Summary is the stock overview on the hospital dashboard.
type Summary struct {
	UnitsByGroup map[string]int `json:"unitsByGroup"`
	TotalUnits   int            `json:"totalUnits"`
	Lots         int            `json:"lots"`
	ExpiredLots  int            `json:"expiredLots"`
}

type Service struct {
	repo Repository
	logs deletelog.Deleter
	now  func() time.Time
}

func NewService(repo Repository, logs deletelog.Deleter) *Service {
	return &Service{repo: repo, logs: logs, now: time.Now}
}

func (s *Service) Repository() Repository { return s.repo }

// Add records a new lot for the calling hospital.
func (s *Service) Add(ctx context.Context, caller access.Caller, lot NewLot) (*models.BloodStock, error) {
	if caller.Role != models.RoleHospital {
		return nil, apperr.Wrap(apperr.ErrUnauthorized, "only hospitals can add stock")
	}
	if !validator.IsBloodGroup(lot.BloodGroup) {
		return nil, apperr.Wrap(apperr.ErrValidation, "bloodGroup must be a valid blood group")
	}
	if lot.Units <= 0 {
		return nil, apperr.Wrap(apperr.ErrValidation, "units must be positive")
	}
	if lot.ExpiryDate.IsZero() {
		return nil, apperr.Wrap(apperr.ErrValidation, "expiryDate is required")
	}
	b := &models.BloodStock{
		HospitalID: caller.ID,
		BloodGroup: lot.BloodGroup,
		Units:      lot.Units,
		ExpiryDate: lot.ExpiryDate.UTC(),
	}
	b.Refresh(s.now())
	if err := s.repo.Insert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// List returns the caller's lots, newest first. Admins see every hospital's.
func (s *Service) List(ctx context.Context, caller access.Caller) ([]models.BloodStock, error) {
	switch caller.Role {
	case models.RoleHospital:
		return s.repo.Find(ctx, bson.M{"hospitalId": caller.ID})
	case models.RoleAdmin:
		return s.repo.Find(ctx, bson.M{})
	}
	return []models.BloodStock{}, nil
}

func (s *Service) Get(ctx context.Context, caller access.Caller, id string) (*models.BloodStock, error) {
	oid, err := models.ParseID(id, what)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperr.NotFound(what)
	}
	if err := access.Check(caller, access.Stock(b), what); err != nil {
		return nil, err
	}
	return b, nil
}

// Update merges u into a lot the caller owns and re-derives its status.
func (s *Service) Update(ctx context.Context, caller access.Caller, id string, u LotUpdate) (*models.BloodStock, error) {
	if u.BloodGroup != nil && !validator.IsBloodGroup(*u.BloodGroup) {
		return nil, apperr.Wrap(apperr.ErrValidation, "bloodGroup must be a valid blood group")
	}
	if u.Units != nil && *u.Units < 0 {
		return nil, apperr.Wrap(apperr.ErrValidation, "units cannot be negative")
	}
	b, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if u.BloodGroup != nil {
		b.BloodGroup = *u.BloodGroup
	}
	if u.Units != nil {
		b.Units = *u.Units
	}
	if u.ExpiryDate != nil && !u.ExpiryDate.IsZero() {
		b.ExpiryDate = u.ExpiryDate.UTC()
	}
	b.Refresh(s.now())
	if err := s.repo.Replace(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a lot the caller owns after logging it.
func (s *Service) Delete(ctx context.Context, caller access.Caller, id string) error {
	b, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	_, err = s.logs.CaptureAndDelete(ctx, models.ItemBloodStock, b, caller.ID, func(ctx context.Context) (bool, error) {
		return s.repo.Delete(ctx, b.ID)
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound(what)
	}
	return err
}

// Summarize totals the caller's available units per blood group.
func (s *Service) Summarize(ctx context.Context, caller access.Caller) (*Summary, error) {
	lots, err := s.List(ctx, caller)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sum := &Summary{UnitsByGroup: map[string]int{}, Lots: len(lots)}
	for i := range lots {
		lots[i].Refresh(now)
		if lots[i].Status == models.StockExpired {
			sum.ExpiredLots++
			continue
		}
		sum.UnitsByGroup[lots[i].BloodGroup] += lots[i].Units
		sum.TotalUnits += lots[i].Units
	}
	return sum, nil
}

// ExpireLots marks lots past their expiry date as Expired.
func (s *Service) ExpireLots(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	metrics.StockExpired.Add(float64(n))
	return n, nil
}
