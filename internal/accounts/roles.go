package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/validator"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type (
	DonorService     = Service[models.Donor, *models.Donor]
	HospitalService  = Service[models.Hospital, *models.Hospital]
	RecipientService = Service[models.Recipient, *models.Recipient]
	AdminService     = Service[models.Admin, *models.Admin]
)

func NewDonorService(repo Repository[models.Donor]) *DonorService {
	return NewService[models.Donor, *models.Donor](repo, models.RoleDonor)
}

func NewHospitalService(repo Repository[models.Hospital]) *HospitalService {
	// appointments are matched to hospitals by name, so names must not repeat
	return NewService[models.Hospital, *models.Hospital](repo, models.RoleHospital,
		UniqueField[*models.Hospital]{
			Name:    "licenseNumber",
			Value:   func(h *models.Hospital) string { return h.LicenseNumber },
			Message: "hospital with this license number already exists",
		},
		UniqueField[*models.Hospital]{
			Name:    "hospitalName",
			Value:   func(h *models.Hospital) string { return h.HospitalName },
			Message: "hospital with this name already exists",
		},
	)
}

func NewRecipientService(repo Repository[models.Recipient]) *RecipientService {
	return NewService[models.Recipient, *models.Recipient](repo, models.RoleRecipient)
}

func NewAdminService(repo Repository[models.Admin]) *AdminService {
	return NewService[models.Admin, *models.Admin](repo, models.RoleAdmin)
}

// AccountUpdate carries the fields shared by every role's profile update.
type AccountUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

func (u AccountUpdate) applyAccount(a *models.Account) {
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Email != nil {
		a.Email = *u.Email
	}
	if u.Phone != nil {
		a.Phone = *u.Phone
	}
}

func (u AccountUpdate) NewPassword() *string { return u.Password }

type DonorRegistration struct {
	Name             string       `json:"name" validate:"required"`
	Email            string       `json:"email" validate:"required,email"`
	Password         string       `json:"password" validate:"required"`
	Phone            string       `json:"phone"`
	BloodGroup       string       `json:"bloodGroup" validate:"required,bloodgroup"`
	Age              int          `json:"age" validate:"required,gte=0"`
	Weight           float64      `json:"weight" validate:"required,gt=0"`
	Gender           string       `json:"gender"`
	Address          string       `json:"address"`
	LastDonationDate *models.Date `json:"lastDonationDate"`
}

func (r DonorRegistration) Donor(now time.Time) *models.Donor {
	d := &models.Donor{
		Account:          models.Account{Name: r.Name, Email: r.Email, Phone: r.Phone},
		BloodGroup:       r.BloodGroup,
		Age:              r.Age,
		Weight:           r.Weight,
		Gender:           r.Gender,
		Address:          r.Address,
	}
	if r.LastDonationDate != nil && !r.LastDonationDate.IsZero() {
		t := r.LastDonationDate.UTC()
		d.LastDonationDate = &t
	}
	d.IsEligible = d.Eligible(now)
	return d
}

type DonorUpdate struct {
	AccountUpdate
	BloodGroup       *string      `json:"bloodGroup"`
	Age              *int         `json:"age"`
	Weight           *float64     `json:"weight"`
	Gender           *string      `json:"gender"`
	Address          *string      `json:"address"`
	LastDonationDate *models.Date `json:"lastDonationDate"`
}

func (u DonorUpdate) Validate() error {
	if u.BloodGroup != nil && !validator.IsBloodGroup(*u.BloodGroup) {
		return apperr.Wrap(apperr.ErrValidation, "bloodGroup must be a valid blood group")
	}
	if u.Age != nil && *u.Age < 0 {
		return apperr.Wrap(apperr.ErrValidation, "age must be positive")
	}
	if u.Weight != nil && *u.Weight <= 0 {
		return apperr.Wrap(apperr.ErrValidation, "weight must be positive")
	}
	return nil
}

func (u DonorUpdate) Apply(d *models.Donor) {
	u.applyAccount(&d.Account)
	if u.BloodGroup != nil {
		d.BloodGroup = *u.BloodGroup
	}
	if u.Age != nil {
		d.Age = *u.Age
	}
	if u.Weight != nil {
		d.Weight = *u.Weight
	}
	if u.Gender != nil {
		d.Gender = *u.Gender
	}
	if u.Address != nil {
		d.Address = *u.Address
	}
	if u.LastDonationDate != nil && !u.LastDonationDate.IsZero() {
		t := u.LastDonationDate.UTC()
		d.LastDonationDate = &t
	}
	d.IsEligible = d.Eligible(time.Now())
}

// DonorUpdater is the part of DonorService other packages write through.
type DonorUpdater interface {
	Update(ctx context.Context, id primitive.ObjectID, patch Patch[*models.Donor]) (*models.Donor, error)
}

// RecordDonation stamps a completed donation on the donor and recomputes eligibility.
func RecordDonation(ctx context.Context, svc DonorUpdater, donorID primitive.ObjectID, at time.Time) (*models.Donor, error) {
	d := models.Date(at)
	return svc.Update(ctx, donorID, DonorUpdate{LastDonationDate: &d})
}

type HospitalRegistration struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required"`
	Phone         string `json:"phone"`
	HospitalName  string `json:"hospitalName" validate:"required"`
	LicenseNumber string `json:"licenseNumber" validate:"required"`
	Address       string `json:"address"`
}

func (r HospitalRegistration) Hospital() *models.Hospital {
	return &models.Hospital{
		Account:       models.Account{Name: r.Name, Email: r.Email, Phone: r.Phone},
		HospitalName:  strings.TrimSpace(r.HospitalName),
		LicenseNumber: strings.TrimSpace(r.LicenseNumber),
		Address:       r.Address,
	}
}

type HospitalUpdate struct {
	AccountUpdate
	HospitalName       *string `json:"hospitalName"`
	LicenseNumber      *string `json:"licenseNumber"`
	Address            *string `json:"address"`
	LicenseDocumentKey *string `json:"-"`
}

func (u HospitalUpdate) Validate() error {
	if u.HospitalName != nil && strings.TrimSpace(*u.HospitalName) == "" {
		return apperr.Wrap(apperr.ErrValidation, "hospitalName cannot be empty")
	}
	if u.LicenseNumber != nil && strings.TrimSpace(*u.LicenseNumber) == "" {
		return apperr.Wrap(apperr.ErrValidation, "licenseNumber cannot be empty")
	}
	return nil
}

func (u HospitalUpdate) Apply(h *models.Hospital) {
	u.applyAccount(&h.Account)
	if u.HospitalName != nil {
		h.HospitalName = strings.TrimSpace(*u.HospitalName)
	}
	if u.LicenseNumber != nil {
		h.LicenseNumber = strings.TrimSpace(*u.LicenseNumber)
	}
	if u.Address != nil {
		h.Address = *u.Address
	}
	if u.LicenseDocumentKey != nil {
		h.LicenseDocumentKey = *u.LicenseDocumentKey
	}
}

// Directory lists hospitals by id and name for booking forms.
func Directory(ctx context.Context, svc *HospitalService) ([]models.HospitalSummary, error) {
	all, err := svc.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.HospitalSummary, 0, len(all))
	for i := range all {
		out = append(out, models.HospitalSummary{
			ID:           all[i].ID,
			HospitalName: all[i].DisplayName(),
			Address:      all[i].Address,
		})
	}
	return out, nil
}

type RecipientRegistration struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required"`
	Phone            string `json:"phone"`
	BloodGroup       string `json:"bloodGroup" validate:"required,bloodgroup"`
	Age              int    `json:"age" validate:"gte=0"`
	MedicalCondition string `json:"medicalCondition"`
	Address          string `json:"address"`
}

func (r RecipientRegistration) Recipient() *models.Recipient {
	return &models.Recipient{
		Account:          models.Account{Name: r.Name, Email: r.Email, Phone: r.Phone},
		BloodGroup:       r.BloodGroup,
		Age:              r.Age,
		MedicalCondition: r.MedicalCondition,
		Address:          r.Address,
	}
}

type RecipientUpdate struct {
	AccountUpdate
	BloodGroup       *string `json:"bloodGroup"`
	Age              *int    `json:"age"`
	MedicalCondition *string `json:"medicalCondition"`
	Address          *string `json:"address"`
}

func (u RecipientUpdate) Validate() error {
	if u.BloodGroup != nil && !validator.IsBloodGroup(*u.BloodGroup) {
		return apperr.Wrap(apperr.ErrValidation, "bloodGroup must be a valid blood group")
	}
	return nil
}

func (u RecipientUpdate) Apply(r *models.Recipient) {
	u.applyAccount(&r.Account)
	if u.BloodGroup != nil {
		r.BloodGroup = *u.BloodGroup
	}
	if u.Age != nil {
		r.Age = *u.Age
	}
	if u.MedicalCondition != nil {
		r.MedicalCondition = *u.MedicalCondition
	}
	if u.Address != nil {
		r.Address = *u.Address
	}
}

type AdminRegistration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Phone    string `json:"phone"`
}

func (r AdminRegistration) Admin() *models.Admin {
	return &models.Admin{Account: models.Account{Name: r.Name, Email: r.Email, Phone: r.Phone}}
}

type AdminUpdate struct {
	AccountUpdate
}

func (u AdminUpdate) Validate() error { return nil }

func (u AdminUpdate) Apply(a *models.Admin) { u.applyAccount(&a.Account) }
