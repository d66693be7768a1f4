package models

import (
	"time"

	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names one identity collection. Each role registers and logs in separately.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleHospital  Role = "hospital"
	RoleRecipient Role = "recipient"
	RoleAdmin     Role = "admin"
)

// Collection returns the Mongo collection backing the role.
func (r Role) Collection() string {
	switch r {
	case RoleDonor:
		return "donors"
	case RoleHospital:
		return "hospitals"
	case RoleRecipient:
		return "recipients"
	case RoleAdmin:
		return "admins"
	}
	return ""
}

// ItemType is the delete-log tag for documents of the role.
func (r Role) ItemType() string {
	switch r {
	case RoleDonor:
		return ItemDonor
	case RoleHospital:
		return ItemHospital
	case RoleRecipient:
		return ItemRecipient
	case RoleAdmin:
		return "Admin"
	}
	return ""
}

// Account is embedded in every identity document.
type Account struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Acct gives generic code access to the embedded account.
func (a *Account) Acct() *Account { return a }

// Identity is implemented by pointers to every role document.
type Identity interface {
	Acct() *Account
	Role() Role
	DisplayName() string
}

type Donor struct {
	Account          `bson:",inline"`
	BloodGroup       string     `bson:"bloodGroup" json:"bloodGroup"`
	Age              int        `bson:"age" json:"age"`
	Weight           float64    `bson:"weight" json:"weight"`
	Gender           string     `bson:"gender,omitempty" json:"gender,omitempty"`
	Address          string     `bson:"address,omitempty" json:"address,omitempty"`
	LastDonationDate *time.Time `bson:"lastDonationDate,omitempty" json:"lastDonationDate,omitempty"`
	IsEligible       bool       `bson:"isEligible" json:"isEligible"`
}

func (d *Donor) Role() Role          { return RoleDonor }
func (d *Donor) DisplayName() string { return d.Name }

const (
	MinDonorAge      = 18
	MaxDonorAge      = 65
	MinDonorWeightKg = 50
	DonationInterval = 90 * 24 * time.Hour
)

// Eligible reports whether the donor may donate at now.
func (d *Donor) Eligible(now time.Time) bool {
	if d.Age < MinDonorAge || d.Age > MaxDonorAge || d.Weight < MinDonorWeightKg {
		return false
	}
	if d.LastDonationDate != nil && now.Sub(*d.LastDonationDate) < DonationInterval {
		return false
	}
	return true
}

type Hospital struct {
	Account            `bson:",inline"`
	HospitalName       string `bson:"hospitalName" json:"hospitalName"`
	LicenseNumber      string `bson:"licenseNumber" json:"licenseNumber"`
	Address            string `bson:"address,omitempty" json:"address,omitempty"`
	LicenseDocumentKey string `bson:"licenseDocumentKey,omitempty" json:"licenseDocumentKey,omitempty"`
}

func (h *Hospital) Role() Role { return RoleHospital }

// DisplayName is the hospital name appointments refer to.
func (h *Hospital) DisplayName() string {
	if h.HospitalName != "" {
		return h.HospitalName
	}
	return h.Name
}

type Recipient struct {
	Account          `bson:",inline"`
	BloodGroup       string `bson:"bloodGroup" json:"bloodGroup"`
	Age              int    `bson:"age" json:"age"`
	MedicalCondition string `bson:"medicalCondition,omitempty" json:"medicalCondition,omitempty"`
	Address          string `bson:"address,omitempty" json:"address,omitempty"`
}

func (r *Recipient) Role() Role          { return RoleRecipient }
func (r *Recipient) DisplayName() string { return r.Name }

type Admin struct {
	Account `bson:",inline"`
}

func (a *Admin) Role() Role          { return RoleAdmin }
func (a *Admin) DisplayName() string { return a.Name }

// HospitalSummary is the directory entry donors and recipients pick from.
type HospitalSummary struct {
	ID           primitive.ObjectID `json:"id"`
	HospitalName string             `json:"hospitalName"`
	Address      string             `json:"address,omitempty"`
}

// ParseID parses a hex object id from a request path. Malformed ids are
// reported as a missing what.
func ParseID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(what)
	}
	return id, nil
}
