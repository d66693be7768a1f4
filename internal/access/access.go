// Package access decides whether an authenticated caller may touch a resource.
package access

import (
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caller is the identity resolved by a guard, without its password hash.
type Caller struct {
	ID    primitive.ObjectID `json:"id"`
	Role  models.Role        `json:"role"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// CallerOf builds a Caller from an identity document.
func CallerOf(id models.Identity) Caller {
	a := id.Acct()
	return Caller{ID: a.ID, Role: id.Role(), Name: id.DisplayName(), Email: a.Email}
}

func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

// Owned is implemented by resources that belong to one or more identities.
type Owned interface {
	OwnedBy(c Caller) bool
}

// Allowed reports whether c may read or modify r. Admins may touch everything.
func Allowed(c Caller, r Owned) bool {
	if c.ID.IsZero() {
		return false
	}
	return c.IsAdmin() || r.OwnedBy(c)
}

// Check returns a not-found error when c may not see r, so foreign resources
// are indistinguishable from missing ones.
func Check(c Caller, r Owned, what string) error {
	if !Allowed(c, r) {
		return apperr.NotFound(what)
	}
	return nil
}

type appointment struct{ *models.Appointment }

// Appointment adapts an appointment: the booking donor owns it, and so does
// the hospital whose name it was booked against.
func Appointment(a *models.Appointment) Owned { return appointment{a} }

func (a appointment) OwnedBy(c Caller) bool {
	switch c.Role {
	case models.RoleDonor:
		return a.DonorID == c.ID
	case models.RoleHospital:
		return a.HospitalName != "" && a.HospitalName == c.Name
	}
	return false
}

type stock struct{ *models.BloodStock }

func Stock(s *models.BloodStock) Owned { return stock{s} }

func (s stock) OwnedBy(c Caller) bool {
	return c.Role == models.RoleHospital && s.HospitalID == c.ID
}

type request struct{ *models.RecipientRequest }

// Request adapts a blood request: owned by the recipient who filed it and
// by the hospital it targets.
func Request(r *models.RecipientRequest) Owned { return request{r} }

func (r request) OwnedBy(c Caller) bool {
	switch c.Role {
	case models.RoleRecipient:
		return r.RecipientID == c.ID
	case models.RoleHospital:
		return r.HospitalID == c.ID
	}
	return false
}
