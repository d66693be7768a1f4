// Package accounts is the credential store: one collection per role, each
// with its own email namespace.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var errBadCredentials = apperr.Wrap(apperr.ErrUnauthorized, "invalid email or password")

// UniqueField is an extra field, beyond email, that must not repeat within a role.
type UniqueField[PT any] struct {
	Name    string
	Value   func(PT) string
	Message string
}

// Patch is a partial profile update: nil fields keep their stored value.
type Patch[PT any] interface {
	Apply(acct PT)
	NewPassword() *string
	Validate() error
}

// Service encapsulates registration, login and profile logic for one role.
type Service[T any, PT identityPtr[T]] struct {
	repo   Repository[T]
	role   models.Role
	unique []UniqueField[PT]
	cost   int
	now    func() time.Time
}

func NewService[T any, PT identityPtr[T]](repo Repository[T], role models.Role, unique ...UniqueField[PT]) *Service[T, PT] {
	return &Service[T, PT]{repo: repo, role: role, unique: unique, cost: bcrypt.DefaultCost, now: time.Now}
}

// Role returns the role this service manages.
func (s *Service[T, PT]) Role() models.Role { return s.role }

// Repository exposes the underlying store, e.g. to register it as a restorer.
func (s *Service[T, PT]) Repository() Repository[T] { return s.repo }

// NormalizeEmail trims and lower-cases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service[T, PT]) checkUnique(ctx context.Context, acct PT) error {
	a := acct.Acct()
	other, err := s.repo.FindBy(ctx, "email", a.Email)
	if err != nil {
		return err
	}
	if other != nil && PT(other).Acct().ID != a.ID {
		return apperr.Wrap(apperr.ErrConflict, "%s with this email already exists", s.role)
	}
	for _, u := range s.unique {
		v := u.Value(acct)
		if v == "" {
			continue
		}
		other, err := s.repo.FindBy(ctx, u.Name, v)
		if err != nil {
			return err
		}
		if other != nil && PT(other).Acct().ID != a.ID {
			return apperr.Wrap(apperr.ErrConflict, "%s", u.Message)
		}
	}
	return nil
}

// Register stores a new identity with a bcrypt hash of password.
func (s *Service[T, PT]) Register(ctx context.Context, acct PT, password string) (PT, error) {
	a := acct.Acct()
	a.Email = NormalizeEmail(a.Email)
	a.Name = strings.TrimSpace(a.Name)
	if a.Email == "" || a.Name == "" || password == "" {
		return nil, apperr.Wrap(apperr.ErrValidation, "name, email and password are required")
	}
	if err := s.checkUnique(ctx, acct); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a.ID = primitive.NilObjectID
	a.Password = string(hash)
	a.CreatedAt = s.now().UTC()
	if err := s.repo.Create(ctx, (*T)(acct)); err != nil {
		return nil, err
	}
	return acct, nil
}

// Login checks the password against the stored hash. Unknown emails and
// wrong passwords produce the same error.
func (s *Service[T, PT]) Login(ctx context.Context, email, password string) (PT, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Wrap(apperr.ErrValidation, "email and password are required")
	}
	found, err := s.repo.FindBy(ctx, "email", email)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errBadCredentials
	}
	acct := PT(found)
	if err := bcrypt.CompareHashAndPassword([]byte(acct.Acct().Password), []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return acct, nil
}

// Get returns the identity with id, password included.
func (s *Service[T, PT]) Get(ctx context.Context, id primitive.ObjectID) (PT, error) {
	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, apperr.NotFound(string(s.role))
	}
	return PT(found), nil
}

// Profile returns the identity without its password hash.
func (s *Service[T, PT]) Profile(ctx context.Context, id primitive.ObjectID) (PT, error) {
	found, err := s.repo.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, apperr.NotFound(string(s.role))
	}
	return PT(found), nil
}

// Update merges patch into the stored identity.
func (s *Service[T, PT]) Update(ctx context.Context, id primitive.ObjectID, patch Patch[PT]) (PT, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	acct, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(acct)
	a := acct.Acct()
	a.ID = id
	a.Email = NormalizeEmail(a.Email)
	if a.Email == "" || strings.TrimSpace(a.Name) == "" {
		return nil, apperr.Wrap(apperr.ErrValidation, "name and email cannot be empty")
	}
	if err := s.checkUnique(ctx, acct); err != nil {
		return nil, err
	}
	if pw := patch.NewPassword(); pw != nil {
		if *pw == "" {
			return nil, apperr.Wrap(apperr.ErrValidation, "password cannot be empty")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*pw), s.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		a.Password = string(hash)
	}
	if err := s.repo.Replace(ctx, (*T)(acct)); err != nil {
		return nil, err
	}
	a.Password = ""
	return acct, nil
}

// List returns all identities of the role, newest first, without password hashes.
func (s *Service[T, PT]) List(ctx context.Context) ([]T, error) {
	return s.repo.List(ctx)
}

func (s *Service[T, PT]) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Resolve loads the caller for a token subject. Any failure is reported as
// apperr.ErrUnauthorized except store errors.
func (s *Service[T, PT]) Resolve(ctx context.Context, subject string) (access.Caller, error) {
	id, err := primitive.ObjectIDFromHex(subject)
	if err != nil {
		return access.Caller{}, apperr.ErrUnauthorized
	}
	found, err := s.repo.Lookup(ctx, id)
	if err != nil {
		return access.Caller{}, err
	}
	if found == nil {
		return access.Caller{}, apperr.ErrUnauthorized
	}
	return access.CallerOf(PT(found)), nil
}

// Remove deletes the identity with id after logging a snapshot of it.
func (s *Service[T, PT]) Remove(ctx context.Context, id primitive.ObjectID, by access.Caller, logs deletelog.Deleter) error {
	acct, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = logs.CaptureAndDelete(ctx, s.role.ItemType(), acct, by.ID, func(ctx context.Context) (bool, error) {
		return s.repo.Delete(ctx, id)
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound(string(s.role))
	}
	return err
}
