package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/ananduvinod04/hemohub/internal/accounts"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MaxLicenseSize = 10 << 20
	linkTTL        = 15 * time.Minute
)

var allowedLicenseTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Hospitals is the hospital store license uploads are recorded in.
type Hospitals interface {
	Profile(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error)
	Update(ctx context.Context, id primitive.ObjectID, patch accounts.Patch[*models.Hospital]) (*models.Hospital, error)
}

// Licenses stores hospital license scans and hands out short-lived links.
// A nil store means object storage is not configured.
type Licenses struct {
	store     ObjectStore
	hospitals Hospitals
}

func NewLicenses(store ObjectStore, hospitals Hospitals) *Licenses {
	return &Licenses{store: store, hospitals: hospitals}
}

var errNoStorage = apperr.Wrap(apperr.ErrUnavailable, "document storage is not configured")

// Available reports whether object storage is configured.
func (l *Licenses) Available() error {
	if l.store == nil {
		return errNoStorage
	}
	return nil
}

// LicenseKey is the object key for a hospital's license file.
func LicenseKey(hospitalID primitive.ObjectID, filename string) string {
	name := unsafeChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "license"
	}
	return fmt.Sprintf("licenses/%s/%s", hospitalID.Hex(), name)
}

// Upload stores the file and records its key on the hospital.
func (l *Licenses) Upload(ctx context.Context, hospitalID primitive.ObjectID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if l.store == nil {
		return "", errNoStorage
	}
	if size <= 0 || size > MaxLicenseSize {
		return "", apperr.Wrap(apperr.ErrValidation, "license file must be between 1 byte and %d MB", MaxLicenseSize>>20)
	}
	if !allowedLicenseTypes[contentType] {
		return "", apperr.Wrap(apperr.ErrValidation, "license file must be a PDF, PNG or JPEG")
	}
	key := LicenseKey(hospitalID, filename)
	if err := l.store.Put(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("upload license: %w", err)
	}
	if _, err := l.hospitals.Update(ctx, hospitalID, accounts.HospitalUpdate{LicenseDocumentKey: &key}); err != nil {
		return "", err
	}
	return key, nil
}

// Link returns a presigned URL for the hospital's license file.
func (l *Licenses) Link(ctx context.Context, hospitalID primitive.ObjectID) (string, error) {
	if l.store == nil {
		return "", errNoStorage
	}
	h, err := l.hospitals.Profile(ctx, hospitalID)
	if err != nil {
		return "", err
	}
	if h.LicenseDocumentKey == "" {
		return "", apperr.NotFound("license document")
	}
	u, err := l.store.PresignedURL(ctx, h.LicenseDocumentKey, linkTTL)
	if err != nil {
		return "", fmt.Errorf("presign license: %w", err)
	}
	return u, nil
}
