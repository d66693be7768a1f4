package sessions

import (
	"context"
	"fmt"
	"time"
)

// Service ends sessions by revoking the token id carried in the session token.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// Revoke blacklists tokenID until expiresAt.
func (s *Service) Revoke(ctx context.Context, tokenID, identityID string, expiresAt time.Time) error {
	if tokenID == "" {
		return fmt.Errorf("revoke: empty token id")
	}
	err := s.repo.Revoke(ctx, &Revocation{
		TokenID:    tokenID,
		IdentityID: identityID,
		ExpiresAt:  expiresAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was logged out.
func (s *Service) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	return s.repo.IsRevoked(ctx, tokenID)
}
