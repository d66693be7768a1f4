package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fake repo for testing
type fakeRepo struct {
	store     map[string]*Revocation
	revokeErr error
}

func (f *fakeRepo) Revoke(ctx context.Context, r *Revocation) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	if f.store == nil {
		f.store = map[string]*Revocation{}
	}
	f.store[r.TokenID] = r
	return nil
}

func (f *fakeRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, ok := f.store[tokenID]
	return ok, nil
}

func TestRevokeAndCheck(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	require.NoError(t, svc.Revoke(ctx, "jti-1", "hospital-1", exp))

	ok, err := svc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hospital-1", repo.store["jti-1"].IdentityID)
	require.False(t, repo.store["jti-1"].CreatedAt.IsZero())

	ok, err = svc.IsRevoked(ctx, "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRevoke_Errors(t *testing.T) {
	svc := NewService(&fakeRepo{revokeErr: errors.New("redis down")})
	require.Error(t, svc.Revoke(context.Background(), "", "x", time.Now()))
	require.ErrorContains(t, svc.Revoke(context.Background(), "jti", "x", time.Now().Add(time.Hour)), "redis down")
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Revoke(ctx, &Revocation{TokenID: "a", ExpiresAt: time.Now().Add(time.Minute)}))
	require.NoError(t, repo.Revoke(ctx, &Revocation{TokenID: "b", ExpiresAt: time.Now().Add(-time.Minute)}))

	ok, _ := repo.IsRevoked(ctx, "a")
	require.True(t, ok)
	ok, _ = repo.IsRevoked(ctx, "b")
	require.False(t, ok)
}
