package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/internal/sessions"
	"github.com/ananduvinod04/hemohub/internal/tokens"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeResolver knows a fixed set of callers by subject.
type fakeResolver struct {
	callers map[string]access.Caller
	err     error
}

func (f *fakeResolver) Resolve(ctx context.Context, subject string) (access.Caller, error) {
	if f.err != nil {
		return access.Caller{}, f.err
	}
	c, ok := f.callers[subject]
	if !ok {
		return access.Caller{}, apperr.ErrUnauthorized
	}
	return c, nil
}

func setup(t *testing.T, revoked RevocationChecker) (*gin.Engine, *tokens.Service, access.Caller) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := tokens.NewService("test-secret", time.Hour)
	donor := access.Caller{ID: primitive.NewObjectID(), Role: models.RoleDonor, Name: "Asha", Email: "asha@example.com"}
	res := &fakeResolver{callers: map[string]access.Caller{donor.ID.Hex(): donor}}

	g := gin.New()
	g.GET("/", Guard(models.RoleDonor, res, svc, revoked), func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		require.True(t, ok)
		id, exp := TokenFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": caller.ID.Hex(), "name": caller.Name, "tokenId": id, "expires": !exp.IsZero()})
	})
	return g, svc, donor
}

func do(g *gin.Engine, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if mutate != nil {
		mutate(req)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestGuard_NoToken(t *testing.T) {
	g, _, _ := setup(t, nil)
	rw := do(g, nil)
	require.Equal(t, http.StatusUnauthorized, rw.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
}

func TestGuard_BearerAndCookie(t *testing.T) {
	g, svc, donor := setup(t, nil)
	tok, _, err := svc.Issue(donor.ID.Hex())
	require.NoError(t, err)

	for name, set := range map[string]func(*http.Request){
		"bearer": func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) },
		"cookie": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: tok}) },
	} {
		t.Run(name, func(t *testing.T) {
			rw := do(g, set)
			require.Equal(t, http.StatusOK, rw.Code)
			var got map[string]interface{}
			require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
			require.Equal(t, donor.ID.Hex(), got["id"])
			require.Equal(t, "Asha", got["name"])
			require.NotEmpty(t, got["tokenId"])
			require.Equal(t, true, got["expires"])
		})
	}
}

func TestGuard_EmptyBearerFallsBackToCookie(t *testing.T) {
	g, svc, donor := setup(t, nil)
	tok, _, err := svc.Issue(donor.ID.Hex())
	require.NoError(t, err)

	for _, header := range []string{"Bearer ", "Bearer    ", "Bearer"} {
		rw := do(g, func(r *http.Request) {
			r.Header.Set("Authorization", header)
			r.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
		})
		require.Equal(t, http.StatusOK, rw.Code, "header %q", header)
	}

	rw := do(g, func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") })
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestGuard_BadSignatureRejectedLikeMissing(t *testing.T) {
	g, _, donor := setup(t, nil)
	forged, _, err := tokens.NewService("other-secret", time.Hour).Issue(donor.ID.Hex())
	require.NoError(t, err)

	bad := do(g, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+forged) })
	none := do(g, nil)
	require.Equal(t, http.StatusUnauthorized, bad.Code)
	require.Equal(t, none.Code, bad.Code)

	garbage := do(g, func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") })
	require.Equal(t, http.StatusUnauthorized, garbage.Code)
}

func TestGuard_IdentityFromOtherCollection(t *testing.T) {
	g, svc, _ := setup(t, nil)
	tok, _, err := svc.Issue(primitive.NewObjectID().Hex())
	require.NoError(t, err)
	rw := do(g, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) })
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestGuard_StoreErrorIs500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := tokens.NewService("test-secret", time.Hour)
	g := gin.New()
	g.GET("/", Guard(models.RoleAdmin, &fakeResolver{err: errors.New("mongo down")}, svc, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	tok, _, err := svc.Issue(primitive.NewObjectID().Hex())
	require.NoError(t, err)
	rw := do(g, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) })
	require.Equal(t, http.StatusInternalServerError, rw.Code)
}

func TestGuard_RejectsRevokedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	revocations := sessions.NewService(sessions.NewRedisRepository(client, ""))

	g, svc, donor := setup(t, revocations)
	tok, exp, err := svc.Issue(donor.ID.Hex())
	require.NoError(t, err)
	claims, err := svc.Verify(tok)
	require.NoError(t, err)

	auth := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
	require.Equal(t, http.StatusOK, do(g, auth).Code)

	require.NoError(t, revocations.Revoke(context.Background(), claims.ID, donor.ID.Hex(), exp))
	require.Equal(t, http.StatusUnauthorized, do(g, auth).Code)
}
