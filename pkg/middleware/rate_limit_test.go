package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// from issues a request from a fixed client address so tests do not share buckets.
func from(r *gin.Engine, path, addr string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	before := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory"))
	require.Equal(t, http.StatusOK, from(r, "/ok", "10.0.0.1:1000"))
	require.Equal(t, http.StatusOK, from(r, "/ok", "10.0.0.1:1000"))
	require.Equal(t, before+2, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("memory")))
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(2, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, from(r, "/limited", "10.0.0.2:1000"))
	require.Equal(t, http.StatusTooManyRequests, from(r, "/limited", "10.0.0.2:1000"))
	// other clients have their own bucket
	require.Equal(t, http.StatusOK, from(r, "/limited", "10.0.0.3:1000"))

	time.Sleep(600 * time.Millisecond)
	require.Equal(t, http.StatusOK, from(r, "/limited", "10.0.0.2:1000"))
}

func TestRateLimitMiddleware_UsesCallerWhenPresent(t *testing.T) {
	caller := access.Caller{ID: primitive.NewObjectID(), Role: models.RoleDonor}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(callerKey, caller)
		c.Next()
	})
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/u", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, from(r, "/u", "10.0.0.4:1000"))
	// same caller from another address shares the bucket
	require.Equal(t, http.StatusTooManyRequests, from(r, "/u", "10.0.0.5:1000"))
}
