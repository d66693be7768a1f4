package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/internal/tokens"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/metrics"
	"github.com/ananduvinod04/hemohub/pkg/response"
	"github.com/gin-gonic/gin"
)

// CookieName is the HTTP-only cookie carrying the session token.
const CookieName = "token"

const (
	callerKey  = "caller"
	tokenIDKey = "tokenID"
	expiryKey  = "tokenExpiry"
)

// Verifier checks a raw token and returns its claims.
type Verifier interface {
	Verify(raw string) (*tokens.Claims, error)
}

// Resolver loads the caller a token subject belongs to, from one identity
// collection. Unknown subjects are reported as apperr.ErrUnauthorized.
type Resolver interface {
	Resolve(ctx context.Context, subject string) (access.Caller, error)
}

// RevocationChecker reports whether a token id was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RawToken returns the bearer token, falling back to the session cookie
// when the header is absent or carries an empty bearer value.
func RawToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if tok, ok := strings.CutPrefix(auth, "Bearer "); ok {
			if tok = strings.TrimSpace(tok); tok != "" {
				return tok
			}
		}
	}
	if tok, err := c.Cookie(CookieName); err == nil {
		return tok
	}
	return ""
}

// Guard admits requests whose token belongs to an identity of role. One
// instance is mounted per role group.
func Guard(role models.Role, resolver Resolver, verifier Verifier, revoked RevocationChecker) gin.HandlerFunc {
	reject := func(c *gin.Context, reason, msg string) {
		metrics.AuthFailures.WithLabelValues(string(role), reason).Inc()
		response.Unauthorized(c, msg)
	}
	return func(c *gin.Context) {
		raw := RawToken(c)
		if raw == "" {
			reject(c, "missing", "Not authorized, no token")
			return
		}
		claims, err := verifier.Verify(raw)
		if err != nil {
			reject(c, "invalid", "Not authorized, token failed")
			return
		}
		ctx := c.Request.Context()
		if revoked != nil {
			gone, err := revoked.IsRevoked(ctx, claims.ID)
			if err != nil {
				response.FromError(c, err)
				c.Abort()
				return
			}
			if gone {
				reject(c, "revoked", "Not authorized, token revoked")
				return
			}
		}
		caller, err := resolver.Resolve(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, apperr.ErrUnauthorized) {
				reject(c, "unknown_identity", "Not authorized, account not found")
				return
			}
			response.FromError(c, err)
			c.Abort()
			return
		}

		c.Set(callerKey, caller)
		c.Set(tokenIDKey, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(expiryKey, claims.ExpiresAt.Time)
		}
		c.Next()
	}
}

// CallerFrom returns the caller set by Guard.
func CallerFrom(c *gin.Context) (access.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return access.Caller{}, false
	}
	caller, ok := v.(access.Caller)
	return caller, ok
}

// TokenFrom returns the id and expiry of the token Guard accepted.
func TokenFrom(c *gin.Context) (string, time.Time) {
	id := c.GetString(tokenIDKey)
	exp, _ := c.Get(expiryKey)
	t, _ := exp.(time.Time)
	return id, t
}
