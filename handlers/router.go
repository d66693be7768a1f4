package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ananduvinod04/hemohub/internal/accounts"
	"github.com/ananduvinod04/hemohub/internal/appointments"
	"github.com/ananduvinod04/hemohub/internal/config"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/jobs"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/internal/requests"
	"github.com/ananduvinod04/hemohub/internal/sessions"
	"github.com/ananduvinod04/hemohub/internal/stock"
	"github.com/ananduvinod04/hemohub/internal/storage"
	"github.com/ananduvinod04/hemohub/internal/tokens"
	"github.com/ananduvinod04/hemohub/pkg/logger"
	"github.com/ananduvinod04/hemohub/pkg/middleware"
	"github.com/ananduvinod04/hemohub/pkg/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// Services is everything the HTTP layer calls into.
type Services struct {
	Donors       *accounts.DonorService
	Hospitals    *accounts.HospitalService
	Recipients   *accounts.RecipientService
	Admins       *accounts.AdminService
	Tokens       *tokens.Service
	Sessions     *sessions.Service
	Appointments *appointments.Service
	Stock        *stock.Service
	Requests     *requests.Service
	DeleteLogs   *deletelog.Service
	Licenses     *storage.Licenses
	Jobs         *jobs.Runner
}

// Check reports whether one dependency is usable; /ready runs all of them.
type Check func(ctx context.Context) error

type Options struct {
	FrontendURL  string
	CookieSecure bool
	RateLimit    config.RateLimitConfig
	// Redis backs the shared rate limiter when RateLimit.UseRedis is set.
	Redis  *redis.Client
	Checks map[string]Check
}

func rateLimiter(o Options) gin.HandlerFunc {
	if !o.RateLimit.Enabled {
		return nil
	}
	if o.RateLimit.UseRedis && o.Redis != nil {
		win := time.Duration(o.RateLimit.WindowSeconds) * time.Second
		return middleware.RedisRateLimitMiddleware(o.Redis, o.RateLimit.RPS, o.RateLimit.Burst, win)
	}
	return middleware.RateLimitMiddleware(o.RateLimit.RPS, o.RateLimit.Burst)
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := handlers[:0]
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// NewRouter builds the gin engine with every route group mounted.
func NewRouter(s Services, o Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.CustomRecovery(func(c *gin.Context, err any) {
		logger.Errorf("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		response.Abort(c, http.StatusInternalServerError, "Internal server error")
	}))
	if o.FrontendURL != "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{o.FrontendURL},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(middleware.PrometheusMiddleware())

	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "healthy"})
	})
	r.GET("/ready", readiness(o.Checks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterSwagger(r)

	limit := rateLimiter(o)
	cookie := CookieOptions{Secure: o.CookieSecure}
	api := r.Group("/api")

	mount := func(path string, role models.Role, resolver middleware.Resolver) (public, private *gin.RouterGroup) {
		public = api.Group(path, chain(limit)...)
		private = api.Group(path, chain(middleware.Guard(role, resolver, s.Tokens, s.Sessions), limit)...)
		return public, private
	}

	pub, priv := mount("/donor", models.RoleDonor, s.Donors)
	newDonorAuth(s.Donors, s.Tokens, s.Sessions, cookie).Routes(pub, priv)
	(&DonorHandler{donors: s.Donors, hospitals: s.Hospitals, appointments: s.Appointments}).Routes(priv)

	hospital := &HospitalHandler{stock: s.Stock, appointments: s.Appointments, requests: s.Requests, licenses: s.Licenses}
	pub, priv = mount("/hospital", models.RoleHospital, s.Hospitals)
	newHospitalAuth(s.Hospitals, s.Tokens, s.Sessions, cookie).Routes(pub, priv)
	hospital.Routes(priv)

	pub, priv = mount("/recipient", models.RoleRecipient, s.Recipients)
	newRecipientAuth(s.Recipients, s.Tokens, s.Sessions, cookie).Routes(pub, priv)
	(&RecipientHandler{recipients: s.Recipients, hospitals: s.Hospitals, requests: s.Requests}).Routes(priv)

	pub, priv = mount("/admin", models.RoleAdmin, s.Admins)
	newAdminAuth(s.Admins, s.Tokens, s.Sessions, cookie).Routes(pub, priv)
	(&AdminHandler{
		donors:     s.Donors,
		hospitals:  s.Hospitals,
		recipients: s.Recipients,
		deleteLogs: s.DeleteLogs,
		runner:     s.Jobs,
		sweep:      s.Stock.ExpireLots,
		resources:  hospital,
	}).Routes(priv)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})
	return r
}

// readiness answers 200 only when every check passes.
func readiness(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{}
		for name, check := range checks {
			err := check(ctx)
			deps[name] = err == nil
			if err != nil {
				logger.Warnf("readiness: %s: %v", name, err)
				ready = false
			}
		}
		body := gin.H{"deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			response.Error(c, http.StatusServiceUnavailable, "Service not ready", body)
			return
		}
		body["status"] = "ready"
		response.OK(c, body)
	}
}
