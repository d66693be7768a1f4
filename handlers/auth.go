package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/accounts"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/internal/sessions"
	"github.com/ananduvinod04/hemohub/internal/tokens"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/logger"
	"github.com/ananduvinod04/hemohub/pkg/metrics"
	"github.com/ananduvinod04/hemohub/pkg/middleware"
	"github.com/ananduvinod04/hemohub/pkg/response"
	"github.com/gin-gonic/gin"
)

// LoginRequest is the body of POST /<role>/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type identity[T any] interface {
	*T
	models.Identity
}

// CookieOptions controls the session cookie written on login.
type CookieOptions struct {
	Secure bool
}

func (o CookieOptions) write(c *gin.Context, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if o.Secure {
		// cross-site frontends need None, which browsers only accept on Secure cookies
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: sameSite,
	})
}

// AuthHandler serves register, login, logout and profile for one role.
type AuthHandler[T any, PT identity[T]] struct {
	accounts *accounts.Service[T, PT]
	tokens   *tokens.Service
	sessions *sessions.Service
	cookie   CookieOptions

	// decodeRegistration reads the role's registration body.
	decodeRegistration func(c *gin.Context) (PT, string, error)
	// decodeUpdate reads the role's profile patch.
	decodeUpdate func(c *gin.Context) (accounts.Patch[PT], error)
}

// Routes mounts register and login on public and the rest on private,
// which must already carry the role's guard.
func (h *AuthHandler[T, PT]) Routes(public, private gin.IRoutes) {
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)
	private.POST("/logout", h.Logout)
	private.GET("/profile", h.GetProfile)
	private.PUT("/profile", h.UpdateProfile)
}

func (h *AuthHandler[T, PT]) role() string { return string(h.accounts.Role()) }

func (h *AuthHandler[T, PT]) Register(c *gin.Context) {
	acct, password, err := h.decodeRegistration(c)
	if err != nil {
		response.FromError(c, err)
		return
	}
	created, err := h.accounts.Register(c.Request.Context(), acct, password)
	if err != nil {
		response.FromError(c, err)
		return
	}
	logger.Infof("%s registered: %s", h.role(), created.Acct().ID.Hex())
	response.Created(c, "Registration successful", created)
}

// Login checks credentials, issues a token and sets it as the session cookie.
func (h *AuthHandler[T, PT]) Login(c *gin.Context) {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		response.FromError(c, err)
		return
	}
	acct, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			metrics.AuthFailures.WithLabelValues(h.role(), "bad_credentials").Inc()
		}
		response.FromError(c, err)
		return
	}
	tok, exp, err := h.tokens.Issue(acct.Acct().ID.Hex())
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.cookie.write(c, tok, int(time.Until(exp).Seconds()))
	response.Success(c, http.StatusOK, "Login successful", gin.H{
		"token":     tok,
		"expiresAt": exp,
		"user":      access.CallerOf(acct),
	})
}

// Logout revokes the presented token until it would have expired and clears the cookie.
func (h *AuthHandler[T, PT]) Logout(c *gin.Context) {
	cl := caller(c)
	id, exp := middleware.TokenFrom(c)
	if exp.IsZero() {
		exp = time.Now().Add(h.tokens.TTL())
	}
	if err := h.sessions.Revoke(c.Request.Context(), id, cl.ID.Hex(), exp); err != nil {
		response.FromError(c, err)
		return
	}
	h.cookie.write(c, "", -1)
	response.Success(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler[T, PT]) GetProfile(c *gin.Context) {
	acct, err := h.accounts.Profile(c.Request.Context(), caller(c).ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, acct)
}

// UpdateProfile merges the body into the caller's profile. Absent fields keep their value.
func (h *AuthHandler[T, PT]) UpdateProfile(c *gin.Context) {
	patch, err := h.decodeUpdate(c)
	if err != nil {
		response.FromError(c, err)
		return
	}
	acct, err := h.accounts.Update(c.Request.Context(), caller(c).ID, patch)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Profile updated", acct)
}

// decodeWith builds an update decoder for a concrete patch type.
func decodeWith[P accounts.Patch[PT], PT any]() func(c *gin.Context) (accounts.Patch[PT], error) {
	return func(c *gin.Context) (accounts.Patch[PT], error) {
		var p P
		if err := bind(c, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
}

func newDonorAuth(svc *accounts.DonorService, t *tokens.Service, s *sessions.Service, co CookieOptions) *AuthHandler[models.Donor, *models.Donor] {
	return &AuthHandler[models.Donor, *models.Donor]{
		accounts: svc, tokens: t, sessions: s, cookie: co,
		decodeRegistration: func(c *gin.Context) (*models.Donor, string, error) {
			var in accounts.DonorRegistration
			if err := bind(c, &in); err != nil {
				return nil, "", err
			}
			return in.Donor(time.Now()), in.Password, nil
		},
		decodeUpdate: decodeWith[accounts.DonorUpdate, *models.Donor](),
	}
}

func newHospitalAuth(svc *accounts.HospitalService, t *tokens.Service, s *sessions.Service, co CookieOptions) *AuthHandler[models.Hospital, *models.Hospital] {
	return &AuthHandler[models.Hospital, *models.Hospital]{
		accounts: svc, tokens: t, sessions: s, cookie: co,
		decodeRegistration: func(c *gin.Context) (*models.Hospital, string, error) {
			var in accounts.HospitalRegistration
			if err := bind(c, &in); err != nil {
				return nil, "", err
			}
			return in.Hospital(), in.Password, nil
		},
		decodeUpdate: decodeWith[accounts.HospitalUpdate, *models.Hospital](),
	}
}

func newRecipientAuth(svc *accounts.RecipientService, t *tokens.Service, s *sessions.Service, co CookieOptions) *AuthHandler[models.Recipient, *models.Recipient] {
	return &AuthHandler[models.Recipient, *models.Recipient]{
		accounts: svc, tokens: t, sessions: s, cookie: co,
		decodeRegistration: func(c *gin.Context) (*models.Recipient, string, error) {
			var in accounts.RecipientRegistration
			if err := bind(c, &in); err != nil {
				return nil, "", err
			}
			return in.Recipient(), in.Password, nil
		},
		decodeUpdate: decodeWith[accounts.RecipientUpdate, *models.Recipient](),
	}
}

func newAdminAuth(svc *accounts.AdminService, t *tokens.Service, s *sessions.Service, co CookieOptions) *AuthHandler[models.Admin, *models.Admin] {
	return &AuthHandler[models.Admin, *models.Admin]{
		accounts: svc, tokens: t, sessions: s, cookie: co,
		decodeRegistration: func(c *gin.Context) (*models.Admin, string, error) {
			var in accounts.AdminRegistration
			if err := bind(c, &in); err != nil {
				return nil, "", err
			}
			return in.Admin(), in.Password, nil
		},
		decodeUpdate: decodeWith[accounts.AdminUpdate, *models.Admin](),
	}
}
