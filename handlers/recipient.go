package handlers

import (
	"net/http"

	"github.com/ananduvinod04/hemohub/internal/accounts"
	"github.com/ananduvinod04/hemohub/internal/requests"
	"github.com/ananduvinod04/hemohub/pkg/response"
	"github.com/gin-gonic/gin"
)

type RecipientHandler struct {
	recipients *accounts.RecipientService
	hospitals  *accounts.HospitalService
	requests   *requests.Service
}

func (h *RecipientHandler) Routes(rg gin.IRoutes) {
	rg.GET("/dashboard", h.Dashboard)
	rg.GET("/hospitals", h.Hospitals)
	rg.POST("/request", h.Create)
	rg.GET("/requests", h.List)
	rg.DELETE("/request/:id", h.Delete)
}

func (h *RecipientHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	cl := caller(c)
	r, err := h.recipients.Profile(ctx, cl.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	counts, err := h.requests.Counts(ctx, cl)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{
		"recipient":     r,
		"requests":      counts,
		"totalRequests": total(counts),
	})
}

func (h *RecipientHandler) Hospitals(c *gin.Context) {
	list, err := accounts.Directory(c.Request.Context(), h.hospitals)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

func (h *RecipientHandler) Create(c *gin.Context) {
	var in requests.NewRequest
	if err := bind(c, &in); err != nil {
		response.FromError(c, err)
		return
	}
	r, err := h.requests.Create(c.Request.Context(), caller(c), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, "Blood request submitted", r)
}

func (h *RecipientHandler) List(c *gin.Context) {
	list, err := h.requests.List(c.Request.Context(), caller(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

func (h *RecipientHandler) Delete(c *gin.Context) {
	if err := h.requests.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Blood request deleted", nil)
}
