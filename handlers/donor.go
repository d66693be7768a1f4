package handlers

import (
	"net/http"
	"time"

	"github.com/ananduvinod04/hemohub/internal/accounts"
	"github.com/ananduvinod04/hemohub/internal/appointments"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/response"
	"github.com/gin-gonic/gin"
)

type DonorHandler struct {
	donors       *accounts.DonorService
	hospitals    *accounts.HospitalService
	appointments *appointments.Service
}

func (h *DonorHandler) Routes(rg gin.IRoutes) {
	rg.GET("/dashboard", h.Dashboard)
	rg.GET("/hospitals", h.Hospitals)
	rg.POST("/appointment", h.Book)
	rg.GET("/appointments", h.Appointments)
	rg.GET("/appointment/:id", h.Appointment)
	rg.DELETE("/appointment/:id", h.Cancel)
}

// Dashboard shows eligibility and the donor's appointments by status.
func (h *DonorHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	cl := caller(c)
	d, err := h.donors.Profile(ctx, cl.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	counts, err := h.appointments.Counts(ctx, cl)
	if err != nil {
		response.FromError(c, err)
		return
	}
	var next *time.Time
	if d.LastDonationDate != nil {
		t := d.LastDonationDate.Add(models.DonationInterval)
		next = &t
	}
	response.OK(c, gin.H{
		"donor":             d,
		"isEligible":        d.Eligible(time.Now()),
		"nextEligibleDate":  next,
		"appointments":      counts,
		"totalAppointments": total(counts),
	})
}

func (h *DonorHandler) Hospitals(c *gin.Context) {
	list, err := accounts.Directory(c.Request.Context(), h.hospitals)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

func (h *DonorHandler) Book(c *gin.Context) {
	var in appointments.Booking
	if err := bind(c, &in); err != nil {
		response.FromError(c, err)
		return
	}
	a, err := h.appointments.Book(c.Request.Context(), caller(c), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, "Appointment booked", a)
}

func (h *DonorHandler) Appointments(c *gin.Context) {
	list, err := h.appointments.List(c.Request.Context(), caller(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

func (h *DonorHandler) Appointment(c *gin.Context) {
	a, err := h.appointments.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, a)
}

func (h *DonorHandler) Cancel(c *gin.Context) {
	if err := h.appointments.Cancel(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Appointment cancelled", nil)
}

func total[K comparable](counts map[K]int64) int64 {
	var n int64
	for _, v := range counts {
		n += v
	}
	return n
}
