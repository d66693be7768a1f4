package handlers

import (
	"net/http"

	"github.com/ananduvinod04/hemohub/internal/appointments"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/internal/requests"
	"github.com/ananduvinod04/hemohub/internal/stock"
	"github.com/ananduvinod04/hemohub/internal/storage"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/response"
	"github.com/gin-gonic/gin"
)

// licenseField is the multipart field carrying the license scan.
const licenseField = "license"

type HospitalHandler struct {
	stock        *stock.Service
	appointments *appointments.Service
	requests     *requests.Service
	licenses     *storage.Licenses
}

func (h *HospitalHandler) Routes(rg gin.IRoutes) {
	rg.GET("/dashboard", h.Dashboard)
	rg.POST("/stock", h.AddStock)
	rg.GET("/stock", h.ListStock)
	rg.PUT("/stock/:id", h.UpdateStock)
	rg.DELETE("/stock/:id", h.DeleteStock)
	rg.GET("/appointments", h.Appointments)
	rg.PUT("/appointment/:id/status", h.AppointmentStatus)
	rg.GET("/requests", h.Requests)
	rg.PUT("/request/:id/status", h.RequestStatus)
	rg.POST("/license", h.UploadLicense)
	rg.GET("/license", h.LicenseLink)
}

func (h *HospitalHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	cl := caller(c)
	sum, err := h.stock.Summarize(ctx, cl)
	if err != nil {
		response.FromError(c, err)
		return
	}
	appts, err := h.appointments.Counts(ctx, cl)
	if err != nil {
		response.FromError(c, err)
		return
	}
	reqs, err := h.requests.Counts(ctx, cl)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{
		"stock":               sum,
		"appointments":        appts,
		"requests":            reqs,
		"pendingAppointments": appts[models.AppointmentPending],
		"pendingRequests":     reqs[models.RequestPending],
	})
}

func (h *HospitalHandler) AddStock(c *gin.Context) {
	var in stock.NewLot
	if err := bind(c, &in); err != nil {
		response.FromError(c, err)
		return
	}
	lot, err := h.stock.Add(c.Request.Context(), caller(c), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, "Blood stock added", lot)
}

func (h *HospitalHandler) ListStock(c *gin.Context) {
	list, err := h.stock.List(c.Request.Context(), caller(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

func (h *HospitalHandler) UpdateStock(c *gin.Context) {
	var in stock.LotUpdate
	if err := bind(c, &in); err != nil {
		response.FromError(c, err)
		return
	}
	lot, err := h.stock.Update(c.Request.Context(), caller(c), c.Param("id"), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Blood stock updated", lot)
}

func (h *HospitalHandler) DeleteStock(c *gin.Context) {
	if err := h.stock.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Blood stock deleted", nil)
}

func (h *HospitalHandler) Appointments(c *gin.Context) {
	list, err := h.appointments.List(c.Request.Context(), caller(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// AppointmentStatus is shared with the admin routes; scoping comes from the caller.
func (h *HospitalHandler) AppointmentStatus(c *gin.Context) {
	var in statusUpdate
	if err := bind(c, &in); err != nil {
		response.FromError(c, err)
		return
	}
	a, err := h.appointments.UpdateStatus(c.Request.Context(), caller(c), c.Param("id"), models.AppointmentStatus(in.Status))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Appointment status updated", a)
}

func (h *HospitalHandler) Requests(c *gin.Context) {
	list, err := h.requests.List(c.Request.Context(), caller(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

func (h *HospitalHandler) RequestStatus(c *gin.Context) {
	var in statusUpdate
	if err := bind(c, &in); err != nil {
		response.FromError(c, err)
		return
	}
	r, err := h.requests.UpdateStatus(c.Request.Context(), caller(c), c.Param("id"), models.RequestStatus(in.Status))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Request status updated", r)
}

// UploadLicense stores a multipart license scan in object storage.
func (h *HospitalHandler) UploadLicense(c *gin.Context) {
	if err := h.licenses.Available(); err != nil {
		response.FromError(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxLicenseSize+(1<<20))
	fh, err := c.FormFile(licenseField)
	if err != nil {
		response.FromError(c, apperr.Wrap(apperr.ErrValidation, "%s file is required (max %d MB)", licenseField, storage.MaxLicenseSize>>20))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer f.Close()

	key, err := h.licenses.Upload(c.Request.Context(), caller(c).ID, fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, "License uploaded", gin.H{"key": key})
}

func (h *HospitalHandler) LicenseLink(c *gin.Context) {
	url, err := h.licenses.Link(c.Request.Context(), caller(c).ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"url": url})
}
