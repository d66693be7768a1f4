package handlers

import (
	"net/http"
	"strconv"

	"github.com/ananduvinod04/hemohub/internal/accounts"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/jobs"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/response"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	donors     *accounts.DonorService
	hospitals  *accounts.HospitalService
	recipients *accounts.RecipientService
	deleteLogs *deletelog.Service
	runner     *jobs.Runner
	sweep      jobs.Task
	// resources serves the appointment, stock and request routes; admins
	// own every document so the same handlers apply.
	resources *HospitalHandler
}

func (h *AdminHandler) Routes(rg gin.IRoutes) {
	rg.GET("/dashboard", h.Dashboard)
	rg.GET("/users", h.Users)
	rg.DELETE("/delete/:type/:id", h.DeleteUser)

	rg.GET("/appointments", h.resources.Appointments)
	rg.PUT("/appointment/:id/status", h.resources.AppointmentStatus)
	rg.GET("/stock", h.resources.ListStock)
	rg.PUT("/stock/:id", h.resources.UpdateStock)
	rg.GET("/requests", h.resources.Requests)
	rg.PUT("/request/:id/status", h.resources.RequestStatus)

	rg.GET("/deletelogs", h.DeleteLogs)
	rg.GET("/deletelogs/:id", h.DeleteLog)
	rg.POST("/deletelogs/:id/restore", h.Restore)

	rg.GET("/hospitals/:id/license", h.HospitalLicense)
	rg.POST("/jobs/stock-sweep", h.RunStockSweep)
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	cl := caller(c)
	counts := gin.H{}
	for name, count := range map[string]func() (int64, error){
		"donors":     func() (int64, error) { return h.donors.Count(ctx) },
		"hospitals":  func() (int64, error) { return h.hospitals.Count(ctx) },
		"recipients": func() (int64, error) { return h.recipients.Count(ctx) },
	} {
		n, err := count()
		if err != nil {
			response.FromError(c, err)
			return
		}
		counts[name] = n
	}
	appts, err := h.resources.appointments.Counts(ctx, cl)
	if err != nil {
		response.FromError(c, err)
		return
	}
	reqs, err := h.resources.requests.Counts(ctx, cl)
	if err != nil {
		response.FromError(c, err)
		return
	}
	sum, err := h.resources.stock.Summarize(ctx, cl)
	if err != nil {
		response.FromError(c, err)
		return
	}
	logs, err := h.deleteLogs.List(ctx, false)
	if err != nil {
		response.FromError(c, err)
		return
	}
	last, err := h.runner.Last(ctx, jobs.StockExpirySweep)
	if err != nil {
		response.FromError(c, err)
		return
	}
	counts["appointments"] = total(appts)
	counts["requests"] = total(reqs)
	counts["deleteLogs"] = len(logs)
	response.OK(c, gin.H{
		"counts":         counts,
		"appointments":   appts,
		"requests":       reqs,
		"stock":          sum,
		"lastStockSweep": last,
	})
}

func (h *AdminHandler) Users(c *gin.Context) {
	ctx := c.Request.Context()
	donors, err := h.donors.List(ctx)
	if err != nil {
		response.FromError(c, err)
		return
	}
	hospitals, err := h.hospitals.List(ctx)
	if err != nil {
		response.FromError(c, err)
		return
	}
	recipients, err := h.recipients.List(ctx)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"donors": donors, "hospitals": hospitals, "recipients": recipients})
}

// DeleteUser removes a donor, hospital or recipient after logging a snapshot.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	kind := c.Param("type")
	id, err := models.ParseID(c.Param("id"), kind)
	if err != nil {
		response.FromError(c, err)
		return
	}
	cl := caller(c)
	switch models.Role(kind) {
	case models.RoleDonor:
		err = h.donors.Remove(ctx, id, cl, h.deleteLogs)
	case models.RoleHospital:
		err = h.hospitals.Remove(ctx, id, cl, h.deleteLogs)
	case models.RoleRecipient:
		err = h.recipients.Remove(ctx, id, cl, h.deleteLogs)
	default:
		err = apperr.Wrap(apperr.ErrValidation, "invalid user type %q", kind)
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "User deleted", nil)
}

// DeleteLogs lists captured deletions; ?includeRecovered=true also returns restored ones.
func (h *AdminHandler) DeleteLogs(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("includeRecovered"))
	logs, err := h.deleteLogs.List(c.Request.Context(), all)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, logs)
}

func (h *AdminHandler) DeleteLog(c *gin.Context) {
	l, err := h.deleteLogs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, l)
}

func (h *AdminHandler) Restore(c *gin.Context) {
	l, err := h.deleteLogs.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, l.ItemType+" restored", l)
}

func (h *AdminHandler) HospitalLicense(c *gin.Context) {
	id, err := models.ParseID(c.Param("id"), string(models.RoleHospital))
	if err != nil {
		response.FromError(c, err)
		return
	}
	url, err := h.resources.licenses.Link(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"url": url})
}

// RunStockSweep runs the expiry sweep now instead of waiting for the schedule.
func (h *AdminHandler) RunStockSweep(c *gin.Context) {
	run, err := h.runner.Run(c.Request.Context(), jobs.StockExpirySweep, h.sweep)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, run)
}
