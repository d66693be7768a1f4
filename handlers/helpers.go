package handlers

import (
	"errors"
	"io"

	"github.com/ananduvinod04/hemohub/internal/access"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/apperr"
	"github.com/ananduvinod04/hemohub/pkg/middleware"
	"github.com/ananduvinod04/hemohub/pkg/validator"
	"github.com/gin-gonic/gin"
)

var validate = validator.NewValidator()

// bind decodes the JSON body into v and checks its validate tags.
func bind(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Wrap(apperr.ErrValidation, "request body is required")
		}
		if errors.Is(err, models.ErrInvalidDate) {
			return apperr.Wrap(apperr.ErrValidation, "%s", err.Error())
		}
		return apperr.Wrap(apperr.ErrValidation, "invalid request body")
	}
	if err := validate.Validate(v); err != nil {
		return apperr.Wrap(apperr.ErrValidation, "%s", validate.Summary(err))
	}
	return nil
}

// caller is only called behind a Guard, which always sets it.
func caller(c *gin.Context) access.Caller {
	cl, _ := middleware.CallerFrom(c)
	return cl
}

type statusUpdate struct {
	Status string `json:"status" validate:"required"`
}
