package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tagattend/internal/attendance"
	"tagattend/internal/report"
)

// apiError is the JSON error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

var (
	errValidation   = apiError{Code: "VALIDATION_ERROR", Message: "validation failed", Status: http.StatusBadRequest}
	errNotFound     = apiError{Code: "NOT_FOUND", Message: "resource not found", Status: http.StatusNotFound}
	errUnauthorized = apiError{Code: "UNAUTHORIZED", Message: "unauthorized", Status: http.StatusUnauthorized}
	errInternal     = apiError{Code: "INTERNAL_ERROR", Message: "internal server error", Status: http.StatusInternalServerError}
)

func (e apiError) with(message string) apiError {
	e.Message = message
	return e
}

func abort(c *gin.Context, e apiError) {
	c.AbortWithStatusJSON(e.Status, e)
}

// abortErr maps store and report errors onto the envelope.
func abortErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		abort(c, errNotFound)
	case errors.Is(err, report.ErrBadRange), errors.Is(err, attendance.ErrInvalidDevice):
		abort(c, errValidation.with(err.Error()))
	default:
		_ = c.Error(err)
		abort(c, errInternal)
	}
}
