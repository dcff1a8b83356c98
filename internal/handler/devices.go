package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tagattend/internal/attendance"
	"tagattend/internal/auth"
)

type registerRequest struct {
	DeviceID string `json:"device_id" binding:"required,max=128"`
}

// RegisterDevice records a reader and issues its first token pair.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errValidation.with(err.Error()))
		return
	}
	if err := h.d.Service.RegisterDevice(c.Request.Context(), req.DeviceID); err != nil {
		abortErr(c, err)
		return
	}
	h.issue(c, req.DeviceID, http.StatusCreated)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshDevice rotates a refresh token. Each refresh token works once.
func (h *Handler) RefreshDevice(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errValidation.with(err.Error()))
		return
	}
	claims, err := h.d.Issuer.Parse(req.RefreshToken, auth.KindRefresh)
	if err != nil {
		abort(c, errUnauthorized.with("invalid refresh token"))
		return
	}
	err = h.d.Devices.ConsumeRefreshToken(c.Request.Context(), claims.Subject, req.RefreshToken, time.Now().UTC())
	if errors.Is(err, attendance.ErrNotFound) {
		abort(c, errUnauthorized.with("refresh token already used or revoked"))
		return
	}
	if err != nil {
		abortErr(c, err)
		return
	}
	h.issue(c, claims.Subject, http.StatusOK)
}

func (h *Handler) issue(c *gin.Context, deviceID string, status int) {
	tokens, err := h.d.Issuer.Issue(deviceID, auth.RoleReader)
	if err != nil {
		abortErr(c, err)
		return
	}
	if err := h.d.Devices.SaveRefreshToken(c.Request.Context(), deviceID, tokens.RefreshToken, tokens.RefreshExp.UTC()); err != nil {
		abortErr(c, err)
		return
	}
	h.d.Logger.Info("reader_tokens_issued", zap.String("device_id", deviceID))
	c.JSON(status, tokens)
}
