package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tagattend/internal/attendance"
	"tagattend/internal/auth"
	"tagattend/internal/scanner"
)

// scanRequest carries one read from a reader. Exactly one of TagID, Payload
// or Error is expected; Payload is a base64 NDEF record payload and Error is
// a reader side failure ("no_tag", "cancelled" or anything else for an
// unreadable tag).
type scanRequest struct {
	StudentID string `json:"student_id" binding:"required,max=128"`
	TagID     string `json:"tag_id" binding:"max=256"`
	Payload   string `json:"payload"`
	Error     string `json:"error"`
}

func (r scanRequest) result() scanner.Result {
	switch {
	case r.Error == "no_tag":
		return scanner.Failed(scanner.ErrNoTag)
	case r.Error == "cancelled":
		return scanner.Failed(scanner.ErrCancelled)
	case r.Error != "":
		return scanner.Failed(scanner.ErrUnreadable)
	case r.Payload != "":
		raw, err := base64.StdEncoding.DecodeString(r.Payload)
		if err != nil {
			return scanner.Failed(scanner.ErrUnreadable)
		}
		id, err := scanner.DecodePayload(raw)
		if err != nil {
			return scanner.Failed(err)
		}
		return scanner.Tag(id)
	default:
		return scanner.Tag(r.TagID)
	}
}

type scanResponse struct {
	State      attendance.State   `json:"state"`
	Reason     attendance.Reason  `json:"reason,omitempty"`
	Code       string             `json:"code"`
	Message    string             `json:"message"`
	CourseName string             `json:"course_name,omitempty"`
	Status     string             `json:"status,omitempty"`
	Record     *attendance.Record `json:"record,omitempty"`
}

// SubmitScan runs the attendance pipeline for a read reported by a reader.
func (h *Handler) SubmitScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errValidation.with(err.Error()))
		return
	}

	out := h.d.Pipeline.Submit(c.Request.Context(), req.result(), req.StudentID)
	h.d.Metrics.ObserveScan(string(out.State), string(out.Reason))

	claims, _ := auth.FromContext(c)
	fields := []zap.Field{
		zap.String("device_id", claims.Subject),
		zap.String("student_id", req.StudentID),
		zap.String("state", string(out.State)),
		zap.String("reason", string(out.Reason)),
	}
	if out.Err != nil {
		fields = append(fields, zap.Error(out.Err))
	}
	if out.Reason == attendance.ReasonPersistenceError {
		h.d.Logger.Error("scan_failed", fields...)
	} else {
		h.d.Logger.Info("scan", fields...)
	}

	c.JSON(scanStatus(out), newScanResponse(out))
}

func newScanResponse(out attendance.Outcome) scanResponse {
	resp := scanResponse{
		State:      out.State,
		Reason:     out.Reason,
		CourseName: out.CourseName(),
		Status:     string(out.Status),
		Record:     out.Record,
	}
	if out.Recorded() {
		resp.Code = "RECORDED"
		resp.Message = "Attendance marked for " + out.CourseName()
		return resp
	}
	resp.Code = reasonCode(out.Reason)
	resp.Message = out.Reason.Message()
	return resp
}

func scanStatus(out attendance.Outcome) int {
	switch {
	case out.Recorded():
		return http.StatusCreated
	case out.Reason == attendance.ReasonScanFailure:
		return http.StatusBadRequest
	case out.Reason == attendance.ReasonPersistenceError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

func reasonCode(r attendance.Reason) string {
	switch r {
	case attendance.ReasonUnknownTag:
		return "UNKNOWN_TAG"
	case attendance.ReasonNotEnrolled:
		return "NOT_ENROLLED"
	case attendance.ReasonOutsideWindow:
		return "OUTSIDE_WINDOW"
	case attendance.ReasonAlreadyMarked:
		return "ALREADY_MARKED"
	case attendance.ReasonScanFailure:
		return "SCAN_FAILURE"
	case attendance.ReasonPersistenceError:
		return "PERSISTENCE_ERROR"
	default:
		return "UNKNOWN"
	}
}
