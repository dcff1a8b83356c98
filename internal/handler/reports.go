package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tagattend/internal/report"
	"tagattend/internal/schedule"
)

// StudentHistory lists a student's records, newest first.
func (h *Handler) StudentHistory(c *gin.Context) {
	limit, offset := pagination(c)
	entries, err := h.d.Service.History(c.Request.Context(), c.Param("id"), c.Query("course_id"), limit, offset)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": entries, "limit": limit, "offset": offset})
}

func (h *Handler) buildReport(c *gin.Context) (report.CourseReport, bool) {
	rep, err := h.d.Reports.Build(c.Request.Context(), c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		abortErr(c, err)
		return report.CourseReport{}, false
	}
	return rep, true
}

// CourseReport returns summary statistics and the roster of a course.
func (h *Handler) CourseReport(c *gin.Context) {
	if rep, ok := h.buildReport(c); ok {
		c.JSON(http.StatusOK, rep)
	}
}

// CourseReportCSV exports the roster as CSV.
func (h *Handler) CourseReportCSV(c *gin.Context) {
	rep, ok := h.buildReport(c)
	if !ok {
		return
	}
	body, err := report.RenderCSV(report.RosterDataset(rep))
	if err != nil {
		abortErr(c, err)
		return
	}
	attach(c, rep, "csv", "text/csv", body)
}

// CourseReportPDF exports the report as PDF.
func (h *Handler) CourseReportPDF(c *gin.Context) {
	rep, ok := h.buildReport(c)
	if !ok {
		return
	}
	body, err := report.RenderPDF(rep)
	if err != nil {
		abortErr(c, err)
		return
	}
	attach(c, rep, "pdf", "application/pdf", body)
}

func attach(c *gin.Context, rep report.CourseReport, ext, contentType string, body []byte) {
	name := fmt.Sprintf("attendance_%s_%s_%s.%s", rep.Course.ID, rep.From, rep.To, ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, body)
}

// CourseTally returns the live counters of a course for a session date,
// today by default.
func (h *Handler) CourseTally(c *gin.Context) {
	if h.d.Tally == nil {
		abort(c, errInternal.with("tally not configured"))
		return
	}
	date := c.Query("date")
	if date == "" {
		date = schedule.SessionDate(time.Now().In(h.d.Location))
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		abort(c, errValidation.with("date must be YYYY-MM-DD"))
		return
	}
	stats, err := h.d.Tally.Get(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course_id": c.Param("id"), "date": date, "stats": stats})
}
