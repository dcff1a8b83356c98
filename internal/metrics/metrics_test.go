package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveScan(t *testing.T) {
	m := New()
	m.ObserveScan("Recorded", "")
	m.ObserveScan("Failed", "NotEnrolled")
	m.ObserveScan("Failed", "NotEnrolled")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("Recorded", "none")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.scans.WithLabelValues("Failed", "NotEnrolled")))
}

func TestHandlerExposesRequestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/v1/courses/:id/tally", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/courses/c-1/tally", nil))
	m.ObserveEvent("attendance.recorded", nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `path="/v1/courses/:id/tally"`), body)
	assert.Contains(t, body, `attendance_events_total{result="ok",type="attendance.recorded"} 1`)
}
