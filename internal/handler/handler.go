package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tagattend/internal/attendance"
	"tagattend/internal/auth"
	"tagattend/internal/httpmiddleware"
	"tagattend/internal/logger"
	"tagattend/internal/metrics"
	"tagattend/internal/report"
)

// DeviceStore persists the refresh tokens of registered readers.
type DeviceStore interface {
	SaveRefreshToken(ctx context.Context, deviceID, token string, expiresAt time.Time) error
	ConsumeRefreshToken(ctx context.Context, deviceID, token string, now time.Time) error
}

// TallyReader reads live per-day counters.
type TallyReader interface {
	Get(ctx context.Context, courseID, sessionDate string) (report.Stats, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the collaborators of the HTTP API. Tally may be nil.
type Deps struct {
	Pipeline *attendance.Pipeline
	Service  *attendance.Service
	Reports  *report.Builder
	Tally    TallyReader
	Devices  DeviceStore
	Issuer   *auth.Issuer
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Limiter  *httpmiddleware.TokenBucket
	Health   map[string]HealthCheck
	Location *time.Location

	AllowedOrigins []string
}

// Handler serves the HTTP API.
type Handler struct {
	d Deps
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	h := &Handler{d: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestIDMiddleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(d.Metrics.GinMiddleware())
	r.Use(cors.New(corsConfig(d.AllowedOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1")
	if d.Limiter != nil {
		v1.Use(d.Limiter.GinMiddleware(httpmiddleware.ClientIP))
	}
	v1.POST("/devices/register", h.RegisterDevice)
	v1.POST("/devices/refresh", h.RefreshDevice)

	authed := v1.Group("", auth.DeviceAuth(d.Issuer))
	authed.POST("/scans", h.SubmitScan)
	authed.GET("/students/:id/attendance", h.StudentHistory)
	authed.GET("/courses/:id/report", h.CourseReport)
	authed.GET("/courses/:id/report.csv", h.CourseReportCSV)
	authed.GET("/courses/:id/report.pdf", h.CourseReportPDF)
	authed.GET("/courses/:id/tally", h.CourseTally)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Healthz reports each dependency and answers 503 if any is down.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.d.Health {
		ok := check(ctx)
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, offset = 50, 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
