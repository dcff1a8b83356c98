package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tagattend/internal/attendance"
	"tagattend/internal/auth"
	"tagattend/internal/config"
	"tagattend/internal/handler"
	"tagattend/internal/httpmiddleware"
	"tagattend/internal/logger"
	"tagattend/internal/metrics"
	"tagattend/internal/queue"
	"tagattend/internal/report"
	"tagattend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, lg); err != nil {
		lg.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(ctx, db); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	defer redisClient.Close()

	m := metrics.New()
	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(256)
		if err := drainInProcess(ctx, mem, m, lg); err != nil {
			return err
		}
		q = mem
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	repo := attendance.NewRepository(db.Client)
	pipeline := attendance.NewPipeline(repo,
		attendance.WithLocation(cfg.Location),
		attendance.OnRecorded(publishRecorded(q, lg)),
	)

	health := map[string]handler.HealthCheck{"db": db.Healthy}
	var tally handler.TallyReader
	if cfg.QueueBackend == "redis" {
		health["redis"] = redisClient.Healthy
		tally = report.NewTally(redisClient.Client, "")
	}

	r := handler.NewRouter(handler.Deps{
		Pipeline:       pipeline,
		Service:        attendance.NewService(repo),
		Reports:        report.NewBuilder(repo, cfg.Location),
		Tally:          tally,
		Devices:        repo,
		Issuer:         auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL),
		Metrics:        m,
		Logger:         lg,
		Limiter:        httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		Health:         health,
		Location:       cfg.Location,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("db_driver", cfg.DBDriver), zap.String("timezone", cfg.Location.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	lg.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("server forced shutdown", zap.Error(err))
	}
	lg.Info("server exited")
	return nil
}

// drainInProcess consumes events of the in-memory queue, which has no worker
// process, so that publishing never blocks on a full buffer.
func drainInProcess(ctx context.Context, q queue.Queue, m *metrics.Metrics, lg *zap.Logger) error {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	go func() {
		for msg := range msgs {
			var ev attendance.RecordedEvent
			err := msg.Decode(&ev)
			m.ObserveEvent(msg.Type, err)
			if err != nil {
				lg.Warn("drop event", zap.String("type", msg.Type), zap.Error(err))
				continue
			}
			lg.Debug("attendance recorded", zap.String("record_id", ev.RecordID), zap.String("course_id", ev.CourseID))
		}
	}()
	return nil
}

// publishRecorded queues an event for every stored record. Publishing is
// best effort: the record is already durable.
func publishRecorded(q queue.Queue, lg *zap.Logger) attendance.RecordedFunc {
	return func(ctx context.Context, out attendance.Outcome) {
		ev, ok := attendance.NewRecordedEvent(out)
		if !ok {
			return
		}
		msg, err := queue.NewMessage(attendance.EventRecorded, ev)
		if err != nil {
			lg.Error("encode recorded event", zap.Error(err))
			return
		}
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := q.Publish(pubCtx, msg); err != nil {
			lg.Warn("queue publish failed", zap.String("record_id", ev.RecordID), zap.Error(err))
		}
	}
}
