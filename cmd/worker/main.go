package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tagattend/internal/attendance"
	"tagattend/internal/config"
	"tagattend/internal/logger"
	"tagattend/internal/metrics"
	"tagattend/internal/queue"
	"tagattend/internal/report"
	"tagattend/internal/store"
)

// Worker consumes recorded events and maintains the live Redis tallies.
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

	if cfg.QueueBackend != "redis" {
		lg.Fatal("worker needs QUEUE_BACKEND=redis", zap.String("queue_backend", cfg.QueueBackend))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		lg.Warn("redis not reachable yet, consumer will keep retrying", zap.String("addr", cfg.RedisAddr))
	}

	m := metrics.New()
	go serveMetrics(ctx, m, lg)

	q := queue.NewRedisQueue(redisClient.Client, "")
	tally := report.NewTally(redisClient.Client, "")

	messages, err := q.Consume(ctx)
	if err != nil {
		lg.Fatal("queue consume init failed", zap.Error(err))
	}

	lg.Info("worker started, waiting for messages")
	for msg := range messages {
		err := handle(ctx, tally, msg)
		m.ObserveEvent(msg.Type, err)
		if err != nil {
			lg.Warn("event failed", zap.String("type", msg.Type), zap.Error(err))
		}
	}
	lg.Info("worker stopped")
}

func handle(ctx context.Context, tally *report.Tally, msg queue.Message) error {
	if msg.Type != attendance.EventRecorded {
		return nil
	}
	var ev attendance.RecordedEvent
	if err := msg.Decode(&ev); err != nil {
		return err
	}
	return tally.Apply(ctx, ev)
}

// serveMetrics exposes the worker's collectors on :9102 until ctx ends.
func serveMetrics(ctx context.Context, m *metrics.Metrics, lg *zap.Logger) {
	srv := &http.Server{Addr: ":9102", Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lg.Warn("metrics server", zap.Error(err))
	}
}
