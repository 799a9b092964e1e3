package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aura-finance/aura-backend/internal/bootstrap"
	"github.com/aura-finance/aura-backend/internal/config"
	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/observability/logging"
	"github.com/aura-finance/aura-backend/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{Addr: ":" + cfg.WorkerMetricsPort, Handler: metricsMux}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnalyticsEvents(ctx, func(handlerCtx context.Context, evt domain.AnalyticsEvent) error {
		if !evt.OccurredAt.IsZero() {
			workerMetrics.ObserveQueueLag("worker", time.Since(evt.OccurredAt))
		}
		workerMetrics.StartEvent()
		start := time.Now()

		insertCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		insertErr := app.Analytics.InsertEvent(insertCtx, evt)

		workerMetrics.FinishEvent("worker", time.Since(start), insertErr)
		return insertErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
