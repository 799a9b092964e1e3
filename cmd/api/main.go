package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/aura-finance/aura-backend/internal/adapters/http"
	"github.com/aura-finance/aura-backend/internal/bootstrap"
	"github.com/aura-finance/aura-backend/internal/config"
	"github.com/aura-finance/aura-backend/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	webhookAuth := httpadapter.NewWebhookAuthenticator(cfg.RevenueCatWebhookSecret, cfg.WebhookAllowUnsigned)
	router := httpadapter.NewRouter(
		app.AnalyzeUC,
		app.CategorizeUC,
		app.CoachUC,
		app.BillingUC,
		app.Verifier,
		webhookAuth,
		app.Metrics,
		logger,
		httpadapter.RouterConfig{
			RateLimitRPS:     cfg.RateLimitRPS,
			RateLimitBurst:   cfg.RateLimitBurst,
			MaxInFlight:      cfg.MaxInFlightRequests,
			BackpressureWait: time.Duration(cfg.BackpressureWaitMillis) * time.Millisecond,
		},
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
