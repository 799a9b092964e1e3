// Package bootstrap wires configuration into the object graph shared
// by the api and worker processes.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aura-finance/aura-backend/internal/config"
	"github.com/aura-finance/aura-backend/internal/core/ports"
	"github.com/aura-finance/aura-backend/internal/core/usecase"
	"github.com/aura-finance/aura-backend/internal/infrastructure/auth/gotrue"
	"github.com/aura-finance/aura-backend/internal/infrastructure/keywords"
	"github.com/aura-finance/aura-backend/internal/infrastructure/llm/gemini"
	"github.com/aura-finance/aura-backend/internal/infrastructure/llm/openaichat"
	"github.com/aura-finance/aura-backend/internal/infrastructure/queue/nats"
	"github.com/aura-finance/aura-backend/internal/infrastructure/repository/postgres"
	"github.com/aura-finance/aura-backend/internal/infrastructure/resilience"
	"github.com/aura-finance/aura-backend/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Queue     *nats.Queue
	Analytics ports.AnalyticsStore
	Metrics   *metrics.HTTPServerMetrics

	AnalyzeUC    ports.ReceiptAnalyzer
	CategorizeUC ports.TransactionCategorizer
	CoachUC      ports.CoachChat
	BillingUC    ports.BillingProcessor
	Verifier     ports.TokenVerifier

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if cfg.RevenueCatWebhookSecret == "" && !cfg.WebhookAllowUnsigned {
		return nil, errors.New("REVENUECAT_WEBHOOK_SECRET is required unless WEBHOOK_ALLOW_UNSIGNED=true")
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	profileRepo := postgres.NewProfileRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	coachRepo := postgres.NewCoachRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)
	contextRepo := postgres.NewContextRepository(db)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	matcher, err := keywords.NewMatcher()
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load keyword table: %w", err)
	}

	m := metrics.NewHTTPServerMetrics("api")
	providerExec := resilience.NewExecutor(resilience.ProviderConfig())
	providerTimeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second

	var openAI, deepSeek *openaichat.Client
	var gem *gemini.Client
	if cfg.OpenAIAPIKey != "" {
		openAI = openaichat.New(openaichat.Config{
			ProviderID: "openai",
			BaseURL:    cfg.OpenAIBaseURL,
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			Timeout:    providerTimeout,
		}, providerExec)
	}
	if cfg.DeepSeekAPIKey != "" {
		deepSeek = openaichat.New(openaichat.Config{
			ProviderID: "deepseek",
			BaseURL:    cfg.DeepSeekBaseURL,
			APIKey:     cfg.DeepSeekAPIKey,
			Model:      cfg.DeepSeekModel,
			Timeout:    providerTimeout,
		}, providerExec)
	}
	if cfg.GeminiAPIKey != "" {
		gem = gemini.New(gemini.Config{
			BaseURL: cfg.GeminiBaseURL,
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: providerTimeout,
		}, providerExec)
	}

	var visionChain, textChain []ports.ProviderClient
	var chatChain []ports.StreamingProviderClient
	if openAI != nil {
		visionChain = append(visionChain, openAI)
		textChain = append(textChain, openAI)
	}
	if gem != nil {
		visionChain = append(visionChain, gem)
		textChain = append(textChain, gem)
	}
	if deepSeek != nil {
		chatChain = append(chatChain, deepSeek)
	}
	if openAI != nil {
		chatChain = append(chatChain, openAI)
	}
	if len(visionChain) == 0 && len(chatChain) == 0 {
		log.Warn("no inference providers configured, model-backed requests will fail")
	}

	orchestrator := usecase.NewOrchestrator(log, m)
	analyzeUC := usecase.NewAnalyzeReceiptUseCase(orchestrator, visionChain, textChain, transactionRepo, queue, log)
	categorizeUC := usecase.NewCategorizeUseCase(orchestrator, textChain, matcher, m, log)
	coachUC := usecase.NewCoachChatUseCase(orchestrator, chatChain, contextRepo, coachRepo, m, log)
	billingUC := usecase.NewEntitlementUseCase(profileRepo, queue, m, log)

	app := &App{
		Config: cfg,
		Log:    log,

		Queue:     queue,
		Analytics: analyticsRepo,
		Metrics:   m,

		AnalyzeUC:    analyzeUC,
		CategorizeUC: categorizeUC,
		CoachUC:      coachUC,
		BillingUC:    billingUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}
	if cfg.AuthServiceURL != "" {
		app.Verifier = gotrue.New(cfg.AuthServiceURL, cfg.AuthAnonKey, 5*time.Second)
	}
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
