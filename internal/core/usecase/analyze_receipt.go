package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
)

// AnalyzeReceiptUseCase extracts a transaction from a receipt image or
// a voice transcript, persists it and returns the structured result.
type AnalyzeReceiptUseCase struct {
	orchestrator    *Orchestrator
	visionProviders []ports.ProviderClient
	textProviders   []ports.ProviderClient
	transactions    ports.TransactionStore
	analytics       ports.AnalyticsPublisher
	log             *slog.Logger
	now             func() time.Time
}

func NewAnalyzeReceiptUseCase(
	orchestrator *Orchestrator,
	visionProviders []ports.ProviderClient,
	textProviders []ports.ProviderClient,
	transactions ports.TransactionStore,
	analytics ports.AnalyticsPublisher,
	log *slog.Logger,
) *AnalyzeReceiptUseCase {
	return &AnalyzeReceiptUseCase{
		orchestrator:    orchestrator,
		visionProviders: visionProviders,
		textProviders:   textProviders,
		transactions:    transactions,
		analytics:       analytics,
		log:             log,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (uc *AnalyzeReceiptUseCase) Analyze(ctx context.Context, req domain.AnalyzeRequest) (domain.InferenceResult, error) {
	if req.UserID == "" {
		return domain.InferenceResult{}, domain.WrapError(domain.ErrInvalidInput, "analyze", errors.New("userId is required"))
	}

	var (
		infReq    domain.InferenceRequest
		providers []ports.ProviderClient
		source    domain.TransactionSource
	)
	switch {
	case req.Transcript != "":
		infReq = domain.InferenceRequest{
			Task:        domain.TaskExtractVoice,
			Prompt:      buildVoicePrompt(req.Transcript),
			MaxTokens:   500,
			Temperature: 0.2,
			ForceJSON:   true,
		}
		providers = uc.textProviders
		source = domain.SourceVoice
	case req.ImageURL != "" || req.ImageBase64 != "":
		infReq = domain.InferenceRequest{
			Task:        domain.TaskExtractReceipt,
			System:      receiptSystemPrompt,
			Prompt:      buildReceiptPrompt(uc.now()),
			ImageURL:    req.ImageURL,
			ImageBase64: req.ImageBase64,
			MaxTokens:   1000,
			Temperature: 0.2,
		}
		providers = uc.visionProviders
		source = domain.SourceScan
	default:
		return domain.InferenceResult{}, domain.WrapError(domain.ErrInvalidInput, "analyze", errors.New("imageUrl, imageBase64 or transcript is required"))
	}

	result, err := uc.orchestrator.Complete(ctx, infReq, providers)
	if err != nil {
		return domain.InferenceResult{}, err
	}
	if result.Kind != domain.ResultSuccess {
		// Rejections and malformed output reach the client as values;
		// nothing is persisted for them.
		return result, nil
	}

	extracted, err := domain.ExtractedTransactionFromStructured(result.Structured, uc.now())
	if err != nil {
		return domain.MalformedResult(mustJSON(result.Structured)), nil
	}

	tx := uc.buildTransaction(req, extracted, source, result.Structured)
	if err := uc.transactions.InsertTransaction(ctx, tx); err != nil {
		return domain.InferenceResult{}, fmt.Errorf("save transaction: %w", err)
	}

	uc.publishAudit(ctx, req.UserID, tx, source)
	return result, nil
}

func (uc *AnalyzeReceiptUseCase) buildTransaction(
	req domain.AnalyzeRequest,
	extracted domain.ExtractedTransaction,
	source domain.TransactionSource,
	structured map[string]any,
) *domain.Transaction {
	metadata, _ := json.Marshal(map[string]any{
		"items":        extracted.Items,
		"raw_analysis": structured,
	})
	return &domain.Transaction{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Amount:       extracted.Amount,
		Merchant:     extracted.Merchant,
		Category:     extracted.Category,
		Subcategory:  extracted.Subcategory,
		Description:  extracted.Description,
		Date:         extracted.Date,
		Currency:     extracted.Currency,
		Source:       source,
		ScanImageURL: req.ImageURL,
		AIConfidence: extracted.Confidence,
		Metadata:     metadata,
		CreatedAt:    uc.now(),
	}
}

func (uc *AnalyzeReceiptUseCase) publishAudit(ctx context.Context, userID string, tx *domain.Transaction, source domain.TransactionSource) {
	evt := domain.AnalyticsEvent{
		ID:       uuid.NewString(),
		Name:     "transaction_extracted",
		UserID:   userID,
		Platform: "api",
		Properties: map[string]any{
			"source":     string(source),
			"category":   string(tx.Category),
			"amount":     tx.Amount,
			"currency":   tx.Currency,
			"confidence": tx.AIConfidence,
		},
		OccurredAt: uc.now(),
	}
	if err := uc.analytics.Publish(ctx, evt); err != nil {
		uc.log.Warn("analytics_publish_failed", "event", evt.Name, "error", err)
	}
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
