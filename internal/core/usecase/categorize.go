package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
)

// CategorizationRecorder observes the provenance of each answer.
type CategorizationRecorder interface {
	RecordCategorization(source string)
}

type nopCategorizationRecorder struct{}

func (nopCategorizationRecorder) RecordCategorization(string) {}

// CategorizeUseCase answers with the keyword table when it is
// confident enough, and only then pays for a model call. A model
// failure falls back to whatever the keyword pass produced.
type CategorizeUseCase struct {
	orchestrator *Orchestrator
	providers    []ports.ProviderClient
	keywords     ports.KeywordMatcher
	recorder     CategorizationRecorder
	log          *slog.Logger
}

func NewCategorizeUseCase(
	orchestrator *Orchestrator,
	providers []ports.ProviderClient,
	keywords ports.KeywordMatcher,
	recorder CategorizationRecorder,
	log *slog.Logger,
) *CategorizeUseCase {
	if recorder == nil {
		recorder = nopCategorizationRecorder{}
	}
	return &CategorizeUseCase{
		orchestrator: orchestrator,
		providers:    providers,
		keywords:     keywords,
		recorder:     recorder,
		log:          log,
	}
}

func (uc *CategorizeUseCase) Categorize(ctx context.Context, req domain.CategorizeRequest) (domain.CategorizationResult, error) {
	if req.Description == "" {
		return domain.CategorizationResult{}, domain.WrapError(domain.ErrInvalidInput, "categorize", errors.New("description is required"))
	}

	keywordResult := uc.categorizeByKeywords(req)
	if keywordResult.Confidence >= domain.KeywordShortCircuitConfidence {
		uc.recorder.RecordCategorization("keyword")
		return keywordResult, nil
	}

	modelResult, err := uc.categorizeWithModel(ctx, req)
	if err != nil {
		uc.log.Warn("model_categorization_failed", "error", err)
		uc.recorder.RecordCategorization("keyword_fallback")
		return keywordResult, nil
	}

	uc.recorder.RecordCategorization("model")
	return modelResult, nil
}

func (uc *CategorizeUseCase) categorizeByKeywords(req domain.CategorizeRequest) domain.CategorizationResult {
	if match, ok := uc.keywords.Match(req.Description, req.MerchantName); ok {
		return domain.CategorizationResult{
			Category:    match.Category,
			Subcategory: match.Subcategory,
			Confidence:  match.Confidence,
			Keywords:    []string{match.Keyword},
			AIUsed:      false,
		}
	}

	if req.Amount > 0 {
		return domain.CategorizationResult{
			Category:    domain.CategoryIncome,
			Subcategory: "other",
			Confidence:  0.5,
			Keywords:    []string{},
			AIUsed:      false,
		}
	}

	return domain.CategorizationResult{
		Category:    domain.CategoryOther,
		Subcategory: "unknown",
		Confidence:  0.3,
		Keywords:    []string{},
		AIUsed:      false,
	}
}

func (uc *CategorizeUseCase) categorizeWithModel(ctx context.Context, req domain.CategorizeRequest) (domain.CategorizationResult, error) {
	infReq := domain.InferenceRequest{
		Task:        domain.TaskCategorize,
		System:      categorizeSystemPrompt,
		Prompt:      buildCategorizePrompt(req),
		MaxTokens:   200,
		Temperature: 0.3,
		ForceJSON:   true,
	}

	result, err := uc.orchestrator.Complete(ctx, infReq, uc.providers)
	if err != nil {
		return domain.CategorizationResult{}, err
	}
	if result.Kind != domain.ResultSuccess {
		return domain.CategorizationResult{}, errors.New("model returned no usable categorization: " + string(result.Kind))
	}

	raw, err := json.Marshal(result.Structured)
	if err != nil {
		return domain.CategorizationResult{}, err
	}
	var decoded struct {
		Category    string   `json:"category"`
		Subcategory string   `json:"subcategory"`
		Confidence  float64  `json:"confidence"`
		Keywords    []string `json:"keywords"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.CategorizationResult{}, err
	}

	out := domain.CategorizationResult{
		Category:    domain.NormalizeCategory(decoded.Category),
		Subcategory: decoded.Subcategory,
		Confidence:  decoded.Confidence,
		Keywords:    decoded.Keywords,
		AIUsed:      true,
	}
	if out.Subcategory == "" {
		out.Subcategory = "unknown"
	}
	if out.Confidence == 0 {
		out.Confidence = 0.7
	}
	if out.Keywords == nil {
		out.Keywords = []string{}
	}
	return out, nil
}
