package usecase

import (
	"context"
	"testing"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
)

type keywordMatcherFake struct {
	match domain.KeywordMatch
	ok    bool
}

func (f *keywordMatcherFake) Match(string, string) (domain.KeywordMatch, bool) {
	return f.match, f.ok
}

type explodingProvider struct {
	t *testing.T
}

func (p *explodingProvider) ID() string { return "model" }

func (p *explodingProvider) Complete(context.Context, domain.InferenceRequest) (string, error) {
	p.t.Fatalf("model provider must not be consulted")
	return "", nil
}

func TestCategorizeConfidentKeywordSkipsModel(t *testing.T) {
	matcher := &keywordMatcherFake{
		match: domain.KeywordMatch{Category: domain.CategoryTransport, Subcategory: "taxi", Confidence: 0.95, Keyword: "uber"},
		ok:    true,
	}
	uc := NewCategorizeUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.ProviderClient{&explodingProvider{t: t}},
		matcher, nil, testLogger(),
	)

	result, err := uc.Categorize(context.Background(), domain.CategorizeRequest{Description: "UBER *TRIP", Amount: -12.50})
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if result.Category != domain.CategoryTransport || result.Subcategory != "taxi" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Confidence != 0.95 {
		t.Fatalf("confidence = %v", result.Confidence)
	}
	if len(result.Keywords) != 1 || result.Keywords[0] != "uber" {
		t.Fatalf("keywords = %v", result.Keywords)
	}
	if result.AIUsed {
		t.Fatalf("keyword answer must not be flagged as model output")
	}
}

func TestCategorizeModelFailureFallsBackToKeywords(t *testing.T) {
	failing := &providerFake{id: "model", err: &domain.ProviderCallError{Provider: "model", StatusCode: 503, Message: "down"}}
	uc := NewCategorizeUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.ProviderClient{failing},
		&keywordMatcherFake{}, nil, testLogger(),
	)

	result, err := uc.Categorize(context.Background(), domain.CategorizeRequest{Description: "XZQW 9931", Amount: -8})
	if err != nil {
		t.Fatalf("a model outage must not fail the request: %v", err)
	}
	if result.Category != domain.CategoryOther || result.Subcategory != "unknown" || result.Confidence != 0.3 {
		t.Fatalf("unexpected fallback result %+v", result)
	}
}

func TestCategorizePositiveAmountDefaultsToIncome(t *testing.T) {
	failing := &providerFake{id: "model", err: &domain.ProviderCallError{Provider: "model", Message: "down"}}
	uc := NewCategorizeUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.ProviderClient{failing},
		&keywordMatcherFake{}, nil, testLogger(),
	)

	result, err := uc.Categorize(context.Background(), domain.CategorizeRequest{Description: "VIR SEPA", Amount: 2400})
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if result.Category != domain.CategoryIncome || result.Confidence != 0.5 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCategorizeModelAnswerNormalized(t *testing.T) {
	model := &providerFake{id: "model", text: `{"category": "subscription", "confidence": 0.85, "keywords": ["stream"]}`}
	uc := NewCategorizeUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.ProviderClient{model},
		&keywordMatcherFake{}, nil, testLogger(),
	)

	result, err := uc.Categorize(context.Background(), domain.CategorizeRequest{Description: "STRMX monthly", Amount: -9.99})
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if result.Category != domain.CategorySubscriptions {
		t.Fatalf("singular alias not normalized: %s", result.Category)
	}
	if result.Subcategory != "unknown" {
		t.Fatalf("missing subcategory must default, got %q", result.Subcategory)
	}
	if !result.AIUsed {
		t.Fatalf("model answer must be flagged ai_used")
	}
}

func TestCategorizeEmptyDescriptionRejected(t *testing.T) {
	uc := NewCategorizeUseCase(NewOrchestrator(testLogger(), nil), nil, &keywordMatcherFake{}, nil, testLogger())

	_, err := uc.Categorize(context.Background(), domain.CategorizeRequest{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
