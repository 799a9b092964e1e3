package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
)

type transactionStoreFake struct {
	inserted []*domain.Transaction
	err      error
}

func (f *transactionStoreFake) InsertTransaction(_ context.Context, tx *domain.Transaction) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, tx)
	return nil
}

type analyticsPublisherFake struct {
	published []domain.AnalyticsEvent
	err       error
}

func (f *analyticsPublisherFake) Publish(_ context.Context, evt domain.AnalyticsEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, evt)
	return nil
}

const receiptAnswer = `{
  "amount": 23.45,
  "merchant": "Carrefour City",
  "date": "2025-03-14T00:00:00Z",
  "category": "food",
  "subcategory": "groceries",
  "description": "Courses",
  "currency": "EUR",
  "confidence": 0.92,
  "items": [{"name": "Lait", "amount": 1.20, "quantity": 2}]
}`

func TestAnalyzeReceiptPersistsExtraction(t *testing.T) {
	store := &transactionStoreFake{}
	bus := &analyticsPublisherFake{}
	vision := &providerFake{id: "openai", text: receiptAnswer}
	uc := NewAnalyzeReceiptUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.ProviderClient{vision}, nil,
		store, bus, testLogger(),
	)

	result, err := uc.Analyze(context.Background(), domain.AnalyzeRequest{UserID: "u1", ImageURL: "https://cdn/img.jpg"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Kind != domain.ResultSuccess {
		t.Fatalf("result kind = %s", result.Kind)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one persisted transaction, got %d", len(store.inserted))
	}

	tx := store.inserted[0]
	if tx.Amount != 23.45 || tx.Merchant != "Carrefour City" || tx.Category != domain.CategoryFood {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if tx.Source != domain.SourceScan {
		t.Fatalf("image input must be recorded as a scan, got %s", tx.Source)
	}
	if tx.ScanImageURL != "https://cdn/img.jpg" {
		t.Fatalf("scan image url = %q", tx.ScanImageURL)
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(tx.Metadata, &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if _, ok := meta["items"]; !ok {
		t.Fatalf("metadata missing items: %s", tx.Metadata)
	}
	if _, ok := meta["raw_analysis"]; !ok {
		t.Fatalf("metadata missing raw_analysis: %s", tx.Metadata)
	}

	if len(bus.published) != 1 || bus.published[0].Name != "transaction_extracted" {
		t.Fatalf("expected one audit event, got %v", bus.published)
	}
}

func TestAnalyzeReceiptRejectionPersistsNothing(t *testing.T) {
	store := &transactionStoreFake{}
	vision := &providerFake{id: "openai", text: `{"error": "not_a_receipt", "message": "this is a cat"}`}
	uc := NewAnalyzeReceiptUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.ProviderClient{vision}, nil,
		store, &analyticsPublisherFake{}, testLogger(),
	)

	result, err := uc.Analyze(context.Background(), domain.AnalyzeRequest{UserID: "u1", ImageBase64: "aGk="})
	if err != nil {
		t.Fatalf("a rejection is a value, not an error: %v", err)
	}
	if result.Kind != domain.ResultRejected || result.RejectionTag != "not_a_receipt" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("nothing may be persisted for a rejected image")
	}
}

func TestAnalyzeVoiceTranscriptUsesTextChain(t *testing.T) {
	store := &transactionStoreFake{}
	text := &providerFake{id: "openai", text: `{"amount": 4.50, "merchant": "Boulangerie", "category": "food"}`}
	vision := &explodingProvider{t: t}
	uc := NewAnalyzeReceiptUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.ProviderClient{vision}, []ports.ProviderClient{text},
		store, &analyticsPublisherFake{}, testLogger(),
	)

	_, err := uc.Analyze(context.Background(), domain.AnalyzeRequest{UserID: "u1", Transcript: "j'ai payé 4 euros 50 à la boulangerie"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one persisted transaction")
	}
	if store.inserted[0].Source != domain.SourceVoice {
		t.Fatalf("transcript input must be recorded as voice, got %s", store.inserted[0].Source)
	}
}

func TestAnalyzeAuditFailureIsSwallowed(t *testing.T) {
	store := &transactionStoreFake{}
	bus := &analyticsPublisherFake{err: context.DeadlineExceeded}
	vision := &providerFake{id: "openai", text: receiptAnswer}
	uc := NewAnalyzeReceiptUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.ProviderClient{vision}, nil,
		store, bus, testLogger(),
	)

	_, err := uc.Analyze(context.Background(), domain.AnalyzeRequest{UserID: "u1", ImageURL: "https://cdn/img.jpg"})
	if err != nil {
		t.Fatalf("audit publish failure must not fail the request: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("transaction must still be persisted")
	}
}

func TestAnalyzeWithoutInputRejected(t *testing.T) {
	uc := NewAnalyzeReceiptUseCase(NewOrchestrator(testLogger(), nil), nil, nil, &transactionStoreFake{}, &analyticsPublisherFake{}, testLogger())

	_, err := uc.Analyze(context.Background(), domain.AnalyzeRequest{UserID: "u1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
