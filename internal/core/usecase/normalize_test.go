package usecase

import (
	"testing"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

func TestNormalizeResponseFencedAndUnfencedAgree(t *testing.T) {
	payload := `{"amount": -12.5, "merchant": "Carrefour", "confidence": 0.9}`
	variants := []string{
		payload,
		"```json\n" + payload + "\n```",
		"```\n" + payload + "\n```",
		"  ```json\n" + payload + "\n```  ",
	}

	var results []domain.InferenceResult
	for _, v := range variants {
		results = append(results, NormalizeResponse(v))
	}

	for i, res := range results {
		if res.Kind != domain.ResultSuccess {
			t.Fatalf("variant %d: expected success, got %s", i, res.Kind)
		}
		if res.Structured["merchant"] != "Carrefour" {
			t.Fatalf("variant %d: unexpected structured output: %v", i, res.Structured)
		}
		if res.Structured["amount"] != results[0].Structured["amount"] {
			t.Fatalf("variant %d differs from unwrapped parse", i)
		}
	}
}

func TestNormalizeResponseExtractsEmbeddedObject(t *testing.T) {
	raw := `Here is the result you asked for:
{"category": "food", "items": [{"name": "pizza", "amount": 11}], "confidence": 0.8}
Let me know if you need anything else.`

	res := NormalizeResponse(raw)
	if res.Kind != domain.ResultSuccess {
		t.Fatalf("expected success, got %s", res.Kind)
	}
	if res.Structured["category"] != "food" {
		t.Fatalf("unexpected category: %v", res.Structured["category"])
	}
	if _, ok := res.Structured["items"].([]any); !ok {
		t.Fatalf("nested array lost: %v", res.Structured)
	}
}

func TestNormalizeResponseMalformed(t *testing.T) {
	raw := "I could not produce JSON, sorry."
	res := NormalizeResponse(raw)
	if res.Kind != domain.ResultMalformed {
		t.Fatalf("expected malformed result, got %s", res.Kind)
	}
	if res.RawText != raw {
		t.Fatalf("raw text must be preserved verbatim")
	}
}

func TestNormalizeResponseRejectionTag(t *testing.T) {
	res := NormalizeResponse(`{"error": "image_not_clear"}`)
	if res.Kind != domain.ResultRejected {
		t.Fatalf("expected rejection, got %s", res.Kind)
	}
	if res.RejectionTag != "image_not_clear" {
		t.Fatalf("unexpected tag %q", res.RejectionTag)
	}
}
