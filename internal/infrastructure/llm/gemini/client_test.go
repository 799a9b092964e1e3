package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

func TestCompleteInlinesBase64Image(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("api key missing from query, got %q", r.URL.RawQuery)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"amount\":12}"}]}}]}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "g-key", Model: "gemini-1.5-flash"}, nil)
	content, err := client.Complete(context.Background(), domain.InferenceRequest{
		Prompt:      "Read the receipt.",
		ImageBase64: "aGVsbG8=",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if content != `{"amount":12}` {
		t.Fatalf("content = %q", content)
	}

	contents, _ := captured["contents"].([]any)
	first, _ := contents[0].(map[string]any)
	parts, _ := first["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected text plus inline image, got %v", parts)
	}
	image, _ := parts[1].(map[string]any)
	inline, _ := image["inline_data"].(map[string]any)
	if inline["data"] != "aGVsbG8=" {
		t.Fatalf("inline data = %v", inline)
	}
}

func TestCompleteFetchesRemoteImage(t *testing.T) {
	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("raw-bytes"))
	}))
	defer imageServer.Close()

	var captured map[string]any
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer apiServer.Close()

	client := New(Config{BaseURL: apiServer.URL, APIKey: "k", Model: "m"}, nil)
	_, err := client.Complete(context.Background(), domain.InferenceRequest{
		Prompt:   "Read it.",
		ImageURL: imageServer.URL + "/receipt.jpg",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	contents, _ := captured["contents"].([]any)
	first, _ := contents[0].(map[string]any)
	parts, _ := first["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("remote image must be inlined, got %v", parts)
	}
}

func TestCompleteNon2xxReturnsProviderCallError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "k", Model: "m"}, nil)
	_, err := client.Complete(context.Background(), domain.InferenceRequest{Prompt: "hi"})

	var callErr *domain.ProviderCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected ProviderCallError, got %v", err)
	}
	if callErr.Provider != "gemini" || callErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected error %+v", callErr)
	}
}

func TestCompleteEmptyCandidateIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "k", Model: "m"}, nil)
	_, err := client.Complete(context.Background(), domain.InferenceRequest{Prompt: "hi"})

	var callErr *domain.ProviderCallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected ProviderCallError for empty candidate, got %v", err)
	}
}
