// Package gemini is the fallback vision extractor. It speaks the
// synchronous generateContent API; streaming chat is not offered here,
// the chat chain uses the chat-completions vendors.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(cfg Config, exec *resilience.Executor) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		exec:       exec,
	}
}

func (c *Client) ID() string { return "gemini" }

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

func (c *Client) Complete(ctx context.Context, req domain.InferenceRequest) (string, error) {
	// The API takes inline bytes only, so a remote image is fetched
	// and re-encoded before the call.
	if req.ImageBase64 == "" && req.ImageURL != "" {
		data, err := c.fetchImage(ctx, req.ImageURL)
		if err != nil {
			return "", err
		}
		req.ImageBase64 = data
	}

	parts := buildParts(req)
	payload := map[string]any{
		"contents": []map[string]any{{"parts": parts}},
		"generationConfig": map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.MaxTokens > 0 {
		payload["generationConfig"].(map[string]any)["maxOutputTokens"] = req.MaxTokens
	}

	var content string
	fn := func(ctx context.Context) error {
		var err error
		content, err = c.generate(ctx, payload)
		return err
	}
	var err error
	if c.exec == nil {
		err = fn(ctx)
	} else {
		err = c.exec.Execute(ctx, "gemini.complete", fn, resilience.ClassifyProviderError)
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) generate(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.ProviderCallError{Provider: "gemini", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &domain.ProviderCallError{
			Provider:   "gemini",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	var decoded struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", &domain.ProviderCallError{Provider: "gemini", StatusCode: resp.StatusCode, Message: "empty candidate"}
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) fetchImage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create image fetch request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.ProviderCallError{Provider: "gemini", Message: "fetch image: " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.ProviderCallError{Provider: "gemini", StatusCode: resp.StatusCode, Message: "fetch image: " + resp.Status}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read image body: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func buildParts(req domain.InferenceRequest) []part {
	text := req.Prompt
	if req.System != "" {
		text = req.System + "\n\n" + req.Prompt
	}
	parts := []part{{Text: text}}

	if req.ImageBase64 != "" {
		parts = append(parts, part{InlineData: &inlineData{MimeType: "image/jpeg", Data: req.ImageBase64}})
	}
	return parts
}
