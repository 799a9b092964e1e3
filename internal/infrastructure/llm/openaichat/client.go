// Package openaichat speaks the chat-completions wire dialect shared
// by OpenAI and DeepSeek. One Client instance per vendor; the
// ProviderID distinguishes them in logs, metrics and results.
package openaichat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
	"github.com/aura-finance/aura-backend/internal/infrastructure/llm/sse"
	"github.com/aura-finance/aura-backend/internal/infrastructure/resilience"
)

type Config struct {
	ProviderID string
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
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
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		exec:       exec,
	}
}

func (c *Client) ID() string { return c.cfg.ProviderID }

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

func (c *Client) Complete(ctx context.Context, req domain.InferenceRequest) (string, error) {
	payload := map[string]any{
		"model":       c.cfg.Model,
		"messages":    buildMessages(req),
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.ForceJSON {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	var content string
	err := c.execute(ctx, c.cfg.ProviderID+".complete", func(ctx context.Context) error {
		var err error
		content, err = c.complete(ctx, payload)
		return err
	})
	return content, err
}

func (c *Client) complete(ctx context.Context, payload map[string]any) (string, error) {
	resp, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.statusError(resp)
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode %s response: %w", c.cfg.ProviderID, err)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", &domain.ProviderCallError{
			Provider:   c.cfg.ProviderID,
			StatusCode: resp.StatusCode,
			Message:    "empty completion",
		}
	}
	return decoded.Choices[0].Message.Content, nil
}

// StreamChat opens a token stream. The breaker observes the handshake
// only; once the stream is handed out its lifetime belongs to the
// caller.
func (c *Client) StreamChat(ctx context.Context, turns []domain.ChatTurn) (ports.TokenStream, error) {
	msgs := make([]message, 0, len(turns))
	for _, turn := range turns {
		msgs = append(msgs, message{Role: string(turn.Role), Content: turn.Content})
	}
	payload := map[string]any{
		"model":    c.cfg.Model,
		"messages": msgs,
		"stream":   true,
	}

	var stream ports.TokenStream
	err := c.execute(ctx, c.cfg.ProviderID+".stream", func(ctx context.Context) error {
		resp, err := c.post(ctx, "/chat/completions", payload)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return c.statusError(resp)
		}
		stream = &chatStream{body: resp.Body, scanner: sse.NewScanner(resp.Body)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", c.cfg.ProviderID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", c.cfg.ProviderID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ProviderCallError{Provider: c.cfg.ProviderID, Message: err.Error()}
	}
	return resp, nil
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &domain.ProviderCallError{
		Provider:   c.cfg.ProviderID,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.exec == nil {
		return fn(ctx)
	}
	return c.exec.Execute(ctx, operation, fn, resilience.ClassifyProviderError)
}

func buildMessages(req domain.InferenceRequest) []message {
	msgs := make([]message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, message{Role: "system", Content: req.System})
	}

	if req.ImageURL == "" && req.ImageBase64 == "" {
		return append(msgs, message{Role: "user", Content: req.Prompt})
	}

	url := req.ImageURL
	if url == "" {
		url = "data:image/jpeg;base64," + req.ImageBase64
	}
	parts := []contentPart{
		{Type: "text", Text: req.Prompt},
		{Type: "image_url", ImageURL: &imageRef{URL: url}},
	}
	return append(msgs, message{Role: "user", Content: parts})
}

// chatStream decodes delta fragments off the SSE body. Lines that do
// not decode are dropped so a single garbled frame cannot kill an
// otherwise healthy stream.
type chatStream struct {
	body    io.ReadCloser
	scanner *sse.Scanner
}

func (s *chatStream) Next() (string, error) {
	for {
		payload, err := s.scanner.Next()
		if err != nil {
			return "", err
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}
}

func (s *chatStream) Close() error {
	return s.body.Close()
}
