// Package gotrue verifies bearer tokens against the auth service and
// resolves them to a principal.
package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Verify(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("missing token"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Principal{}, domain.WrapError(domain.ErrTemporary, "verify token", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthorized, "verify token", fmt.Errorf("auth service status %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.Principal{}, domain.WrapError(domain.ErrTemporary, "verify token", fmt.Errorf("auth service status %d", resp.StatusCode))
	}

	var decoded struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Principal{}, fmt.Errorf("decode auth response: %w", err)
	}
	if decoded.ID == "" {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("token resolved to no user"))
	}
	return domain.Principal{UserID: decoded.ID, Email: decoded.Email}, nil
}
