package usecase

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
)

// relayTokens drains a provider token stream, forwarding every
// fragment to emit as soon as it arrives while accumulating the full
// text for post-processing. Forwarding never waits for the stream to
// finish; the accumulated buffer is owned exclusively by this loop.
// An emit failure (client gone) stops reading so the upstream
// connection is released immediately.
func relayTokens(stream ports.TokenStream, emit func(domain.ChatStreamEvent) error) (string, error) {
	defer func() {
		_ = stream.Close()
	}()

	var full strings.Builder
	for {
		token, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return full.String(), err
		}
		if token == "" {
			continue
		}
		full.WriteString(token)
		if err := emit(domain.TokenEvent(token)); err != nil {
			return full.String(), err
		}
	}
}

var actionTagPattern = regexp.MustCompile(`(?s)<action>(.+?)</action>`)

// extractActions scans the finalized text for one delimited directive
// region. The inner JSON may be a single object or an array; both are
// normalized to a slice. Unparseable directives are dropped (the
// caller logs), never fatal. The returned content is the visible text
// with the tag region removed and whitespace trimmed.
func extractActions(fullText string) (actions []domain.CoachAction, content string, parseErr error) {
	content = strings.TrimSpace(actionTagPattern.ReplaceAllString(fullText, ""))

	match := actionTagPattern.FindStringSubmatch(fullText)
	if match == nil {
		return nil, content, nil
	}

	inner := strings.TrimSpace(match[1])
	if strings.HasPrefix(inner, "[") {
		if err := json.Unmarshal([]byte(inner), &actions); err != nil {
			return nil, content, err
		}
		return actions, content, nil
	}

	var single domain.CoachAction
	if err := json.Unmarshal([]byte(inner), &single); err != nil {
		return nil, content, err
	}
	return []domain.CoachAction{single}, content, nil
}
