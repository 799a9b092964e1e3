package usecase

import (
	"encoding/json"
	"strings"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

// NormalizeResponse turns a model's raw text into an InferenceResult.
// Models wrap JSON in markdown fences or surround it with prose; this
// strips one fence pair (with or without a language tag) or falls back
// to the first balanced {...} substring, then parses. Parse failure
// yields a MalformedOutput result, never an error. An object carrying
// an "error" field is a domain-level rejection from the model itself
// ("not_a_receipt", "image_not_clear") and is reported as such.
func NormalizeResponse(raw string) domain.InferenceResult {
	cleaned := stripCodeFence(raw)
	if !strings.HasPrefix(strings.TrimSpace(cleaned), "{") {
		cleaned = firstJSONObject(cleaned)
	}

	var structured map[string]any
	if err := json.Unmarshal([]byte(cleaned), &structured); err != nil {
		return domain.MalformedResult(raw)
	}

	if tag, ok := structured["error"].(string); ok && tag != "" {
		message, _ := structured["message"].(string)
		return domain.RejectedResult(tag, message)
	}
	return domain.SuccessResult(structured)
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the optional language tag on the fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine == "" || isLanguageTag(firstLine) {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	return s
}

func isLanguageTag(line string) bool {
	for _, r := range line {
		lower := r >= 'a' && r <= 'z'
		digit := r >= '0' && r <= '9'
		if !lower && !digit {
			return false
		}
	}
	return len(line) <= 12
}

// firstJSONObject returns the first balanced-brace substring, brace
// counting instead of a regexp so nested objects survive.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}
