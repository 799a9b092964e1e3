package domain

import "time"

// AnalyticsEvent is a best-effort audit record. Publishing one must
// never block or fail a primary response.
type AnalyticsEvent struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	UserID     string         `json:"user_id,omitempty"`
	Platform   string         `json:"platform"`
	Properties map[string]any `json:"properties,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Principal is a verified caller identity.
type Principal struct {
	UserID string
	Email  string
}
