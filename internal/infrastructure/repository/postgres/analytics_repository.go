package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// InsertEvent is idempotent on the event id: the queue may redeliver.
func (r *AnalyticsRepository) InsertEvent(ctx context.Context, evt domain.AnalyticsEvent) error {
	props := evt.Properties
	if props == nil {
		props = map[string]any{}
	}
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analytics_events (id, name, user_id, platform, properties, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO NOTHING
`, evt.ID, evt.Name, evt.UserID, evt.Platform, propsJSON, evt.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}
