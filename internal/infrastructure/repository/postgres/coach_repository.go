package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

type CoachRepository struct {
	db *sql.DB
}

func NewCoachRepository(db *sql.DB) *CoachRepository {
	return &CoachRepository{db: db}
}

func (r *CoachRepository) SaveCoachMessage(ctx context.Context, msg *domain.CoachMessage) error {
	actions := msg.Actions
	if actions == nil {
		actions = []domain.CoachAction{}
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO coach_messages (id, conversation_id, user_id, role, content, actions, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, msg.ID, msg.ConversationID, msg.UserID, msg.Role, msg.Content, actionsJSON, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert coach message: %w", err)
	}
	return nil
}

// TouchConversation bumps updated_at so conversation lists sort by
// recent activity. An unknown conversation id is not an error; the
// app may stream before the conversation row exists.
func (r *CoachRepository) TouchConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE coach_conversations SET updated_at = $2 WHERE id = $1
`, conversationID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}
