package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

// ProfileRepository stores the paid-access columns of a user profile.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetEntitlement returns the current record, or an empty one for a
// user seen for the first time.
func (r *ProfileRepository) GetEntitlement(ctx context.Context, userID string) (domain.EntitlementRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT user_id, is_pro, pro_plan, pro_expires_at, last_billing_event_id, updated_at
FROM profiles
WHERE user_id = $1
`, userID)

	var rec domain.EntitlementRecord
	var plan string
	var expiresAt sql.NullTime
	err := row.Scan(&rec.UserID, &rec.IsEntitled, &plan, &expiresAt, &rec.LastEventID, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EntitlementRecord{UserID: userID}, nil
	}
	if err != nil {
		return domain.EntitlementRecord{}, fmt.Errorf("get entitlement: %w", err)
	}

	rec.PlanTier = domain.PlanTier(plan)
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		rec.ExpiresAt = &t
	}
	return rec, nil
}

func (r *ProfileRepository) UpsertEntitlement(ctx context.Context, rec domain.EntitlementRecord) error {
	var expiresAt sql.NullTime
	if rec.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: *rec.ExpiresAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO profiles (user_id, is_pro, pro_plan, pro_expires_at, last_billing_event_id, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_id) DO UPDATE SET
	is_pro = EXCLUDED.is_pro,
	pro_plan = EXCLUDED.pro_plan,
	pro_expires_at = EXCLUDED.pro_expires_at,
	last_billing_event_id = EXCLUDED.last_billing_event_id,
	updated_at = EXCLUDED.updated_at
`, rec.UserID, rec.IsEntitled, string(rec.PlanTier), expiresAt, rec.LastEventID, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert entitlement: %w", err)
	}
	return nil
}
