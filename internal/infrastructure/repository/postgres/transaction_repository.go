package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	metadata := tx.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO transactions (
	id, user_id, amount, merchant, category, subcategory, description,
	date, currency, source, scan_image_url, ai_confidence, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		tx.ID, tx.UserID, tx.Amount, tx.Merchant, string(tx.Category), tx.Subcategory, tx.Description,
		tx.Date, tx.Currency, string(tx.Source), tx.ScanImageURL, tx.AIConfidence, metadata, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
