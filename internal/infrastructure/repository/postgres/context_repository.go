package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

// ContextRepository assembles the financial snapshot the coach prompt
// is built from. Each section is read independently; a failure in one
// query fails the whole read and the caller degrades to an empty
// snapshot.
type ContextRepository struct {
	db *sql.DB
}

func NewContextRepository(db *sql.DB) *ContextRepository {
	return &ContextRepository{db: db}
}

func (r *ContextRepository) Read(ctx context.Context, userID string) (domain.FinancialContext, error) {
	var out domain.FinancialContext
	monthStart := time.Now().UTC().AddDate(0, -1, 0)

	if err := r.db.QueryRowContext(ctx, `
SELECT COALESCE(SUM(balance), 0) FROM accounts WHERE user_id = $1
`, userID).Scan(&out.CurrentBalance); err != nil {
		return domain.FinancialContext{}, fmt.Errorf("read balance: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, `
SELECT
	COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
	COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0)
FROM transactions
WHERE user_id = $1 AND date >= $2
`, userID, monthStart).Scan(&out.MonthlyIncome, &out.MonthlyExpenses); err != nil {
		return domain.FinancialContext{}, fmt.Errorf("read monthly totals: %w", err)
	}

	var err error
	if out.TopCategories, err = r.topCategories(ctx, userID, monthStart, out.MonthlyExpenses); err != nil {
		return domain.FinancialContext{}, err
	}
	if out.Subscriptions, out.Vampires, err = r.subscriptions(ctx, userID); err != nil {
		return domain.FinancialContext{}, err
	}
	if out.Goals, err = r.goals(ctx, userID); err != nil {
		return domain.FinancialContext{}, err
	}
	if out.UnreadInsights, err = r.unreadInsights(ctx, userID); err != nil {
		return domain.FinancialContext{}, err
	}
	return out, nil
}

func (r *ContextRepository) topCategories(ctx context.Context, userID string, since time.Time, totalExpenses float64) ([]domain.CategorySpending, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT category, -SUM(amount) AS spent
FROM transactions
WHERE user_id = $1 AND date >= $2 AND amount < 0
GROUP BY category
ORDER BY spent DESC
LIMIT 5
`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("read top categories: %w", err)
	}
	defer rows.Close()

	var out []domain.CategorySpending
	for rows.Next() {
		var c domain.CategorySpending
		if err := rows.Scan(&c.Category, &c.Amount); err != nil {
			return nil, fmt.Errorf("scan category spending: %w", err)
		}
		if totalExpenses > 0 {
			c.Percentage = c.Amount / totalExpenses * 100
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top categories: %w", err)
	}
	return out, nil
}

func (r *ContextRepository) subscriptions(ctx context.Context, userID string) ([]domain.SubscriptionInfo, []domain.VampireAlert, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, merchant, amount, COALESCE(previous_amount, 0), is_vampire
FROM subscriptions
WHERE user_id = $1
ORDER BY amount DESC
`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("read subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.SubscriptionInfo
	var vampires []domain.VampireAlert
	for rows.Next() {
		var s domain.SubscriptionInfo
		if err := rows.Scan(&s.ID, &s.Name, &s.Amount, &s.PreviousAmount, &s.IsVampire); err != nil {
			return nil, nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.BillingCycle = "monthly"
		subs = append(subs, s)
		if s.IsVampire {
			vampires = append(vampires, domain.VampireAlert{
				SubscriptionID: s.ID,
				Name:           s.Name,
				OldAmount:      s.PreviousAmount,
				NewAmount:      s.Amount,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, vampires, nil
}

func (r *ContextRepository) goals(ctx context.Context, userID string) ([]domain.GoalInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, saved_amount, target_amount
FROM budget_goals
WHERE user_id = $1
ORDER BY created_at
`, userID)
	if err != nil {
		return nil, fmt.Errorf("read goals: %w", err)
	}
	defer rows.Close()

	var out []domain.GoalInfo
	for rows.Next() {
		var g domain.GoalInfo
		if err := rows.Scan(&g.ID, &g.Name, &g.CurrentAmount, &g.TargetAmount); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.TargetAmount > 0 {
			g.ProgressPercentage = g.CurrentAmount / g.TargetAmount * 100
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

func (r *ContextRepository) unreadInsights(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT title
FROM ai_insights
WHERE user_id = $1 AND read = FALSE
ORDER BY created_at DESC
LIMIT 5
`, userID)
	if err != nil {
		return nil, fmt.Errorf("read insights: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		out = append(out, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return out, nil
}
