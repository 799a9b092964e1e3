package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

func TestAnalyticsRepositoryInsertEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewAnalyticsRepository(db)
	mock.ExpectExec("INSERT INTO analytics_events").
		WithArgs("evt-1", "purchase_completed", "u-1", "billing_webhook", []byte(`{"revenue":9.99}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.InsertEvent(context.Background(), domain.AnalyticsEvent{
		ID:         "evt-1",
		Name:       "purchase_completed",
		UserID:     "u-1",
		Platform:   "billing_webhook",
		Properties: map[string]any{"revenue": 9.99},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAnalyticsRepositoryInsertEventNilProperties(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewAnalyticsRepository(db)
	mock.ExpectExec("INSERT INTO analytics_events").
		WithArgs("evt-2", "app_open", "", "", []byte(`{}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.InsertEvent(context.Background(), domain.AnalyticsEvent{
		ID:         "evt-2",
		Name:       "app_open",
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
