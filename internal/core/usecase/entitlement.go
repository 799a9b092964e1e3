package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
)

// WebhookRecorder observes processed billing events by type/outcome.
type WebhookRecorder interface {
	RecordWebhookEvent(eventType, outcome string)
}

type nopWebhookRecorder struct{}

func (nopWebhookRecorder) RecordWebhookEvent(string, string) {}

// EntitlementUseCase applies one billing lifecycle event to the
// affected entitlement records and emits the matching audit events.
type EntitlementUseCase struct {
	entitlements ports.EntitlementStore
	analytics    ports.AnalyticsPublisher
	recorder     WebhookRecorder
	log          *slog.Logger
	now          func() time.Time
}

func NewEntitlementUseCase(
	entitlements ports.EntitlementStore,
	analytics ports.AnalyticsPublisher,
	recorder WebhookRecorder,
	log *slog.Logger,
) *EntitlementUseCase {
	if recorder == nil {
		recorder = nopWebhookRecorder{}
	}
	return &EntitlementUseCase{
		entitlements: entitlements,
		analytics:    analytics,
		recorder:     recorder,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (uc *EntitlementUseCase) Process(ctx context.Context, evt domain.BillingEvent) (string, error) {
	uc.log.Info("billing_event_received", "type", evt.Type, "user_id", evt.AppUserID, "event_id", evt.EventID())

	message, err := uc.apply(ctx, evt)
	if err != nil {
		uc.recorder.RecordWebhookEvent(string(evt.Type), "error")
		return "", err
	}

	uc.publishAudit(ctx, evt)
	uc.recorder.RecordWebhookEvent(string(evt.Type), "ok")
	return message, nil
}

func (uc *EntitlementUseCase) apply(ctx context.Context, evt domain.BillingEvent) (string, error) {
	switch evt.Type {
	case domain.BillingInitialPurchase:
		return "Purchase processed", uc.projectUsers(ctx, evt, []string{evt.AppUserID})
	case domain.BillingRenewal, domain.BillingUncancellation, domain.BillingProductChange:
		return "Renewal processed", uc.projectUsers(ctx, evt, []string{evt.AppUserID})
	case domain.BillingExpiration:
		return "Expiration processed", uc.projectUsers(ctx, evt, []string{evt.AppUserID})
	case domain.BillingCancellation:
		return "Cancellation logged", uc.projectUsers(ctx, evt, []string{evt.AppUserID})
	case domain.BillingIssue:
		return "Billing issue logged", uc.projectUsers(ctx, evt, []string{evt.AppUserID})
	case domain.BillingTransfer:
		users := append(append([]string{}, evt.TransferredFrom...), evt.TransferredTo...)
		return "Transfer processed", uc.projectUsers(ctx, evt, users)
	default:
		uc.log.Info("billing_event_ignored", "type", evt.Type)
		return "Event ignored", nil
	}
}

// projectUsers runs the pure transition per affected user and
// persists every record that actually changed.
func (uc *EntitlementUseCase) projectUsers(ctx context.Context, evt domain.BillingEvent, userIDs []string) error {
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		rec, err := uc.entitlements.GetEntitlement(ctx, userID)
		if err != nil {
			return fmt.Errorf("load entitlement for %s: %w", userID, err)
		}

		next := domain.ProjectEntitlement(userID, rec, evt)
		if next == rec {
			uc.log.Info("billing_event_no_change", "user_id", userID, "event_id", evt.EventID())
			continue
		}
		next.UpdatedAt = uc.now()

		if err := uc.entitlements.UpsertEntitlement(ctx, next); err != nil {
			return fmt.Errorf("save entitlement for %s: %w", userID, err)
		}
		uc.log.Info("entitlement_updated",
			"user_id", userID,
			"entitled", next.IsEntitled,
			"plan", next.PlanTier,
			"event_type", evt.Type,
		)
	}
	return nil
}

var billingAuditNames = map[domain.BillingEventType]string{
	domain.BillingInitialPurchase: "purchase_completed",
	domain.BillingRenewal:         "subscription_renewed",
	domain.BillingCancellation:    "subscription_cancelled",
	domain.BillingExpiration:      "subscription_expired",
	domain.BillingIssue:           "billing_issue",
	domain.BillingTransfer:        "subscription_transferred",
}

func (uc *EntitlementUseCase) publishAudit(ctx context.Context, evt domain.BillingEvent) {
	name, ok := billingAuditNames[evt.Type]
	if !ok {
		return
	}

	props := map[string]any{
		"plan_id":  evt.ProductID,
		"revenue":  evt.Price,
		"currency": evt.Currency,
		"store":    evt.Store,
	}
	if evt.CancelReason != "" {
		props["cancel_reason"] = evt.CancelReason
	}
	if expires := evt.ExpiresAt(); expires != nil {
		props["expires_at"] = expires.Format(time.RFC3339)
	}

	audit := domain.AnalyticsEvent{
		ID:         uuid.NewString(),
		Name:       name,
		UserID:     evt.AppUserID,
		Platform:   "billing_webhook",
		Properties: props,
		OccurredAt: uc.now(),
	}
	if err := uc.analytics.Publish(ctx, audit); err != nil {
		uc.log.Warn("analytics_publish_failed", "event", name, "error", err)
	}
}
