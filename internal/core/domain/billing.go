package domain

import (
	"strings"
	"time"
)

// BillingEventType is the closed set of subscription lifecycle events
// delivered by the billing provider.
type BillingEventType string

const (
	BillingInitialPurchase      BillingEventType = "INITIAL_PURCHASE"
	BillingRenewal              BillingEventType = "RENEWAL"
	BillingCancellation         BillingEventType = "CANCELLATION"
	BillingUncancellation       BillingEventType = "UNCANCELLATION"
	BillingNonRenewingPurchase  BillingEventType = "NON_RENEWING_PURCHASE"
	BillingExpiration           BillingEventType = "EXPIRATION"
	BillingIssue                BillingEventType = "BILLING_ISSUE"
	BillingProductChange        BillingEventType = "PRODUCT_CHANGE"
	BillingSubscriptionPaused   BillingEventType = "SUBSCRIPTION_PAUSED"
	BillingTransfer             BillingEventType = "TRANSFER"
	BillingSubscriptionExtended BillingEventType = "SUBSCRIPTION_EXTENDED"
)

// BillingEvent is the immutable, externally supplied webhook payload.
type BillingEvent struct {
	ID                    string           `json:"id"`
	Type                  BillingEventType `json:"type"`
	AppUserID             string           `json:"app_user_id"`
	ProductID             string           `json:"product_id"`
	Price                 float64          `json:"price"`
	Currency              string           `json:"currency"`
	Store                 string           `json:"store"`
	PeriodType            string           `json:"period_type"`
	Environment           string           `json:"environment"`
	ExpirationAtMs        *int64           `json:"expiration_at_ms,omitempty"`
	PurchasedAtMs         int64            `json:"purchased_at_ms"`
	TransactionID         string           `json:"transaction_id"`
	OriginalTransactionID string           `json:"original_transaction_id"`
	CancelReason          string           `json:"cancel_reason,omitempty"`
	TransferredFrom       []string         `json:"transferred_from,omitempty"`
	TransferredTo         []string         `json:"transferred_to,omitempty"`
}

// EventID is the dedup key: the provider's event id when present, the
// store transaction id otherwise.
func (e BillingEvent) EventID() string {
	if e.ID != "" {
		return e.ID
	}
	return e.TransactionID
}

// ExpiresAt converts the millisecond expiration into a timestamp, nil
// when the event carries none.
func (e BillingEvent) ExpiresAt() *time.Time {
	if e.ExpirationAtMs == nil {
		return nil
	}
	t := time.UnixMilli(*e.ExpirationAtMs).UTC()
	return &t
}

// OccurredAt is the purchase timestamp of the event.
func (e BillingEvent) OccurredAt() time.Time {
	return time.UnixMilli(e.PurchasedAtMs).UTC()
}

type PlanTier string

const (
	TierWeekly  PlanTier = "weekly"
	TierMonthly PlanTier = "monthly"
	TierAnnual  PlanTier = "annual"
	TierUnknown PlanTier = "unknown"
)

// DeriveTier maps a store product identifier onto a plan tier by
// substring containment, case-sensitive on the literal id as supplied
// by the billing provider.
func DeriveTier(productID string) PlanTier {
	switch {
	case strings.Contains(productID, "annual") || strings.Contains(productID, "year"):
		return TierAnnual
	case strings.Contains(productID, "weekly") || strings.Contains(productID, "week"):
		return TierWeekly
	case strings.Contains(productID, "monthly") || strings.Contains(productID, "month"):
		return TierMonthly
	default:
		return TierUnknown
	}
}

// EntitlementRecord is the per-user paid-access state. It is mutated
// only by ProjectEntitlement and persisted after each transition;
// revocation flips IsEntitled instead of deleting the row.
type EntitlementRecord struct {
	UserID      string
	IsEntitled  bool
	PlanTier    PlanTier
	ExpiresAt   *time.Time
	LastEventID string
	UpdatedAt   time.Time
}

// ProjectEntitlement is the pure transition function of the webhook
// state machine: current record + event -> next record for userID.
// Re-applying the event last recorded on the record is a no-op, which
// makes webhook retries idempotent without caller bookkeeping.
//
// Cancellation and BillingIssue deliberately leave entitlement fields
// untouched: the user keeps access until natural expiry. Events are
// applied strictly in arrival order; the billing provider's ordering
// guarantee is trusted, never locally reordered.
func ProjectEntitlement(userID string, rec EntitlementRecord, evt BillingEvent) EntitlementRecord {
	if evt.EventID() != "" && evt.EventID() == rec.LastEventID {
		return rec
	}

	next := rec
	next.UserID = userID

	switch evt.Type {
	case BillingInitialPurchase, BillingRenewal, BillingUncancellation, BillingProductChange:
		next.IsEntitled = true
		next.PlanTier = DeriveTier(evt.ProductID)
		next.ExpiresAt = evt.ExpiresAt()
	case BillingExpiration:
		next.IsEntitled = false
		next.ExpiresAt = nil
	case BillingCancellation, BillingIssue:
		// Audit only; grace-period access preserved.
	case BillingTransfer:
		switch {
		case containsID(evt.TransferredTo, userID):
			next.IsEntitled = true
			next.PlanTier = DeriveTier(evt.ProductID)
			next.ExpiresAt = evt.ExpiresAt()
		case containsID(evt.TransferredFrom, userID):
			next.IsEntitled = false
			next.ExpiresAt = nil
		default:
			return rec
		}
	default:
		// Unrecognized lifecycle events are accepted and acknowledged
		// without touching the record.
		return rec
	}

	next.LastEventID = evt.EventID()
	return next
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
