package ports

import (
	"context"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

// ProviderClient is the synchronous capability of one upstream model
// vendor: a single inference call returning the raw text payload.
// Vendors differ only in endpoint, body shape, auth header and the
// response path to the text; those are configuration, not behavior.
type ProviderClient interface {
	ID() string
	Complete(ctx context.Context, req domain.InferenceRequest) (string, error)
}

// TokenStream yields incremental content fragments from a streaming
// provider call. Next returns io.EOF when the upstream terminator is
// seen; Close releases the upstream connection and must be safe to
// call after EOF.
type TokenStream interface {
	Next() (string, error)
	Close() error
}

// StreamingProviderClient is the streaming capability: opens an
// incremental token feed for a chat turn.
type StreamingProviderClient interface {
	ID() string
	StreamChat(ctx context.Context, turns []domain.ChatTurn) (TokenStream, error)
}

// KeywordMatcher consults the static keyword-category table.
type KeywordMatcher interface {
	Match(description, merchant string) (domain.KeywordMatch, bool)
}

// TokenVerifier resolves a bearer token into a principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Principal, error)
}

// TransactionStore persists extracted transactions.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
}

// EntitlementStore reads and writes the per-user entitlement record.
// A user without a record gets a zero record, not an error.
type EntitlementStore interface {
	GetEntitlement(ctx context.Context, userID string) (domain.EntitlementRecord, error)
	UpsertEntitlement(ctx context.Context, rec domain.EntitlementRecord) error
}

// CoachMessageStore persists assistant replies and conversation state.
type CoachMessageStore interface {
	SaveCoachMessage(ctx context.Context, msg *domain.CoachMessage) error
	TouchConversation(ctx context.Context, conversationID string) error
}

// FinancialContextReader builds the per-user snapshot the coach prompt
// is grounded on.
type FinancialContextReader interface {
	Read(ctx context.Context, userID string) (domain.FinancialContext, error)
}

// AnalyticsPublisher emits best-effort audit events. Implementations
// may fail; callers log and move on.
type AnalyticsPublisher interface {
	Publish(ctx context.Context, evt domain.AnalyticsEvent) error
}

// AnalyticsStore persists consumed audit events (worker side).
type AnalyticsStore interface {
	InsertEvent(ctx context.Context, evt domain.AnalyticsEvent) error
}
