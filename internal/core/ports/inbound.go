package ports

import (
	"context"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

// ReceiptAnalyzer is the inbound contract for receipt and voice
// transaction extraction.
type ReceiptAnalyzer interface {
	Analyze(ctx context.Context, req domain.AnalyzeRequest) (domain.InferenceResult, error)
}

// TransactionCategorizer is the inbound contract for transaction
// categorization.
type TransactionCategorizer interface {
	Categorize(ctx context.Context, req domain.CategorizeRequest) (domain.CategorizationResult, error)
}

// CoachChat is the inbound contract for a streamed coach turn. emit is
// called once per stream event, in order; an error from emit aborts
// the stream and releases the upstream provider connection.
type CoachChat interface {
	Stream(ctx context.Context, req domain.CoachChatRequest, emit func(domain.ChatStreamEvent) error) error
}

// BillingProcessor is the inbound contract for webhook events. The
// returned message is echoed in the webhook acknowledgment.
type BillingProcessor interface {
	Process(ctx context.Context, evt domain.BillingEvent) (string, error)
}
