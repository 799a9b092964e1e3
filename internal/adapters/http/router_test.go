package httpadapter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
)

type analyzerFake struct {
	result domain.InferenceResult
	err    error
	got    domain.AnalyzeRequest
}

func (f *analyzerFake) Analyze(_ context.Context, req domain.AnalyzeRequest) (domain.InferenceResult, error) {
	f.got = req
	return f.result, f.err
}

type categorizerFake struct {
	result domain.CategorizationResult
	err    error
}

func (f *categorizerFake) Categorize(context.Context, domain.CategorizeRequest) (domain.CategorizationResult, error) {
	return f.result, f.err
}

type coachFake struct {
	events []domain.ChatStreamEvent
	err    error
}

func (f *coachFake) Stream(_ context.Context, _ domain.CoachChatRequest, emit func(domain.ChatStreamEvent) error) error {
	for _, evt := range f.events {
		if err := emit(evt); err != nil {
			return err
		}
	}
	return f.err
}

type billingFake struct {
	message string
	err     error
	got     *domain.BillingEvent
}

func (f *billingFake) Process(_ context.Context, evt domain.BillingEvent) (string, error) {
	f.got = &evt
	return f.message, f.err
}

type verifierFake struct {
	principal domain.Principal
	err       error
}

func (f *verifierFake) Verify(context.Context, string) (domain.Principal, error) {
	return f.principal, f.err
}

type routerFakes struct {
	analyzer    *analyzerFake
	categorizer *categorizerFake
	coach       *coachFake
	billing     *billingFake
	verifier    *verifierFake
	webhookAuth *WebhookAuthenticator
	cfg         RouterConfig
}

func newTestHandler(f routerFakes) http.Handler {
	if f.analyzer == nil {
		f.analyzer = &analyzerFake{}
	}
	if f.categorizer == nil {
		f.categorizer = &categorizerFake{}
	}
	if f.coach == nil {
		f.coach = &coachFake{}
	}
	if f.billing == nil {
		f.billing = &billingFake{message: "ok"}
	}
	if f.webhookAuth == nil {
		f.webhookAuth = NewWebhookAuthenticator("test-secret", false)
	}
	if f.cfg.BackpressureWait <= 0 {
		f.cfg.BackpressureWait = 20 * time.Millisecond
	}

	rt := NewRouter(
		f.analyzer,
		f.categorizer,
		f.coach,
		f.billing,
		verifierOrNil(f.verifier),
		f.webhookAuth,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		f.cfg,
	)
	return rt.Handler()
}

// verifierOrNil keeps the open-surface default when no fake is set; a
// typed nil in the ports interface would not compare equal to nil.
func verifierOrNil(v *verifierFake) ports.TokenVerifier {
	if v == nil {
		return nil
	}
	return v
}
