package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
	"github.com/aura-finance/aura-backend/internal/observability/metrics"
)

type RouterConfig struct {
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
}

type Router struct {
	analyzer    ports.ReceiptAnalyzer
	categorizer ports.TransactionCategorizer
	coach       ports.CoachChat
	billing     ports.BillingProcessor
	verifier    ports.TokenVerifier
	webhookAuth *WebhookAuthenticator
	metrics     *metrics.HTTPServerMetrics
	log         *slog.Logger
	cfg         RouterConfig
}

func NewRouter(
	analyzer ports.ReceiptAnalyzer,
	categorizer ports.TransactionCategorizer,
	coach ports.CoachChat,
	billing ports.BillingProcessor,
	verifier ports.TokenVerifier,
	webhookAuth *WebhookAuthenticator,
	m *metrics.HTTPServerMetrics,
	log *slog.Logger,
	cfg RouterConfig,
) *Router {
	return &Router{
		analyzer:    analyzer,
		categorizer: categorizer,
		coach:       coach,
		billing:     billing,
		verifier:    verifier,
		webhookAuth: webhookAuth,
		metrics:     m,
		log:         log,
		cfg:         cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/analyze", rt.analyze)
	mux.HandleFunc("/v1/categorize", rt.categorize)
	mux.HandleFunc("/v1/coach/chat", rt.coachChat)
	mux.HandleFunc("/v1/webhooks/revenuecat", rt.revenueCatWebhook)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.BackpressureWait)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(rt.log, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate resolves the bearer token to a principal. With no
// verifier configured the surface is open (local development).
func (rt *Router) authenticate(r *http.Request) (domain.Principal, error) {
	if rt.verifier == nil {
		return domain.Principal{}, nil
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("missing authorization header"))
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == header || token == "" {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("malformed authorization header"))
	}
	return rt.verifier.Verify(r.Context(), token)
}

// resolveUserID reconciles the authenticated principal with the
// caller-supplied user id: empty defaults to the principal, a
// mismatch is rejected.
func resolveUserID(principal domain.Principal, requested string) (string, error) {
	if principal.UserID == "" {
		return requested, nil
	}
	if requested == "" || requested == principal.UserID {
		return principal.UserID, nil
	}
	return "", domain.WrapError(domain.ErrForbidden, "authorize", errors.New("user id mismatch"))
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.log.Error("request_failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
