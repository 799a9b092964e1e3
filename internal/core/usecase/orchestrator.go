package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
)

// AttemptRecorder receives one observation per provider attempt plus
// fallback activations; the prometheus implementation lives in the
// observability package, tests use fakes.
type AttemptRecorder interface {
	RecordInferenceAttempt(task, provider, outcome string)
	RecordFallback(task string)
}

type nopRecorder struct{}

func (nopRecorder) RecordInferenceAttempt(string, string, string) {}
func (nopRecorder) RecordFallback(string)                         {}

// Orchestrator drives an ordered provider chain: first success wins,
// any failure advances to the next entry. One deterministic pass, no
// in-place retry of a provider (cross-request retry policy belongs to
// the circuit breakers inside the clients).
type Orchestrator struct {
	log      *slog.Logger
	recorder AttemptRecorder
}

func NewOrchestrator(log *slog.Logger, recorder AttemptRecorder) *Orchestrator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Orchestrator{log: log, recorder: recorder}
}

// Complete runs the synchronous chain and normalizes the winning raw
// text. MalformedOutput and Rejected results from a provider that did
// answer are final: the answer was delivered, it just wasn't usable,
// and a second vendor would not fix that.
func (o *Orchestrator) Complete(ctx context.Context, req domain.InferenceRequest, providers []ports.ProviderClient) (domain.InferenceResult, error) {
	if len(providers) == 0 {
		return domain.InferenceResult{}, domain.WrapError(domain.ErrConfiguration, "inference", errors.New("no providers configured for task"))
	}

	var lastErr error
	for i, provider := range providers {
		if i > 0 {
			o.recorder.RecordFallback(string(req.Task))
		}

		raw, err := provider.Complete(ctx, req)
		if err != nil {
			lastErr = err
			o.recorder.RecordInferenceAttempt(string(req.Task), provider.ID(), "error")
			o.log.Warn("provider_attempt_failed",
				"task", req.Task,
				"provider", provider.ID(),
				"attempt", i+1,
				"error", err,
			)
			if ctx.Err() != nil {
				return domain.InferenceResult{}, ctx.Err()
			}
			continue
		}

		o.recorder.RecordInferenceAttempt(string(req.Task), provider.ID(), "ok")
		o.log.Info("provider_attempt_succeeded",
			"task", req.Task,
			"provider", provider.ID(),
			"attempt", i+1,
		)
		return NormalizeResponse(raw), nil
	}

	result := domain.ProviderErrorResult(lastProviderID(providers), lastErr.Error())
	var callErr *domain.ProviderCallError
	if errors.As(lastErr, &callErr) {
		result.Provider = callErr.Provider
	}
	return result, nil
}

// OpenStream runs the streaming chain and hands back the first stream
// that opened, with a flag marking whether a fallback provider served
// it. All providers failing surfaces as a temporary error.
func (o *Orchestrator) OpenStream(ctx context.Context, turns []domain.ChatTurn, providers []ports.StreamingProviderClient) (ports.TokenStream, bool, error) {
	if len(providers) == 0 {
		return nil, false, domain.WrapError(domain.ErrConfiguration, "chat stream", errors.New("no streaming providers configured"))
	}

	var lastErr error
	for i, provider := range providers {
		if i > 0 {
			o.recorder.RecordFallback(string(domain.TaskChatTurn))
		}

		stream, err := provider.StreamChat(ctx, turns)
		if err != nil {
			lastErr = err
			o.recorder.RecordInferenceAttempt(string(domain.TaskChatTurn), provider.ID(), "error")
			o.log.Warn("provider_stream_failed",
				"provider", provider.ID(),
				"attempt", i+1,
				"error", err,
			)
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			continue
		}

		o.recorder.RecordInferenceAttempt(string(domain.TaskChatTurn), provider.ID(), "ok")
		return stream, i > 0, nil
	}

	return nil, false, domain.WrapError(domain.ErrTemporary, "chat stream", lastErr)
}

func lastProviderID(providers []ports.ProviderClient) string {
	return providers[len(providers)-1].ID()
}
