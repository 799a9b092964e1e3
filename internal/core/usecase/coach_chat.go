package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
)

// TokenRecorder counts streamed tokens for observability.
type TokenRecorder interface {
	RecordStreamedTokens(provider string, count int)
}

type nopTokenRecorder struct{}

func (nopTokenRecorder) RecordStreamedTokens(string, int) {}

// CoachChatUseCase runs one streamed coach turn: financial context ->
// system prompt -> provider stream relayed token by token -> action
// extraction -> persisted assistant message.
type CoachChatUseCase struct {
	orchestrator *Orchestrator
	providers    []ports.StreamingProviderClient
	contextRead  ports.FinancialContextReader
	messages     ports.CoachMessageStore
	recorder     TokenRecorder
	log          *slog.Logger
	now          func() time.Time
}

func NewCoachChatUseCase(
	orchestrator *Orchestrator,
	providers []ports.StreamingProviderClient,
	contextRead ports.FinancialContextReader,
	messages ports.CoachMessageStore,
	recorder TokenRecorder,
	log *slog.Logger,
) *CoachChatUseCase {
	if recorder == nil {
		recorder = nopTokenRecorder{}
	}
	return &CoachChatUseCase{
		orchestrator: orchestrator,
		providers:    providers,
		contextRead:  contextRead,
		messages:     messages,
		recorder:     recorder,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CoachChatUseCase) Stream(ctx context.Context, req domain.CoachChatRequest, emit func(domain.ChatStreamEvent) error) error {
	if req.UserID == "" || req.Message == "" {
		return domain.WrapError(domain.ErrInvalidInput, "coach chat", errors.New("userId and message are required"))
	}

	turns := uc.buildTurns(ctx, req)

	stream, usedFallback, err := uc.orchestrator.OpenStream(ctx, turns, uc.providers)
	if err != nil {
		return err
	}

	tokens := 0
	fullText, err := relayTokens(stream, func(evt domain.ChatStreamEvent) error {
		if evt.Type == domain.ChatEventToken {
			tokens++
		}
		return emit(evt)
	})
	if err != nil {
		// The client went away or the upstream died mid-stream; there
		// is no response left to salvage.
		return err
	}
	uc.recorder.RecordStreamedTokens(uc.providerLabel(usedFallback), tokens)

	actions, content, parseErr := extractActions(fullText)
	if parseErr != nil {
		uc.log.Warn("action_parse_failed", "conversation_id", req.ConversationID, "error", parseErr)
	}
	if len(actions) > 0 {
		if err := emit(domain.ActionsEvent(actions)); err != nil {
			return err
		}
	}

	uc.persistReply(ctx, req, content, actions)

	if usedFallback {
		if err := emit(domain.MetadataEvent(true)); err != nil {
			return err
		}
	}
	return nil
}

// providerLabel names the vendor that served the turn. Once the chain
// fell back the exact vendor is not tracked, only that it was not the
// primary.
func (uc *CoachChatUseCase) providerLabel(usedFallback bool) string {
	if !usedFallback && len(uc.providers) > 0 {
		return uc.providers[0].ID()
	}
	return "fallback"
}

func (uc *CoachChatUseCase) buildTurns(ctx context.Context, req domain.CoachChatRequest) []domain.ChatTurn {
	finCtx, err := uc.contextRead.Read(ctx, req.UserID)
	if err != nil {
		// The coach must answer even with an empty picture.
		uc.log.Warn("financial_context_read_failed", "user_id", req.UserID, "error", err)
		finCtx = domain.FinancialContext{}
	}

	turns := make([]domain.ChatTurn, 0, len(req.History)+2)
	turns = append(turns, domain.ChatTurn{Role: domain.RoleSystem, Content: buildCoachSystemPrompt(finCtx)})
	for _, h := range req.History {
		if h.Role != domain.RoleUser && h.Role != domain.RoleAssistant {
			continue
		}
		turns = append(turns, h)
	}
	turns = append(turns, domain.ChatTurn{Role: domain.RoleUser, Content: req.Message})
	return turns
}

// persistReply is best-effort: the tokens already reached the client,
// a storage hiccup must not turn the turn into an error.
func (uc *CoachChatUseCase) persistReply(ctx context.Context, req domain.CoachChatRequest, content string, actions []domain.CoachAction) {
	msg := &domain.CoachMessage{
		ID:             uuid.NewString(),
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Role:           "coach",
		Content:        content,
		Actions:        actions,
		CreatedAt:      uc.now(),
	}
	if err := uc.messages.SaveCoachMessage(ctx, msg); err != nil {
		uc.log.Warn("coach_message_save_failed", "conversation_id", req.ConversationID, "error", err)
		return
	}
	if err := uc.messages.TouchConversation(ctx, req.ConversationID); err != nil {
		uc.log.Warn("conversation_touch_failed", "conversation_id", req.ConversationID, "error", err)
	}
}
