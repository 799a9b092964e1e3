package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aura-finance/aura-backend/internal/core/domain"
	"github.com/aura-finance/aura-backend/internal/core/ports"
)

type contextReaderFake struct {
	ctx domain.FinancialContext
	err error
}

func (f *contextReaderFake) Read(context.Context, string) (domain.FinancialContext, error) {
	return f.ctx, f.err
}

type messageStoreFake struct {
	saved   []*domain.CoachMessage
	touched []string
	saveErr error
}

func (f *messageStoreFake) SaveCoachMessage(_ context.Context, msg *domain.CoachMessage) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, msg)
	return nil
}

func (f *messageStoreFake) TouchConversation(_ context.Context, conversationID string) error {
	f.touched = append(f.touched, conversationID)
	return nil
}

func collectEvents(t *testing.T, uc *CoachChatUseCase, req domain.CoachChatRequest) []domain.ChatStreamEvent {
	t.Helper()
	var events []domain.ChatStreamEvent
	err := uc.Stream(context.Background(), req, func(evt domain.ChatStreamEvent) error {
		events = append(events, evt)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	return events
}

func TestCoachChatStreamsTokensThenActions(t *testing.T) {
	provider := &streamProviderFake{id: "deepseek", tokens: []string{
		"Tu dépenses beaucoup. ",
		`<action>{"type": "show_chart", "data": {"period": "month"}}</action>`,
	}}
	store := &messageStoreFake{}
	uc := NewCoachChatUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.StreamingProviderClient{provider},
		&contextReaderFake{}, store, nil, testLogger(),
	)

	events := collectEvents(t, uc, domain.CoachChatRequest{UserID: "u1", Message: "où part mon argent ?", ConversationID: "c1"})

	if len(events) != 3 {
		t.Fatalf("expected two tokens plus one actions event, got %d: %v", len(events), events)
	}
	for _, evt := range events[:2] {
		if evt.Type != domain.ChatEventToken {
			t.Fatalf("tokens must precede everything else, got %s", evt.Type)
		}
	}
	last := events[2]
	if last.Type != domain.ChatEventActions || len(last.Actions) != 1 || last.Actions[0].Type != "show_chart" {
		t.Fatalf("unexpected trailing event %+v", last)
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected one saved message")
	}
	saved := store.saved[0]
	if strings.Contains(saved.Content, "<action>") {
		t.Fatalf("persisted content must not carry the directive tag: %q", saved.Content)
	}
	if len(saved.Actions) != 1 {
		t.Fatalf("persisted actions = %v", saved.Actions)
	}
	if len(store.touched) != 1 || store.touched[0] != "c1" {
		t.Fatalf("conversation not touched: %v", store.touched)
	}
}

func TestCoachChatFallbackEmitsMetadataLast(t *testing.T) {
	primary := &streamProviderFake{id: "deepseek", err: errors.New("timeout")}
	secondary := &streamProviderFake{id: "openai", tokens: []string{"Réponse."}}
	uc := NewCoachChatUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.StreamingProviderClient{primary, secondary},
		&contextReaderFake{}, &messageStoreFake{}, nil, testLogger(),
	)

	events := collectEvents(t, uc, domain.CoachChatRequest{UserID: "u1", Message: "salut"})

	last := events[len(events)-1]
	if last.Type != domain.ChatEventMetadata || !last.UsingFallback {
		t.Fatalf("expected trailing fallback metadata, got %+v", last)
	}
}

func TestCoachChatContextReadFailureStillAnswers(t *testing.T) {
	provider := &streamProviderFake{id: "deepseek", tokens: []string{"ok"}}
	uc := NewCoachChatUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.StreamingProviderClient{provider},
		&contextReaderFake{err: errors.New("db down")},
		&messageStoreFake{}, nil, testLogger(),
	)

	events := collectEvents(t, uc, domain.CoachChatRequest{UserID: "u1", Message: "salut"})
	if len(events) == 0 {
		t.Fatalf("the coach must answer even without financial context")
	}
}

func TestCoachChatSaveFailureDoesNotFailTurn(t *testing.T) {
	provider := &streamProviderFake{id: "deepseek", tokens: []string{"ok"}}
	store := &messageStoreFake{saveErr: errors.New("insert failed")}
	uc := NewCoachChatUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.StreamingProviderClient{provider},
		&contextReaderFake{}, store, nil, testLogger(),
	)

	err := uc.Stream(context.Background(), domain.CoachChatRequest{UserID: "u1", Message: "salut"}, func(domain.ChatStreamEvent) error {
		return nil
	})
	if err != nil {
		t.Fatalf("persistence is best-effort, got %v", err)
	}
	if len(store.touched) != 0 {
		t.Fatalf("conversation must not be touched when the save failed")
	}
}

func TestCoachChatEmitFailureStopsStream(t *testing.T) {
	provider := &streamProviderFake{id: "deepseek", tokens: []string{"a", "b", "c"}}
	store := &messageStoreFake{}
	uc := NewCoachChatUseCase(
		NewOrchestrator(testLogger(), nil),
		[]ports.StreamingProviderClient{provider},
		&contextReaderFake{}, store, nil, testLogger(),
	)

	clientGone := errors.New("broken pipe")
	err := uc.Stream(context.Background(), domain.CoachChatRequest{UserID: "u1", Message: "salut"}, func(domain.ChatStreamEvent) error {
		return clientGone
	})
	if !errors.Is(err, clientGone) {
		t.Fatalf("expected the emit error back, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatalf("an aborted turn must not be persisted")
	}
}

func TestCoachChatMissingFieldsRejected(t *testing.T) {
	uc := NewCoachChatUseCase(NewOrchestrator(testLogger(), nil), nil, &contextReaderFake{}, &messageStoreFake{}, nil, testLogger())

	err := uc.Stream(context.Background(), domain.CoachChatRequest{UserID: "u1"}, func(domain.ChatStreamEvent) error { return nil })
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
