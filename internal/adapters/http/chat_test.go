package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

const chatBody = `{"userId": "u1", "message": "où part mon argent ?", "conversationId": "c1"}`

func TestCoachChatStreamsSSEFrames(t *testing.T) {
	coach := &coachFake{events: []domain.ChatStreamEvent{
		domain.TokenEvent("Bon"),
		domain.TokenEvent("jour"),
		domain.ActionsEvent([]domain.CoachAction{{Type: "show_chart", Data: map[string]any{}}}),
	}}
	handler := newTestHandler(routerFakes{coach: coach})

	req := httptest.NewRequest(http.MethodPost, "/v1/coach/chat", strings.NewReader(chatBody))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := res.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}

	body := res.Body.String()
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("stream must end with the DONE sentinel: %q", body)
	}

	frames := strings.Split(strings.TrimSuffix(body, "data: [DONE]\n\n"), "\n\n")
	var payloads []string
	for _, frame := range frames {
		if frame == "" {
			continue
		}
		payload, ok := strings.CutPrefix(frame, "data: ")
		if !ok {
			t.Fatalf("frame without data prefix: %q", frame)
		}
		payloads = append(payloads, payload)
	}
	if len(payloads) != 3 {
		t.Fatalf("expected 3 event frames, got %d: %v", len(payloads), payloads)
	}

	var first domain.ChatStreamEvent
	if err := json.Unmarshal([]byte(payloads[0]), &first); err != nil {
		t.Fatalf("frame payload is not json: %v", err)
	}
	if first.Type != domain.ChatEventToken || first.Content != "Bon" {
		t.Fatalf("first event = %+v", first)
	}
}

func TestCoachChatInvalidInputIs400(t *testing.T) {
	handler := newTestHandler(routerFakes{coach: &coachFake{
		err: domain.WrapError(domain.ErrInvalidInput, "coach chat", errors.New("message is required")),
	}})

	req := httptest.NewRequest(http.MethodPost, "/v1/coach/chat", strings.NewReader(`{"userId": "u1"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("pre-stream failures must keep their status, got %d", res.Code)
	}
}

func TestCoachChatAllProvidersDownIs503(t *testing.T) {
	handler := newTestHandler(routerFakes{coach: &coachFake{
		err: domain.WrapError(domain.ErrTemporary, "chat stream", errors.New("all providers down")),
	}})

	req := httptest.NewRequest(http.MethodPost, "/v1/coach/chat", strings.NewReader(chatBody))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when no provider opened, got %d", res.Code)
	}
}

func TestCoachChatMidStreamFailureStillTerminates(t *testing.T) {
	coach := &coachFake{
		events: []domain.ChatStreamEvent{domain.TokenEvent("partial")},
		err:    domain.WrapError(domain.ErrTemporary, "chat stream", errors.New("upstream reset")),
	}
	handler := newTestHandler(routerFakes{coach: coach})

	req := httptest.NewRequest(http.MethodPost, "/v1/coach/chat", strings.NewReader(chatBody))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("a committed stream keeps its 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, "stream interrupted") {
		t.Fatalf("client must see the interruption: %q", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("even a broken stream terminates with DONE: %q", body)
	}
}

func TestCoachChatRejectsMismatchedUser(t *testing.T) {
	handler := newTestHandler(routerFakes{
		verifier: &verifierFake{principal: domain.Principal{UserID: "u-auth"}},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/coach/chat", strings.NewReader(`{"userId": "u-other", "message": "hi"}`))
	req.Header.Set("Authorization", "Bearer tok")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user id mismatch, got %d", res.Code)
	}
}
