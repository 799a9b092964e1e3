package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

func (rt *Router) coachChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	principal, err := rt.authenticate(r)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	var req domain.CoachChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID, err = resolveUserID(principal, req.UserID); err != nil {
		rt.writeError(w, err)
		return
	}

	// The SSE response commits lazily on the first event, so failures
	// before any token (bad input, no provider reachable) still map to
	// a proper status code.
	var stream *sseWriter
	err = rt.coach.Stream(r.Context(), req, func(evt domain.ChatStreamEvent) error {
		if stream == nil {
			opened, err := newSSEWriter(w)
			if err != nil {
				return err
			}
			stream = opened
		}
		return stream.WriteEvent(evt)
	})

	if stream == nil {
		if err != nil {
			rt.writeError(w, err)
			return
		}
		if stream, err = newSSEWriter(w); err != nil {
			rt.writeError(w, err)
			return
		}
	} else if err != nil {
		rt.log.Error("coach_stream_failed",
			"request_id", requestIDFromContext(r.Context()),
			"conversation_id", req.ConversationID,
			"error", err,
		)
		_ = stream.WriteEvent(map[string]string{"error": "stream interrupted"})
	}

	_ = stream.WriteDone()
}
