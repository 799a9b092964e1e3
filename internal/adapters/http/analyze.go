package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	principal, err := rt.authenticate(r)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	var req domain.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID, err = resolveUserID(principal, req.UserID); err != nil {
		rt.writeError(w, err)
		return
	}

	result, err := rt.analyzer.Analyze(r.Context(), req)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse(result))
}

// analyzeResponse mirrors the shape mobile clients already parse: the
// extracted fields on success, an error tag otherwise.
func analyzeResponse(result domain.InferenceResult) map[string]any {
	switch result.Kind {
	case domain.ResultSuccess:
		return result.Structured
	case domain.ResultRejected:
		out := map[string]any{"error": result.RejectionTag}
		if result.RejectionMessage != "" {
			out["message"] = result.RejectionMessage
		}
		return out
	case domain.ResultMalformed:
		return map[string]any{"error": "unparseable_response", "raw": result.RawText}
	default:
		return map[string]any{"error": "ai_service_unavailable", "message": result.Message}
	}
}
