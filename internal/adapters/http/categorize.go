package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

func (rt *Router) categorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if _, err := rt.authenticate(r); err != nil {
		rt.writeError(w, err)
		return
	}

	var req domain.CategorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.categorizer.Categorize(r.Context(), req)
	if err != nil {
		rt.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
