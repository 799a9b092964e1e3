package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/aura-finance/aura-backend/internal/core/domain"
)

const maxWebhookBodyBytes = 1 << 20

// revenueCatWebhook receives billing lifecycle events. The signature
// covers the raw body, so the body is read in full before decoding.
func (rt *Router) revenueCatWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	if !rt.webhookAuth.Authenticate(body, r.Header.Get(signatureHeader)) {
		rt.log.Warn("webhook_signature_rejected", "request_id", requestIDFromContext(r.Context()))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var payload struct {
		Event domain.BillingEvent `json:"event"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	message, err := rt.billing.Process(r.Context(), payload.Event)
	if err != nil {
		rt.log.Error("webhook_processing_failed",
			"request_id", requestIDFromContext(r.Context()),
			"event_type", payload.Event.Type,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message})
}
