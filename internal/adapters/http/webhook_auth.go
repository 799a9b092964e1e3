package httpadapter

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const signatureHeader = "X-RevenueCat-Signature"

// WebhookAuthenticator checks the HMAC-SHA-256 signature the billing
// provider computes over the raw request body. AllowUnsigned is an
// explicit dev-environment escape hatch; it is never the default.
type WebhookAuthenticator struct {
	secret        []byte
	allowUnsigned bool
}

func NewWebhookAuthenticator(secret string, allowUnsigned bool) *WebhookAuthenticator {
	return &WebhookAuthenticator{secret: []byte(secret), allowUnsigned: allowUnsigned}
}

// Authenticate verifies header against body. The comparison is
// constant-time; a missing or malformed header fails like a wrong one.
func (a *WebhookAuthenticator) Authenticate(body []byte, header string) bool {
	if len(a.secret) == 0 {
		return a.allowUnsigned
	}
	if header == "" {
		return false
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(header))
}
