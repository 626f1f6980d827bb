package payments

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// WebhookPayload carries the fields the gateway posts on every transaction
// status change. Signature verification must pass before any field other than
// OrderID is trusted.
type WebhookPayload struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	TransactionStatus string `json:"transaction_status"`
	SignatureKey      string `json:"signature_key"`
}

// ComputeSignature derives the webhook signature over the order id, status
// code, gross amount and the shared server key.
func ComputeSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature reports whether the payload's signature matches the one
// derived from the shared server key. Comparison is constant time.
func VerifySignature(payload WebhookPayload, serverKey string) bool {
	expected := ComputeSignature(payload.OrderID, payload.StatusCode, payload.GrossAmount, serverKey)
	provided := strings.ToLower(strings.TrimSpace(payload.SignatureKey))
	if len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
