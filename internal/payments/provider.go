package payments

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Status enumerates the normalised transaction states shared across gateway
// responses and webhook notifications.
type Status string

const (
	// StatusPending indicates the charge awaits customer action or gateway confirmation.
	StatusPending Status = "pending"
	// StatusSettled indicates funds were captured or settled.
	StatusSettled Status = "settled"
	// StatusDenied indicates the gateway rejected the charge.
	StatusDenied Status = "denied"
	// StatusCancelled indicates the charge was cancelled before settlement.
	StatusCancelled Status = "cancelled"
	// StatusExpired indicates the checkout window elapsed without payment.
	StatusExpired Status = "expired"
	// StatusRefunded indicates the charge has been refunded.
	StatusRefunded Status = "refunded"
	// StatusUnknown indicates the gateway reported a vocabulary this service does not track.
	StatusUnknown Status = "unknown"
)

// ErrTransactionNotFound is returned when the gateway has no record of the order.
var ErrTransactionNotFound = errors.New("payments: transaction not found")

// ErrRefundRejected is returned when the gateway refuses a refund attempt.
var ErrRefundRejected = errors.New("payments: refund rejected")

// NormalizeStatus maps the gateway's transaction_status vocabulary onto the
// internal Status set.
func NormalizeStatus(providerStatus string) Status {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "capture", "settlement":
		return StatusSettled
	case "pending":
		return StatusPending
	case "deny":
		return StatusDenied
	case "cancel":
		return StatusCancelled
	case "expire":
		return StatusExpired
	case "refund", "partial_refund":
		return StatusRefunded
	default:
		return StatusUnknown
	}
}

// CheckoutItem describes a single line item to include in a checkout session.
type CheckoutItem struct {
	ID       string
	Name     string
	Quantity int
	Price    int64
}

// CheckoutRequest captures the payload required to create a checkout session.
type CheckoutRequest struct {
	OrderID       string
	GrossAmount   int64
	CustomerName  string
	CustomerEmail string
	Items         []CheckoutItem
}

// CheckoutSession represents the gateway session handed back to the client.
type CheckoutSession struct {
	Token       string
	RedirectURL string
	ExpiresAt   time.Time
}

// TransactionStatus normalises gateway transaction state for reconciliation.
type TransactionStatus struct {
	OrderID        string
	Status         Status
	ProviderStatus string
	StatusCode     string
	GrossAmount    string
	PaymentType    string
	TransactionID  string
	Raw            map[string]any
}

// RefundRequest defines a gateway refund attempt.
type RefundRequest struct {
	OrderID string
	Amount  *int64
	Reason  string
}

// RefundResult reports the gateway's answer to a refund attempt.
type RefundResult struct {
	OrderID  string
	RefundID string
	Status   Status
	Raw      map[string]any
}

// Gateway defines the contract the payment provider adapter implements. The
// orchestrating services never see provider-specific payloads.
type Gateway interface {
	// CreateCheckout opens a hosted checkout session for the order.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// GetStatus fetches the authoritative transaction state from the gateway.
	GetStatus(ctx context.Context, orderID string) (TransactionStatus, error)
	// Refund returns settled funds for the order.
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
}
