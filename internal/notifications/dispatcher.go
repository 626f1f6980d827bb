// Package notifications enqueues customer-facing mail jobs on Pub/Sub.
// Delivery is handled by a separate worker; the API only publishes.
package notifications

import (
	"context"
	"time"
)

// MailKind identifies the template a mail worker should render.
type MailKind string

const (
	MailOrderCreated  MailKind = "ORDER_CREATED"
	MailOrderInvoice  MailKind = "ORDER_INVOICE"
	MailOrderReceipt  MailKind = "ORDER_RECEIPT"
	MailOrderCanceled MailKind = "ORDER_CANCELED"
)

// MailJobMessage is the payload published for each mail job.
type MailJobMessage struct {
	Kind           MailKind  `json:"kind"`
	OrderID        string    `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	UserID         string    `json:"userId"`
	RecipientEmail string    `json:"recipientEmail,omitempty"`
	TotalAmount    int64     `json:"totalAmount,omitempty"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
	CancelReason   string    `json:"cancelReason,omitempty"`
	StockIssues    int       `json:"stockIssues,omitempty"`
	QueuedAt       time.Time `json:"queuedAt"`
}

// Dispatcher publishes mail jobs. Implementations must be safe for
// concurrent use.
type Dispatcher interface {
	DispatchMail(ctx context.Context, message MailJobMessage) (string, error)
}
