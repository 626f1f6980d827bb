package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Cart aggregates the mutable shopping cart state for a user.
type Cart struct {
	ID        string
	UserID    string
	Items     []CartItem
	UpdatedAt time.Time
}

// CartItem stores a single variant entry within a cart.
type CartItem struct {
	ID          string
	VariantID   string
	Name        string
	Quantity    int
	UnitPrice   int64
	WeightGrams int
	AddedAt     time.Time
}

// Destination captures the delivery address snapshot frozen onto an order.
type Destination struct {
	Province    string
	City        string
	District    string
	Subdistrict string
	PostalCode  string
	Address     string
}

// ShippingDetail stores the courier selection frozen at order creation.
type ShippingDetail struct {
	CourierCode string
	Service     string
	Description string
	Cost        int64
	EtaDays     string
}

// ShippingOption is a single courier service quote returned by the rate provider.
type ShippingOption struct {
	CourierCode string
	CourierName string
	Service     string
	Description string
	Cost        int64
	EtaDays     string
}

// PaymentDetail stores gateway references attached to an order.
type PaymentDetail struct {
	Token       string
	RedirectURL string
	PaymentType string
}

// Order captures order headers returned to handlers/services.
type Order struct {
	ID                 string
	OrderNumber        string
	UserID             string
	Method             ShippingMethod
	Status             OrderStatus
	Subtotal           int64
	Tax                int64
	TaxRate            string
	ShippingCost       int64
	ManualShippingCost *int64
	Total              int64
	TotalWeightGrams   int
	Destination        *Destination
	Shipping           *ShippingDetail
	TrackingNumber     *string
	Payment            *PaymentDetail
	IsRefundFailed     bool
	CancelReason       *string
	StockIssueCount    int
	Lines              []OrderLine
	CreatedAt          time.Time
	UpdatedAt          time.Time
	PaidAt             *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	ProcessingAt       *time.Time
	CompletedAt        *time.Time
	CanceledAt         *time.Time
}

// OrderLine mirrors a cart item at the time of checkout with a frozen unit price.
type OrderLine struct {
	ID          string
	OrderID     string
	VariantID   string
	Name        string
	Quantity    int
	UnitPrice   int64
	WeightGrams int
	StockIssue  bool
	CreatedAt   time.Time
}

// Total returns the extended price for the line.
func (l OrderLine) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// VariantStock represents the current on-hand quantity tracked per variant.
type VariantStock struct {
	VariantID  string
	ProductRef string
	Stock      int
	UpdatedAt  time.Time
}

// TaxConfig stores the store-wide tax rate applied to new orders.
type TaxConfig struct {
	Percent   string
	UpdatedAt time.Time
}

// StockResolution reports the outcome of a targeted stock-issue resolution.
type StockResolution struct {
	LineID    string
	Cleared   bool
	Shortfall int
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
