package services

import (
	"context"
	"time"

	domain "github.com/brp-commerce/api/internal/domain"
	"github.com/brp-commerce/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination           = domain.Pagination
	SortOrder            = domain.SortOrder
	Cart                 = domain.Cart
	CartItem             = domain.CartItem
	Order                = domain.Order
	OrderLine            = domain.OrderLine
	OrderStatus          = domain.OrderStatus
	ShippingMethod       = domain.ShippingMethod
	Destination          = domain.Destination
	ShippingDetail       = domain.ShippingDetail
	ShippingOption       = domain.ShippingOption
	PaymentDetail        = domain.PaymentDetail
	VariantStock         = domain.VariantStock
	TaxConfig            = domain.TaxConfig
	StockResolution      = domain.StockResolution
	PricingBreakdown     = domain.PricingBreakdown
	ItemPricingBreakdown = domain.ItemPricingBreakdown
	SystemHealthReport   = domain.SystemHealthReport
)

// OrderService orchestrates order creation, payment, fulfilment, and cancellation flows.
type OrderService interface {
	CreateFromCart(ctx context.Context, cmd CreateOrderFromCartCommand) (Order, error)
	GetOrder(ctx context.Context, cmd GetOrderCommand) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	RequestPayment(ctx context.Context, cmd RequestPaymentCommand) (PaymentDetail, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	AddManualShippingCost(ctx context.Context, cmd ManualShippingCostCommand) (Order, error)
	UpdateShippingReceipt(ctx context.Context, cmd ShippingReceiptCommand) (Order, error)
}

// PaymentService handles idempotent gateway webhook processing.
type PaymentService interface {
	HandleCallback(ctx context.Context, cmd PaymentCallbackCommand) (PaymentCallbackResult, error)
}

// InventoryService centralizes restock sweeps and targeted stock issue resolution.
type InventoryService interface {
	GetStock(ctx context.Context, variantID string) (VariantStock, error)
	Restock(ctx context.Context, cmd RestockCommand) (RestockResult, error)
	ResolveLine(ctx context.Context, cmd ResolveStockLineCommand) (StockResolution, error)
	ListIssueLines(ctx context.Context, filter StockIssueFilter) (domain.CursorPage[OrderLine], error)
}

// SystemService aggregates utility endpoints such as health checks.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}

// Command and DTO definitions ------------------------------------------------

type CreateOrderFromCartCommand struct {
	UserID        string
	CustomerName  string
	CustomerEmail string
	Method        ShippingMethod
	Destination   Destination
	Courier       *CourierSelection
}

// CourierSelection is the rate the client picked; it is re-quoted server side
// before the order is persisted.
type CourierSelection struct {
	CourierCode string
	Service     string
	Cost        int64
}

type GetOrderCommand struct {
	OrderID string
	UserID  string
	IsAdmin bool
}

type OrderListFilter = repositories.OrderListFilter

type RequestPaymentCommand struct {
	OrderID       string
	UserID        string
	CustomerName  string
	CustomerEmail string
}

type OrderStatusTransitionCommand struct {
	OrderID        string
	Target         OrderStatus
	TrackingNumber string
	ActorID        string
}

type CancelOrderCommand struct {
	OrderID string
	UserID  string
	IsAdmin bool
	Reason  string
}

type ManualShippingCostCommand struct {
	OrderID string
	Cost    int64
	ActorID string
}

type ShippingReceiptCommand struct {
	OrderID        string
	TrackingNumber string
	ActorID        string
}

// PaymentCallbackCommand carries the raw webhook fields needed for signature
// verification and status dispatch.
type PaymentCallbackCommand struct {
	OrderID           string
	StatusCode        string
	GrossAmount       string
	TransactionStatus string
	FraudStatus       string
	PaymentType       string
	Signature         string
}

type PaymentCallbackResult struct {
	OrderID string
	Status  OrderStatus
	Applied bool
}

type RestockCommand struct {
	VariantID string
	Delta     int
	ActorID   string
}

type RestockResult struct {
	Stock        VariantStock
	ClearedLines []OrderLine
}

type ResolveStockLineCommand struct {
	OrderID  string
	LineID   string
	Quantity int
	ActorID  string
}

type StockIssueFilter struct {
	VariantID  string
	Pagination Pagination
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time
