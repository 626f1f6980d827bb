package repositories

import (
	"context"
	"time"

	domain "github.com/brp-commerce/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderRepository persists order headers and lines. Every compound operation
// runs as a single storage transaction so status and stock can never disagree.
type OrderRepository interface {
	// Create persists the order with its lines and clears the source cart
	// atomically.
	Create(ctx context.Context, req OrderCreateRequest) (domain.Order, error)

	// MarkPaid moves an UNPAID order to PAID and commits inventory per line:
	// variants with sufficient stock are decremented, the rest are flagged as
	// stock issues. Orders already at or past PAID return unchanged with
	// AlreadyPaid set.
	MarkPaid(ctx context.Context, req OrderMarkPaidRequest) (OrderMarkPaidResult, error)

	// Cancel moves the order to CANCELLED and, when it was PAID, returns the
	// reserved stock of non-issue lines to the variants in the same
	// transaction.
	Cancel(ctx context.Context, req OrderCancelRequest) (domain.Order, error)

	// Transition applies a single forward step past PAID (ship, deliver,
	// process, complete) with the legality and guard checks evaluated against
	// the stored state.
	Transition(ctx context.Context, req OrderTransitionRequest) (domain.Order, error)

	// SavePaymentDetail stores the gateway checkout token on the order unless
	// one is already present, in which case the stored detail wins.
	SavePaymentDetail(ctx context.Context, orderID string, detail domain.PaymentDetail, now time.Time) (domain.Order, error)

	// SetManualShippingCost records an operator-entered shipping cost on a
	// manual order and recomputes the stored total.
	SetManualShippingCost(ctx context.Context, orderID string, cost int64, now time.Time) (domain.Order, error)

	// SetTrackingNumber replaces the tracking number of a shipped order.
	SetTrackingNumber(ctx context.Context, orderID string, tracking string, now time.Time) (domain.Order, error)

	// SetRefundFailed flags the order after a refund attempt was rejected by
	// the gateway.
	SetRefundFailed(ctx context.Context, orderID string, now time.Time) error

	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindLine(ctx context.Context, orderID string, lineID string) (domain.OrderLine, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// OrderCreateRequest carries the fully-priced order plus the cart to clear.
type OrderCreateRequest struct {
	Order         domain.Order
	Lines         []domain.OrderLine
	ClearCartUser string
	Now           time.Time
}

// OrderMarkPaidRequest carries payment metadata captured from the gateway.
type OrderMarkPaidRequest struct {
	OrderID     string
	PaymentType string
	Now         time.Time
}

// OrderMarkPaidResult reports the updated order and which lines were flagged.
type OrderMarkPaidResult struct {
	Order        domain.Order
	AlreadyPaid  bool
	FlaggedLines []domain.OrderLine
}

// OrderCancelRequest carries cancellation metadata.
type OrderCancelRequest struct {
	OrderID string
	Reason  string
	Now     time.Time
}

// OrderTransitionRequest carries a requested forward step and its guards.
type OrderTransitionRequest struct {
	OrderID        string
	Target         domain.OrderStatus
	TrackingNumber string
	Now            time.Time
}

// OrderListFilter controls admin and user order listings.
type OrderListFilter struct {
	UserID        string
	Method        *domain.ShippingMethod
	Status        []domain.OrderStatus
	HasStockIssue *bool
	DateRange     domain.RangeQuery[time.Time]
	Search        string
	Pagination    domain.Pagination
}

// StockRepository manages per-variant stock counts and the stock-issue ledger.
type StockRepository interface {
	Get(ctx context.Context, variantID string) (domain.VariantStock, error)
	GetMany(ctx context.Context, variantIDs []string) (map[string]domain.VariantStock, error)

	// Restock adjusts the variant's count by delta (floored at zero) and, on a
	// positive delta, sweeps outstanding stock-issue lines oldest first,
	// clearing each line only when the remaining stock fully covers it.
	Restock(ctx context.Context, req StockRestockRequest) (StockRestockResult, error)

	// ResolveLine applies operator-supplied stock to one flagged line. The
	// line clears only when the supplied quantity covers it in full;
	// otherwise nothing changes and the shortfall is reported.
	ResolveLine(ctx context.Context, req StockResolveLineRequest) (domain.StockResolution, error)

	ListIssueLines(ctx context.Context, variantID string, pager domain.Pagination) (domain.CursorPage[domain.OrderLine], error)
}

// StockRestockRequest adjusts a variant's stock by a signed delta.
type StockRestockRequest struct {
	VariantID string
	Delta     int
	Now       time.Time
}

// StockRestockResult reports the final count and the lines cleared by the sweep.
type StockRestockResult struct {
	Stock        domain.VariantStock
	ClearedLines []domain.OrderLine
}

// StockResolveLineRequest supplies earmarked stock for a single flagged line.
type StockResolveLineRequest struct {
	OrderID  string
	LineID   string
	Quantity int
	Now      time.Time
}

// CartRepository reads and replaces the per-user cart document.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error)
}

// StoreConfigRepository stores singleton configuration such as the tax rate.
type StoreConfigRepository interface {
	GetTax(ctx context.Context) (domain.TaxConfig, error)
	SetTax(ctx context.Context, cfg domain.TaxConfig) (domain.TaxConfig, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
