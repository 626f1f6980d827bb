package repositories

import "fmt"

// OrderErrorCode enumerates repository error causes for order operations.
type OrderErrorCode string

const (
	// OrderErrorUnknown represents an unspecified failure.
	OrderErrorUnknown OrderErrorCode = "order_unknown"
	// OrderErrorNotFound indicates the order document is missing.
	OrderErrorNotFound OrderErrorCode = "order_not_found"
	// OrderErrorLineNotFound indicates the order line document is missing.
	OrderErrorLineNotFound OrderErrorCode = "order_line_not_found"
	// OrderErrorInvalidState indicates the stored status forbids the operation.
	OrderErrorInvalidState OrderErrorCode = "order_invalid_state"
	// OrderErrorStockIssueOpen indicates unresolved stock issues block the transition.
	OrderErrorStockIssueOpen OrderErrorCode = "order_stock_issue_open"
	// OrderErrorConflict indicates a concurrent mutation won the race.
	OrderErrorConflict OrderErrorCode = "order_conflict"
)

// OrderError wraps order-specific failures with machine readable codes.
type OrderError struct {
	Op      string
	Code    OrderErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *OrderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *OrderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOrderError constructs a typed order error.
func NewOrderError(code OrderErrorCode, message string, err error) *OrderError {
	if message == "" {
		message = string(code)
	}
	return &OrderError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
