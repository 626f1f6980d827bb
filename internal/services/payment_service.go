package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/brp-commerce/api/internal/domain"
	"github.com/brp-commerce/api/internal/notifications"
	"github.com/brp-commerce/api/internal/payments"
	"github.com/brp-commerce/api/internal/repositories"
)

var (
	// ErrPaymentInvalidPayload signals a webhook payload missing required fields.
	ErrPaymentInvalidPayload = errors.New("payment: invalid payload")
	// ErrPaymentSignatureMismatch signals a webhook whose signature does not verify.
	ErrPaymentSignatureMismatch = errors.New("payment: signature mismatch")
	// ErrPaymentOrderNotFound indicates neither the store nor the gateway knows the order.
	ErrPaymentOrderNotFound = errors.New("payment: order not found")
	// ErrPaymentUpstream indicates the gateway could not be reached for re-verification.
	ErrPaymentUpstream = errors.New("payment: upstream failure")
)

// PaymentServiceDeps bundles the collaborators required to construct a payment service.
type PaymentServiceDeps struct {
	Orders  repositories.OrderRepository
	Gateway payments.Gateway
	Mail    notifications.Dispatcher

	// ServerKey is the shared secret the gateway signs webhooks with.
	ServerKey string

	Clock  Clock
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	orders    repositories.OrderRepository
	gateway   payments.Gateway
	mail      notifications.Dispatcher
	serverKey string
	clock     Clock
	logger    func(context.Context, string, map[string]any)
}

// NewPaymentService wires dependencies into a concrete PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("payment service: payment gateway is required")
	}
	if strings.TrimSpace(deps.ServerKey) == "" {
		return nil, errors.New("payment service: server key is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &paymentService{
		orders:    deps.Orders,
		gateway:   deps.Gateway,
		mail:      deps.Mail,
		serverKey: strings.TrimSpace(deps.ServerKey),
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// HandleCallback processes one gateway notification. The signature gate runs
// first; after that the transaction state is re-fetched from the gateway so a
// forged or replayed body can never advance an order on its own.
func (s *paymentService) HandleCallback(ctx context.Context, cmd PaymentCallbackCommand) (PaymentCallbackResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" || strings.TrimSpace(cmd.StatusCode) == "" || strings.TrimSpace(cmd.GrossAmount) == "" {
		return PaymentCallbackResult{}, fmt.Errorf("%w: order_id, status_code and gross_amount are required", ErrPaymentInvalidPayload)
	}

	payload := payments.WebhookPayload{
		OrderID:           orderID,
		StatusCode:        strings.TrimSpace(cmd.StatusCode),
		GrossAmount:       strings.TrimSpace(cmd.GrossAmount),
		PaymentType:       strings.TrimSpace(cmd.PaymentType),
		TransactionStatus: strings.TrimSpace(cmd.TransactionStatus),
		SignatureKey:      strings.TrimSpace(cmd.Signature),
	}
	if !payments.VerifySignature(payload, s.serverKey) {
		s.logger(ctx, "payment.signatureMismatch", map[string]any{"orderId": orderID})
		return PaymentCallbackResult{}, fmt.Errorf("%w: order %s", ErrPaymentSignatureMismatch, orderID)
	}

	verified, err := s.gateway.GetStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, payments.ErrTransactionNotFound) {
			return PaymentCallbackResult{}, fmt.Errorf("%w: gateway has no transaction for %s", ErrPaymentOrderNotFound, orderID)
		}
		return PaymentCallbackResult{}, fmt.Errorf("%w: verify status: %v", ErrPaymentUpstream, err)
	}

	effective := verified.Status
	if strings.EqualFold(strings.TrimSpace(cmd.FraudStatus), "deny") {
		effective = payments.StatusDenied
	}

	switch effective {
	case payments.StatusSettled:
		return s.applySettlement(ctx, orderID, verified)
	case payments.StatusDenied, payments.StatusCancelled, payments.StatusExpired:
		return s.applyCancellation(ctx, orderID, effective)
	case payments.StatusPending:
		s.logger(ctx, "payment.pending", map[string]any{"orderId": orderID})
		return PaymentCallbackResult{OrderID: orderID, Status: domain.StatusUnpaid, Applied: false}, nil
	default:
		s.logger(ctx, "payment.unknownStatus", map[string]any{
			"orderId":        orderID,
			"providerStatus": verified.ProviderStatus,
		})
		return PaymentCallbackResult{OrderID: orderID, Applied: false}, nil
	}
}

func (s *paymentService) applySettlement(ctx context.Context, orderID string, verified payments.TransactionStatus) (PaymentCallbackResult, error) {
	result, err := s.orders.MarkPaid(ctx, repositories.OrderMarkPaidRequest{
		OrderID:     orderID,
		PaymentType: verified.PaymentType,
		Now:         s.clock(),
	})
	if err != nil {
		return PaymentCallbackResult{}, mapPaymentRepositoryError(err)
	}
	if result.AlreadyPaid {
		// Duplicate or late settlement callback; everything already happened.
		s.logger(ctx, "payment.settledDuplicate", map[string]any{"orderId": orderID})
		return PaymentCallbackResult{OrderID: orderID, Status: result.Order.Status, Applied: false}, nil
	}

	s.logger(ctx, "payment.settled", map[string]any{
		"orderId":      orderID,
		"paymentType":  verified.PaymentType,
		"flaggedLines": len(result.FlaggedLines),
	})
	for _, line := range result.FlaggedLines {
		s.logger(ctx, "payment.stockIssue", map[string]any{
			"orderId":   orderID,
			"lineId":    line.ID,
			"variantId": line.VariantID,
			"quantity":  line.Quantity,
		})
	}

	s.sendInvoice(ctx, result.Order)

	return PaymentCallbackResult{OrderID: orderID, Status: result.Order.Status, Applied: true}, nil
}

func (s *paymentService) applyCancellation(ctx context.Context, orderID string, status payments.Status) (PaymentCallbackResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return PaymentCallbackResult{}, mapPaymentRepositoryError(err)
	}
	if order.Status == domain.StatusCancelled {
		s.logger(ctx, "payment.cancelDuplicate", map[string]any{"orderId": orderID})
		return PaymentCallbackResult{OrderID: orderID, Status: order.Status, Applied: false}, nil
	}

	cancelled, err := s.orders.Cancel(ctx, repositories.OrderCancelRequest{
		OrderID: orderID,
		Reason:  fmt.Sprintf("payment %s", status),
		Now:     s.clock(),
	})
	if err != nil {
		return PaymentCallbackResult{}, mapPaymentRepositoryError(err)
	}

	s.logger(ctx, "payment.cancelled", map[string]any{
		"orderId": orderID,
		"status":  string(status),
	})
	if s.mail != nil {
		if _, mailErr := s.mail.DispatchMail(ctx, notifications.MailJobMessage{
			Kind:         notifications.MailOrderCanceled,
			OrderID:      cancelled.ID,
			OrderNumber:  cancelled.OrderNumber,
			UserID:       cancelled.UserID,
			CancelReason: fmt.Sprintf("payment %s", status),
			QueuedAt:     s.clock(),
		}); mailErr != nil {
			s.logger(ctx, "payment.mailDispatchFailed", map[string]any{"orderId": orderID, "error": mailErr.Error()})
		}
	}

	return PaymentCallbackResult{OrderID: orderID, Status: cancelled.Status, Applied: true}, nil
}

func (s *paymentService) sendInvoice(ctx context.Context, order domain.Order) {
	if s.mail == nil {
		return
	}
	if _, err := s.mail.DispatchMail(ctx, notifications.MailJobMessage{
		Kind:        notifications.MailOrderInvoice,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.Total,
		QueuedAt:    s.clock(),
	}); err != nil {
		s.logger(ctx, "payment.mailDispatchFailed", map[string]any{"orderId": order.ID, "error": err.Error()})
	}
}

func mapPaymentRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var orderErr *repositories.OrderError
	if errors.As(err, &orderErr) {
		switch orderErr.Code {
		case repositories.OrderErrorNotFound:
			return fmt.Errorf("%w: %s", ErrPaymentOrderNotFound, orderErr.Message)
		case repositories.OrderErrorInvalidState:
			return fmt.Errorf("%w: %s", ErrOrderInvalidState, orderErr.Message)
		}
	}

	if isNotFound(err) {
		return fmt.Errorf("%w: %v", ErrPaymentOrderNotFound, err)
	}

	return err
}
