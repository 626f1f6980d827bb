package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/brp-commerce/api/internal/domain"
	"github.com/brp-commerce/api/internal/notifications"
	"github.com/brp-commerce/api/internal/payments"
	"github.com/brp-commerce/api/internal/repositories"
)

const testServerKey = "server-key-test"

func signedCallback(orderID, statusCode, grossAmount, transactionStatus string) PaymentCallbackCommand {
	return PaymentCallbackCommand{
		OrderID:           orderID,
		StatusCode:        statusCode,
		GrossAmount:       grossAmount,
		TransactionStatus: transactionStatus,
		Signature:         payments.ComputeSignature(orderID, statusCode, grossAmount, testServerKey),
	}
}

type paymentServiceFixture struct {
	orders  *stubOrderRepository
	gateway *stubGateway
	mail    *stubMailDispatcher
}

func newPaymentServiceFixture() *paymentServiceFixture {
	return &paymentServiceFixture{
		orders:  &stubOrderRepository{},
		gateway: &stubGateway{},
		mail:    &stubMailDispatcher{},
	}
}

func (f *paymentServiceFixture) build(t *testing.T) PaymentService {
	t.Helper()
	svc, err := NewPaymentService(PaymentServiceDeps{
		Orders:    f.orders,
		Gateway:   f.gateway,
		Mail:      f.mail,
		ServerKey: testServerKey,
		Clock:     func() time.Time { return time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewPaymentService() error = %v", err)
	}
	return svc
}

func TestHandleCallbackSettlementMarksPaid(t *testing.T) {
	f := newPaymentServiceFixture()
	f.gateway.getStatusFn = func(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
		return payments.TransactionStatus{OrderID: orderID, Status: payments.StatusSettled, PaymentType: "bank_transfer"}, nil
	}
	var captured repositories.OrderMarkPaidRequest
	f.orders.markPaidFn = func(ctx context.Context, req repositories.OrderMarkPaidRequest) (repositories.OrderMarkPaidResult, error) {
		captured = req
		return repositories.OrderMarkPaidResult{
			Order: domain.Order{ID: req.OrderID, UserID: "user-1", Status: domain.StatusPaid, Total: 2200},
		}, nil
	}
	svc := f.build(t)

	result, err := svc.HandleCallback(context.Background(), signedCallback("ord-1", "200", "2200.00", "settlement"))
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if !result.Applied || result.Status != domain.StatusPaid {
		t.Errorf("result = %+v", result)
	}
	if captured.PaymentType != "bank_transfer" {
		t.Errorf("payment type = %q, want the gateway-verified type", captured.PaymentType)
	}
	if len(f.mail.messages) != 1 || f.mail.messages[0].Kind != notifications.MailOrderInvoice {
		t.Errorf("mail = %+v", f.mail.messages)
	}
}

func TestHandleCallbackDuplicateSettlementIsNoOp(t *testing.T) {
	f := newPaymentServiceFixture()
	f.gateway.getStatusFn = func(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
		return payments.TransactionStatus{OrderID: orderID, Status: payments.StatusSettled}, nil
	}
	f.orders.markPaidFn = func(ctx context.Context, req repositories.OrderMarkPaidRequest) (repositories.OrderMarkPaidResult, error) {
		return repositories.OrderMarkPaidResult{
			Order:       domain.Order{ID: req.OrderID, Status: domain.StatusPaid},
			AlreadyPaid: true,
		}, nil
	}
	svc := f.build(t)

	result, err := svc.HandleCallback(context.Background(), signedCallback("ord-1", "200", "2200.00", "settlement"))
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if result.Applied {
		t.Error("duplicate settlement must not re-apply")
	}
	if len(f.mail.messages) != 0 {
		t.Errorf("duplicate settlement must not re-send the invoice, mail = %+v", f.mail.messages)
	}
}

func TestHandleCallbackBadSignatureRejected(t *testing.T) {
	f := newPaymentServiceFixture()
	svc := f.build(t)

	cmd := signedCallback("ord-1", "200", "2200.00", "settlement")
	cmd.Signature = "deadbeef"

	_, err := svc.HandleCallback(context.Background(), cmd)
	if !errors.Is(err, ErrPaymentSignatureMismatch) {
		t.Fatalf("err = %v, want ErrPaymentSignatureMismatch", err)
	}
}

func TestHandleCallbackTamperedAmountRejected(t *testing.T) {
	f := newPaymentServiceFixture()
	svc := f.build(t)

	cmd := signedCallback("ord-1", "200", "2200.00", "settlement")
	cmd.GrossAmount = "1.00"

	_, err := svc.HandleCallback(context.Background(), cmd)
	if !errors.Is(err, ErrPaymentSignatureMismatch) {
		t.Fatalf("err = %v, want ErrPaymentSignatureMismatch", err)
	}
}

func TestHandleCallbackTrustsGatewayOverPayload(t *testing.T) {
	// The body claims settlement but the gateway says pending; nothing may change.
	f := newPaymentServiceFixture()
	f.gateway.getStatusFn = func(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
		return payments.TransactionStatus{OrderID: orderID, Status: payments.StatusPending}, nil
	}
	svc := f.build(t)

	result, err := svc.HandleCallback(context.Background(), signedCallback("ord-1", "200", "2200.00", "settlement"))
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if result.Applied {
		t.Error("pending gateway state must not advance the order")
	}
	if result.Status != domain.StatusUnpaid {
		t.Errorf("status = %s, want UNPAID", result.Status)
	}
}

func TestHandleCallbackExpiryCancelsOrder(t *testing.T) {
	f := newPaymentServiceFixture()
	f.gateway.getStatusFn = func(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
		return payments.TransactionStatus{OrderID: orderID, Status: payments.StatusExpired}, nil
	}
	f.orders.findByIDFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		return domain.Order{ID: orderID, UserID: "user-1", Status: domain.StatusUnpaid}, nil
	}
	var cancelReason string
	f.orders.cancelFn = func(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error) {
		cancelReason = req.Reason
		return domain.Order{ID: req.OrderID, UserID: "user-1", Status: domain.StatusCancelled}, nil
	}
	svc := f.build(t)

	result, err := svc.HandleCallback(context.Background(), signedCallback("ord-1", "407", "2200.00", "expire"))
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if !result.Applied || result.Status != domain.StatusCancelled {
		t.Errorf("result = %+v", result)
	}
	if cancelReason != "payment expired" {
		t.Errorf("reason = %q", cancelReason)
	}
	if len(f.mail.messages) != 1 || f.mail.messages[0].Kind != notifications.MailOrderCanceled {
		t.Errorf("mail = %+v", f.mail.messages)
	}
}

func TestHandleCallbackCancelDuplicateIsNoOp(t *testing.T) {
	f := newPaymentServiceFixture()
	f.gateway.getStatusFn = func(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
		return payments.TransactionStatus{OrderID: orderID, Status: payments.StatusCancelled}, nil
	}
	f.orders.findByIDFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		return domain.Order{ID: orderID, Status: domain.StatusCancelled}, nil
	}
	svc := f.build(t)

	result, err := svc.HandleCallback(context.Background(), signedCallback("ord-1", "202", "2200.00", "cancel"))
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if result.Applied {
		t.Error("already-cancelled order must not be re-cancelled")
	}
}

func TestHandleCallbackFraudDenyOverridesStatus(t *testing.T) {
	f := newPaymentServiceFixture()
	f.gateway.getStatusFn = func(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
		return payments.TransactionStatus{OrderID: orderID, Status: payments.StatusSettled}, nil
	}
	f.orders.findByIDFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		return domain.Order{ID: orderID, Status: domain.StatusUnpaid}, nil
	}
	cancelled := false
	f.orders.cancelFn = func(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error) {
		cancelled = true
		return domain.Order{ID: req.OrderID, Status: domain.StatusCancelled}, nil
	}
	svc := f.build(t)

	cmd := signedCallback("ord-1", "200", "2200.00", "capture")
	cmd.FraudStatus = "deny"

	result, err := svc.HandleCallback(context.Background(), cmd)
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if !cancelled || result.Status != domain.StatusCancelled {
		t.Errorf("fraud deny should cancel, result = %+v", result)
	}
}

func TestHandleCallbackUnknownTransactionMapsNotFound(t *testing.T) {
	f := newPaymentServiceFixture()
	f.gateway.getStatusFn = func(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
		return payments.TransactionStatus{}, payments.ErrTransactionNotFound
	}
	svc := f.build(t)

	_, err := svc.HandleCallback(context.Background(), signedCallback("ord-ghost", "200", "10.00", "settlement"))
	if !errors.Is(err, ErrPaymentOrderNotFound) {
		t.Fatalf("err = %v, want ErrPaymentOrderNotFound", err)
	}
}

func TestHandleCallbackMissingFieldsRejected(t *testing.T) {
	f := newPaymentServiceFixture()
	svc := f.build(t)

	_, err := svc.HandleCallback(context.Background(), PaymentCallbackCommand{OrderID: "ord-1"})
	if !errors.Is(err, ErrPaymentInvalidPayload) {
		t.Fatalf("err = %v, want ErrPaymentInvalidPayload", err)
	}
}
