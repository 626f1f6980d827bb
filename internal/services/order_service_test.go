package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/brp-commerce/api/internal/domain"
	"github.com/brp-commerce/api/internal/notifications"
	"github.com/brp-commerce/api/internal/payments"
	"github.com/brp-commerce/api/internal/repositories"
	"github.com/brp-commerce/api/internal/shipping"
)

type stubOrderRepository struct {
	createFn                func(ctx context.Context, req repositories.OrderCreateRequest) (domain.Order, error)
	markPaidFn              func(ctx context.Context, req repositories.OrderMarkPaidRequest) (repositories.OrderMarkPaidResult, error)
	cancelFn                func(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error)
	transitionFn            func(ctx context.Context, req repositories.OrderTransitionRequest) (domain.Order, error)
	savePaymentDetailFn     func(ctx context.Context, orderID string, detail domain.PaymentDetail, now time.Time) (domain.Order, error)
	setManualShippingCostFn func(ctx context.Context, orderID string, cost int64, now time.Time) (domain.Order, error)
	setTrackingNumberFn     func(ctx context.Context, orderID string, tracking string, now time.Time) (domain.Order, error)
	setRefundFailedFn       func(ctx context.Context, orderID string, now time.Time) error
	findByIDFn              func(ctx context.Context, orderID string) (domain.Order, error)
	findLineFn              func(ctx context.Context, orderID string, lineID string) (domain.OrderLine, error)
	listFn                  func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
}

func (s *stubOrderRepository) Create(ctx context.Context, req repositories.OrderCreateRequest) (domain.Order, error) {
	if s.createFn == nil {
		return domain.Order{}, errors.New("unexpected Create call")
	}
	return s.createFn(ctx, req)
}

func (s *stubOrderRepository) MarkPaid(ctx context.Context, req repositories.OrderMarkPaidRequest) (repositories.OrderMarkPaidResult, error) {
	if s.markPaidFn == nil {
		return repositories.OrderMarkPaidResult{}, errors.New("unexpected MarkPaid call")
	}
	return s.markPaidFn(ctx, req)
}

func (s *stubOrderRepository) Cancel(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error) {
	if s.cancelFn == nil {
		return domain.Order{}, errors.New("unexpected Cancel call")
	}
	return s.cancelFn(ctx, req)
}

func (s *stubOrderRepository) Transition(ctx context.Context, req repositories.OrderTransitionRequest) (domain.Order, error) {
	if s.transitionFn == nil {
		return domain.Order{}, errors.New("unexpected Transition call")
	}
	return s.transitionFn(ctx, req)
}

func (s *stubOrderRepository) SavePaymentDetail(ctx context.Context, orderID string, detail domain.PaymentDetail, now time.Time) (domain.Order, error) {
	if s.savePaymentDetailFn == nil {
		return domain.Order{}, errors.New("unexpected SavePaymentDetail call")
	}
	return s.savePaymentDetailFn(ctx, orderID, detail, now)
}

func (s *stubOrderRepository) SetManualShippingCost(ctx context.Context, orderID string, cost int64, now time.Time) (domain.Order, error) {
	if s.setManualShippingCostFn == nil {
		return domain.Order{}, errors.New("unexpected SetManualShippingCost call")
	}
	return s.setManualShippingCostFn(ctx, orderID, cost, now)
}

func (s *stubOrderRepository) SetTrackingNumber(ctx context.Context, orderID string, tracking string, now time.Time) (domain.Order, error) {
	if s.setTrackingNumberFn == nil {
		return domain.Order{}, errors.New("unexpected SetTrackingNumber call")
	}
	return s.setTrackingNumberFn(ctx, orderID, tracking, now)
}

func (s *stubOrderRepository) SetRefundFailed(ctx context.Context, orderID string, now time.Time) error {
	if s.setRefundFailedFn == nil {
		return errors.New("unexpected SetRefundFailed call")
	}
	return s.setRefundFailedFn(ctx, orderID, now)
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findByIDFn == nil {
		return domain.Order{}, errors.New("unexpected FindByID call")
	}
	return s.findByIDFn(ctx, orderID)
}

func (s *stubOrderRepository) FindLine(ctx context.Context, orderID string, lineID string) (domain.OrderLine, error) {
	if s.findLineFn == nil {
		return domain.OrderLine{}, errors.New("unexpected FindLine call")
	}
	return s.findLineFn(ctx, orderID, lineID)
}

func (s *stubOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("unexpected List call")
	}
	return s.listFn(ctx, filter)
}

type stubCartRepository struct {
	getCartFn      func(ctx context.Context, userID string) (domain.Cart, error)
	replaceItemsFn func(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error)
}

func (s *stubCartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getCartFn == nil {
		return domain.Cart{}, errors.New("unexpected GetCart call")
	}
	return s.getCartFn(ctx, userID)
}

func (s *stubCartRepository) ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error) {
	if s.replaceItemsFn == nil {
		return domain.Cart{}, errors.New("unexpected ReplaceItems call")
	}
	return s.replaceItemsFn(ctx, userID, items)
}

type stubStoreConfigRepository struct {
	getTaxFn func(ctx context.Context) (domain.TaxConfig, error)
	setTaxFn func(ctx context.Context, cfg domain.TaxConfig) (domain.TaxConfig, error)
}

func (s *stubStoreConfigRepository) GetTax(ctx context.Context) (domain.TaxConfig, error) {
	if s.getTaxFn == nil {
		return domain.TaxConfig{}, errors.New("unexpected GetTax call")
	}
	return s.getTaxFn(ctx)
}

func (s *stubStoreConfigRepository) SetTax(ctx context.Context, cfg domain.TaxConfig) (domain.TaxConfig, error) {
	if s.setTaxFn == nil {
		return domain.TaxConfig{}, errors.New("unexpected SetTax call")
	}
	return s.setTaxFn(ctx, cfg)
}

type stubCounterRepository struct {
	nextFn func(ctx context.Context, counterID string, step int64) (int64, error)
}

func (s *stubCounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn == nil {
		return 0, errors.New("unexpected Next call")
	}
	return s.nextFn(ctx, counterID, step)
}

func (s *stubCounterRepository) Configure(ctx context.Context, counterID string, cfg repositories.CounterConfig) error {
	return nil
}

type stubGateway struct {
	createCheckoutFn func(ctx context.Context, req payments.CheckoutRequest) (payments.CheckoutSession, error)
	getStatusFn      func(ctx context.Context, orderID string) (payments.TransactionStatus, error)
	refundFn         func(ctx context.Context, req payments.RefundRequest) (payments.RefundResult, error)
}

func (s *stubGateway) CreateCheckout(ctx context.Context, req payments.CheckoutRequest) (payments.CheckoutSession, error) {
	if s.createCheckoutFn == nil {
		return payments.CheckoutSession{}, errors.New("unexpected CreateCheckout call")
	}
	return s.createCheckoutFn(ctx, req)
}

func (s *stubGateway) GetStatus(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
	if s.getStatusFn == nil {
		return payments.TransactionStatus{}, errors.New("unexpected GetStatus call")
	}
	return s.getStatusFn(ctx, orderID)
}

func (s *stubGateway) Refund(ctx context.Context, req payments.RefundRequest) (payments.RefundResult, error) {
	if s.refundFn == nil {
		return payments.RefundResult{}, errors.New("unexpected Refund call")
	}
	return s.refundFn(ctx, req)
}

type stubShippingProvider struct {
	ratesFn      func(ctx context.Context, query shipping.RateQuery) ([]domain.ShippingOption, error)
	lookupCityFn func(ctx context.Context, cityID string) (shipping.City, error)
}

func (s *stubShippingProvider) Rates(ctx context.Context, query shipping.RateQuery) ([]domain.ShippingOption, error) {
	if s.ratesFn == nil {
		return nil, errors.New("unexpected Rates call")
	}
	return s.ratesFn(ctx, query)
}

func (s *stubShippingProvider) LookupCity(ctx context.Context, cityID string) (shipping.City, error) {
	if s.lookupCityFn == nil {
		return shipping.City{}, errors.New("unexpected LookupCity call")
	}
	return s.lookupCityFn(ctx, cityID)
}

type stubMailDispatcher struct {
	messages []notifications.MailJobMessage
	err      error
}

func (s *stubMailDispatcher) DispatchMail(ctx context.Context, message notifications.MailJobMessage) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.messages = append(s.messages, message)
	return fmt.Sprintf("msg-%d", len(s.messages)), nil
}

type orderServiceFixture struct {
	orders      *stubOrderRepository
	stocks      *stubStockRepository
	carts       *stubCartRepository
	storeConfig *stubStoreConfigRepository
	counters    *stubCounterRepository
	gateway     *stubGateway
	shipping    *stubShippingProvider
	mail        *stubMailDispatcher
}

func newOrderServiceFixture() *orderServiceFixture {
	return &orderServiceFixture{
		orders:      &stubOrderRepository{},
		stocks:      &stubStockRepository{},
		carts:       &stubCartRepository{},
		storeConfig: &stubStoreConfigRepository{},
		counters:    &stubCounterRepository{},
		gateway:     &stubGateway{},
		shipping:    &stubShippingProvider{},
		mail:        &stubMailDispatcher{},
	}
}

func (f *orderServiceFixture) build(t *testing.T) OrderService {
	t.Helper()
	seq := 0
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:            f.orders,
		Stocks:            f.stocks,
		Carts:             f.carts,
		StoreConfig:       f.storeConfig,
		Counters:          f.counters,
		Gateway:           f.gateway,
		Shipping:          f.shipping,
		Mail:              f.mail,
		OriginCity:        "501",
		DefaultTaxPercent: "11",
		Clock:             func() time.Time { return time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC) },
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("%08d", seq)
		},
	})
	if err != nil {
		t.Fatalf("NewOrderService() error = %v", err)
	}
	return svc
}

func TestCreateFromCartManualOrder(t *testing.T) {
	f := newOrderServiceFixture()
	f.carts.getCartFn = func(ctx context.Context, userID string) (domain.Cart, error) {
		return domain.Cart{ID: userID, UserID: userID, Items: []domain.CartItem{
			{ID: "item-1", VariantID: "var-x", Name: "Widget", Quantity: 2, UnitPrice: 1000, WeightGrams: 100},
		}}, nil
	}
	f.stocks.getManyFn = func(ctx context.Context, ids []string) (map[string]domain.VariantStock, error) {
		return map[string]domain.VariantStock{"var-x": {VariantID: "var-x", Stock: 5}}, nil
	}
	f.storeConfig.getTaxFn = func(ctx context.Context) (domain.TaxConfig, error) {
		return domain.TaxConfig{Percent: "10"}, nil
	}
	f.counters.nextFn = func(ctx context.Context, counterID string, step int64) (int64, error) {
		if counterID != "orders" {
			t.Errorf("counter id = %q", counterID)
		}
		return 42, nil
	}
	var captured repositories.OrderCreateRequest
	f.orders.createFn = func(ctx context.Context, req repositories.OrderCreateRequest) (domain.Order, error) {
		captured = req
		return req.Order, nil
	}
	svc := f.build(t)

	order, err := svc.CreateFromCart(context.Background(), CreateOrderFromCartCommand{
		UserID: "user-1",
		Method: domain.MethodManual,
	})
	if err != nil {
		t.Fatalf("CreateFromCart() error = %v", err)
	}
	if order.Subtotal != 2000 || order.Tax != 200 || order.Total != 2200 {
		t.Errorf("money = subtotal %d tax %d total %d, want 2000/200/2200", order.Subtotal, order.Tax, order.Total)
	}
	if order.Status != domain.StatusUnpaid {
		t.Errorf("status = %s, want UNPAID", order.Status)
	}
	if order.OrderNumber != "BRP-2026-000042" {
		t.Errorf("order number = %q", order.OrderNumber)
	}
	if order.ShippingCost != 0 || order.Shipping != nil {
		t.Errorf("manual order should carry no courier quote: %+v", order.Shipping)
	}
	if captured.ClearCartUser != "user-1" {
		t.Errorf("cart clear user = %q", captured.ClearCartUser)
	}
	if len(captured.Lines) != 1 || captured.Lines[0].Quantity != 2 || captured.Lines[0].UnitPrice != 1000 {
		t.Errorf("lines = %+v", captured.Lines)
	}
	if len(f.mail.messages) != 1 || f.mail.messages[0].Kind != notifications.MailOrderCreated {
		t.Errorf("mail = %+v", f.mail.messages)
	}
}

func TestCreateFromCartDeliveryRequotesCourier(t *testing.T) {
	f := newOrderServiceFixture()
	f.carts.getCartFn = func(ctx context.Context, userID string) (domain.Cart, error) {
		return domain.Cart{Items: []domain.CartItem{
			{VariantID: "var-x", Name: "Widget", Quantity: 1, UnitPrice: 150000, WeightGrams: 1200},
		}}, nil
	}
	f.stocks.getManyFn = func(ctx context.Context, ids []string) (map[string]domain.VariantStock, error) {
		return map[string]domain.VariantStock{"var-x": {Stock: 3}}, nil
	}
	f.shipping.lookupCityFn = func(ctx context.Context, cityID string) (shipping.City, error) {
		return shipping.City{ID: cityID, Name: "Denpasar", Province: "Bali", PostalCode: "80227"}, nil
	}
	var rateQuery shipping.RateQuery
	f.shipping.ratesFn = func(ctx context.Context, query shipping.RateQuery) ([]domain.ShippingOption, error) {
		rateQuery = query
		return []domain.ShippingOption{
			{CourierCode: "jne", Service: "REG", Cost: 18000, EtaDays: "2-3"},
			{CourierCode: "jne", Service: "YES", Cost: 34000, EtaDays: "1-1"},
		}, nil
	}
	f.storeConfig.getTaxFn = func(ctx context.Context) (domain.TaxConfig, error) {
		return domain.TaxConfig{Percent: "11"}, nil
	}
	f.counters.nextFn = func(ctx context.Context, counterID string, step int64) (int64, error) { return 7, nil }
	f.orders.createFn = func(ctx context.Context, req repositories.OrderCreateRequest) (domain.Order, error) {
		return req.Order, nil
	}
	svc := f.build(t)

	order, err := svc.CreateFromCart(context.Background(), CreateOrderFromCartCommand{
		UserID:      "user-1",
		Method:      domain.MethodDelivery,
		Destination: domain.Destination{City: "114", Address: "Jl. Raya 1"},
		Courier:     &CourierSelection{CourierCode: "JNE", Service: "REG", Cost: 18000},
	})
	if err != nil {
		t.Fatalf("CreateFromCart() error = %v", err)
	}
	if rateQuery.OriginCity != "501" || rateQuery.DestinationCity != "114" || rateQuery.WeightGrams != 1200 {
		t.Errorf("rate query = %+v", rateQuery)
	}
	if order.Shipping == nil || order.Shipping.Cost != 18000 || order.Shipping.Service != "REG" {
		t.Errorf("shipping detail = %+v", order.Shipping)
	}
	if order.Destination == nil || order.Destination.PostalCode != "80227" || order.Destination.Province != "Bali" {
		t.Errorf("destination = %+v", order.Destination)
	}
	// 150000 + 11% tax 16500 + shipping 18000
	if order.Total != 184500 {
		t.Errorf("total = %d, want 184500", order.Total)
	}
}

func TestCreateFromCartStaleQuoteRejected(t *testing.T) {
	f := newOrderServiceFixture()
	f.carts.getCartFn = func(ctx context.Context, userID string) (domain.Cart, error) {
		return domain.Cart{Items: []domain.CartItem{{VariantID: "var-x", Quantity: 1, UnitPrice: 1000, WeightGrams: 500}}}, nil
	}
	f.stocks.getManyFn = func(ctx context.Context, ids []string) (map[string]domain.VariantStock, error) {
		return map[string]domain.VariantStock{"var-x": {Stock: 3}}, nil
	}
	f.shipping.lookupCityFn = func(ctx context.Context, cityID string) (shipping.City, error) {
		return shipping.City{ID: cityID, PostalCode: "80227"}, nil
	}
	f.shipping.ratesFn = func(ctx context.Context, query shipping.RateQuery) ([]domain.ShippingOption, error) {
		return []domain.ShippingOption{{CourierCode: "jne", Service: "REG", Cost: 20000}}, nil
	}
	svc := f.build(t)

	_, err := svc.CreateFromCart(context.Background(), CreateOrderFromCartCommand{
		UserID:      "user-1",
		Method:      domain.MethodDelivery,
		Destination: domain.Destination{City: "114", Address: "Jl. Raya 1"},
		Courier:     &CourierSelection{CourierCode: "jne", Service: "REG", Cost: 18000},
	})
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("err = %v, want ErrOrderConflict", err)
	}
}

func TestCreateFromCartEmptyCartRejected(t *testing.T) {
	f := newOrderServiceFixture()
	f.carts.getCartFn = func(ctx context.Context, userID string) (domain.Cart, error) {
		return domain.Cart{UserID: userID}, nil
	}
	svc := f.build(t)

	_, err := svc.CreateFromCart(context.Background(), CreateOrderFromCartCommand{UserID: "user-1", Method: domain.MethodManual})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("err = %v, want ErrOrderInvalidInput", err)
	}
}

func TestCreateFromCartAdvisoryStockConflict(t *testing.T) {
	f := newOrderServiceFixture()
	f.carts.getCartFn = func(ctx context.Context, userID string) (domain.Cart, error) {
		return domain.Cart{Items: []domain.CartItem{{VariantID: "var-x", Quantity: 10, UnitPrice: 1000}}}, nil
	}
	f.stocks.getManyFn = func(ctx context.Context, ids []string) (map[string]domain.VariantStock, error) {
		return map[string]domain.VariantStock{"var-x": {Stock: 2}}, nil
	}
	svc := f.build(t)

	_, err := svc.CreateFromCart(context.Background(), CreateOrderFromCartCommand{UserID: "user-1", Method: domain.MethodManual})
	if !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("err = %v, want ErrOrderConflict", err)
	}
}

func TestRequestPaymentIdempotent(t *testing.T) {
	f := newOrderServiceFixture()
	f.orders.findByIDFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		return domain.Order{
			ID:      orderID,
			UserID:  "user-1",
			Status:  domain.StatusUnpaid,
			Payment: &domain.PaymentDetail{Token: "tok-existing", RedirectURL: "https://pay.example.com/tok-existing"},
		}, nil
	}
	svc := f.build(t)

	detail, err := svc.RequestPayment(context.Background(), RequestPaymentCommand{OrderID: "ord-1", UserID: "user-1"})
	if err != nil {
		t.Fatalf("RequestPayment() error = %v", err)
	}
	if detail.Token != "tok-existing" {
		t.Errorf("token = %q, want existing token returned without a new checkout", detail.Token)
	}
}

func TestRequestPaymentCreatesCheckout(t *testing.T) {
	f := newOrderServiceFixture()
	f.orders.findByIDFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		return domain.Order{
			ID:     orderID,
			UserID: "user-1",
			Status: domain.StatusUnpaid,
			Total:  2200,
			Lines:  []domain.OrderLine{{VariantID: "var-x", Name: "Widget", Quantity: 2, UnitPrice: 1000}},
		}, nil
	}
	var checkoutReq payments.CheckoutRequest
	f.gateway.createCheckoutFn = func(ctx context.Context, req payments.CheckoutRequest) (payments.CheckoutSession, error) {
		checkoutReq = req
		return payments.CheckoutSession{Token: "tok-new", RedirectURL: "https://pay.example.com/tok-new"}, nil
	}
	f.orders.savePaymentDetailFn = func(ctx context.Context, orderID string, detail domain.PaymentDetail, now time.Time) (domain.Order, error) {
		return domain.Order{ID: orderID, Payment: &detail}, nil
	}
	svc := f.build(t)

	detail, err := svc.RequestPayment(context.Background(), RequestPaymentCommand{OrderID: "ord-1", UserID: "user-1", CustomerEmail: "a@b.c"})
	if err != nil {
		t.Fatalf("RequestPayment() error = %v", err)
	}
	if detail.Token != "tok-new" {
		t.Errorf("token = %q", detail.Token)
	}
	if checkoutReq.GrossAmount != 2200 || len(checkoutReq.Items) != 1 {
		t.Errorf("checkout request = %+v", checkoutReq)
	}
}

func TestCancelOrderRefundsSettledCharge(t *testing.T) {
	f := newOrderServiceFixture()
	paidAt := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	f.orders.findByIDFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		return domain.Order{ID: orderID, UserID: "user-1", Status: domain.StatusPaid}, nil
	}
	f.orders.cancelFn = func(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error) {
		return domain.Order{ID: req.OrderID, UserID: "user-1", Status: domain.StatusCancelled, PaidAt: &paidAt}, nil
	}
	f.gateway.getStatusFn = func(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
		return payments.TransactionStatus{OrderID: orderID, Status: payments.StatusSettled}, nil
	}
	refunded := false
	f.gateway.refundFn = func(ctx context.Context, req payments.RefundRequest) (payments.RefundResult, error) {
		refunded = true
		return payments.RefundResult{OrderID: req.OrderID, Status: payments.StatusRefunded}, nil
	}
	svc := f.build(t)

	order, err := svc.CancelOrder(context.Background(), CancelOrderCommand{OrderID: "ord-1", UserID: "user-1", Reason: "changed my mind"})
	if err != nil {
		t.Fatalf("CancelOrder() error = %v", err)
	}
	if !refunded {
		t.Error("settled charge was not refunded")
	}
	if order.IsRefundFailed {
		t.Error("refund flag should be clear")
	}
	if len(f.mail.messages) != 1 || f.mail.messages[0].Kind != notifications.MailOrderCanceled {
		t.Errorf("mail = %+v", f.mail.messages)
	}
}

func TestCancelOrderRefundFailureFlagsOrder(t *testing.T) {
	f := newOrderServiceFixture()
	paidAt := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	f.orders.findByIDFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		return domain.Order{ID: orderID, UserID: "user-1", Status: domain.StatusPaid}, nil
	}
	f.orders.cancelFn = func(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error) {
		return domain.Order{ID: req.OrderID, UserID: "user-1", Status: domain.StatusCancelled, PaidAt: &paidAt}, nil
	}
	f.gateway.getStatusFn = func(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
		return payments.TransactionStatus{OrderID: orderID, Status: payments.StatusSettled}, nil
	}
	f.gateway.refundFn = func(ctx context.Context, req payments.RefundRequest) (payments.RefundResult, error) {
		return payments.RefundResult{}, payments.ErrRefundRejected
	}
	flagged := false
	f.orders.setRefundFailedFn = func(ctx context.Context, orderID string, now time.Time) error {
		flagged = true
		return nil
	}
	svc := f.build(t)

	order, err := svc.CancelOrder(context.Background(), CancelOrderCommand{OrderID: "ord-1", UserID: "user-1"})
	if err != nil {
		t.Fatalf("CancelOrder() error = %v, cancellation must not fail on refund errors", err)
	}
	if !flagged {
		t.Error("refund failure was not flagged")
	}
	if !order.IsRefundFailed {
		t.Error("returned order should carry the refund flag")
	}
}

func TestCancelOrderUnpaidSkipsGateway(t *testing.T) {
	f := newOrderServiceFixture()
	f.orders.findByIDFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		return domain.Order{ID: orderID, UserID: "user-1", Status: domain.StatusUnpaid}, nil
	}
	f.orders.cancelFn = func(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error) {
		return domain.Order{ID: req.OrderID, UserID: "user-1", Status: domain.StatusCancelled}, nil
	}
	svc := f.build(t)

	if _, err := svc.CancelOrder(context.Background(), CancelOrderCommand{OrderID: "ord-1", UserID: "user-1"}); err != nil {
		t.Fatalf("CancelOrder() error = %v", err)
	}
}

func TestCancelOrderRefundsPaymentLandingDuringCancel(t *testing.T) {
	f := newOrderServiceFixture()
	paidAt := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	f.orders.findByIDFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		// Still unpaid at read time. The settlement lands before the
		// cancel transaction commits.
		return domain.Order{ID: orderID, UserID: "user-1", Status: domain.StatusUnpaid}, nil
	}
	f.orders.cancelFn = func(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error) {
		return domain.Order{ID: req.OrderID, UserID: "user-1", Status: domain.StatusCancelled, PaidAt: &paidAt}, nil
	}
	f.gateway.getStatusFn = func(ctx context.Context, orderID string) (payments.TransactionStatus, error) {
		return payments.TransactionStatus{OrderID: orderID, Status: payments.StatusSettled}, nil
	}
	refunded := false
	f.gateway.refundFn = func(ctx context.Context, req payments.RefundRequest) (payments.RefundResult, error) {
		refunded = true
		return payments.RefundResult{OrderID: req.OrderID, Status: payments.StatusRefunded}, nil
	}
	svc := f.build(t)

	if _, err := svc.CancelOrder(context.Background(), CancelOrderCommand{OrderID: "ord-1", UserID: "user-1"}); err != nil {
		t.Fatalf("CancelOrder() error = %v", err)
	}
	if !refunded {
		t.Error("charge settled during cancellation was not refunded")
	}
}

func TestCancelOrderForbiddenForOtherUser(t *testing.T) {
	f := newOrderServiceFixture()
	f.orders.findByIDFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		return domain.Order{ID: orderID, UserID: "user-1", Status: domain.StatusUnpaid}, nil
	}
	svc := f.build(t)

	_, err := svc.CancelOrder(context.Background(), CancelOrderCommand{OrderID: "ord-1", UserID: "user-2"})
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("err = %v, want ErrOrderForbidden", err)
	}
}

func TestTransitionStatusMapsStockIssueGuard(t *testing.T) {
	f := newOrderServiceFixture()
	f.orders.transitionFn = func(ctx context.Context, req repositories.OrderTransitionRequest) (domain.Order, error) {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorStockIssueOpen, "2 lines flagged", nil)
	}
	svc := f.build(t)

	_, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{OrderID: "ord-1", Target: domain.StatusShipped, TrackingNumber: "TRK-1"})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("err = %v, want ErrOrderInvalidState", err)
	}
}

func TestTransitionStatusShippedSendsReceiptMail(t *testing.T) {
	f := newOrderServiceFixture()
	tracking := "TRK-9"
	f.orders.transitionFn = func(ctx context.Context, req repositories.OrderTransitionRequest) (domain.Order, error) {
		return domain.Order{ID: req.OrderID, UserID: "user-1", Status: domain.StatusShipped, TrackingNumber: &tracking}, nil
	}
	svc := f.build(t)

	if _, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{OrderID: "ord-1", Target: domain.StatusShipped, TrackingNumber: tracking}); err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}
	if len(f.mail.messages) != 1 || f.mail.messages[0].TrackingNumber != tracking {
		t.Errorf("mail = %+v", f.mail.messages)
	}
}

func TestUpdateShippingReceiptValidation(t *testing.T) {
	f := newOrderServiceFixture()
	svc := f.build(t)

	if _, err := svc.UpdateShippingReceipt(context.Background(), ShippingReceiptCommand{OrderID: "ord-1"}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("err = %v, want ErrOrderInvalidInput", err)
	}
}

func TestAddManualShippingCostRejectsNegative(t *testing.T) {
	f := newOrderServiceFixture()
	svc := f.build(t)

	if _, err := svc.AddManualShippingCost(context.Background(), ManualShippingCostCommand{OrderID: "ord-1", Cost: -5}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("err = %v, want ErrOrderInvalidInput", err)
	}
}
