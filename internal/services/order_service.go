package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/brp-commerce/api/internal/domain"
	"github.com/brp-commerce/api/internal/notifications"
	"github.com/brp-commerce/api/internal/payments"
	"github.com/brp-commerce/api/internal/repositories"
	"github.com/brp-commerce/api/internal/shipping"
)

const orderNumberCounter = "orders"

var (
	// ErrOrderInvalidInput signals the caller provided invalid arguments.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates the order cannot perform the requested transition.
	ErrOrderInvalidState = errors.New("order: state invalid")
	// ErrOrderConflict indicates checkout-time data went stale (price quote, advisory stock).
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderForbidden indicates the actor does not own the order.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderUpstream indicates a payment or shipping collaborator failed.
	ErrOrderUpstream = errors.New("order: upstream failure")
)

// OrderServiceDeps bundles the collaborators required to construct an order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Stocks      repositories.StockRepository
	Carts       repositories.CartRepository
	StoreConfig repositories.StoreConfigRepository
	Counters    repositories.CounterRepository
	Gateway     payments.Gateway
	Shipping    shipping.Provider
	Mail        notifications.Dispatcher

	// OriginCity is the warehouse city id used for every courier quote.
	OriginCity string
	// DefaultTaxPercent backs order creation when no tax config document exists.
	DefaultTaxPercent string

	Clock       Clock
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders      repositories.OrderRepository
	stocks      repositories.StockRepository
	carts       repositories.CartRepository
	storeConfig repositories.StoreConfigRepository
	counters    repositories.CounterRepository
	gateway     payments.Gateway
	shipping    shipping.Provider
	mail        notifications.Dispatcher

	originCity        string
	defaultTaxPercent string

	clock  Clock
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("order service: cart repository is required")
	}
	if deps.StoreConfig == nil {
		return nil, errors.New("order service: store config repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("order service: payment gateway is required")
	}
	if deps.Shipping == nil {
		return nil, errors.New("order service: shipping provider is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:            deps.Orders,
		stocks:            deps.Stocks,
		carts:             deps.Carts,
		storeConfig:       deps.StoreConfig,
		counters:          deps.Counters,
		gateway:           deps.Gateway,
		shipping:          deps.Shipping,
		mail:              deps.Mail,
		originCity:        strings.TrimSpace(deps.OriginCity),
		defaultTaxPercent: strings.TrimSpace(deps.DefaultTaxPercent),
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) CreateFromCart(ctx context.Context, cmd CreateOrderFromCartCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidMethod(cmd.Method) {
		return Order{}, fmt.Errorf("%w: unknown fulfilment method %q", ErrOrderInvalidInput, cmd.Method)
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if len(cart.Items) == 0 {
		return Order{}, fmt.Errorf("%w: cart is empty", ErrOrderInvalidInput)
	}

	destination, err := s.validateDestination(ctx, cmd.Method, cmd.Destination)
	if err != nil {
		return Order{}, err
	}

	if err := s.checkAdvisoryStock(ctx, cart.Items); err != nil {
		return Order{}, err
	}

	totalWeight := 0
	for _, item := range cart.Items {
		totalWeight += item.WeightGrams * item.Quantity
	}

	var shippingDetail *ShippingDetail
	shippingCost := int64(0)
	if cmd.Method == domain.MethodDelivery {
		detail, quoteErr := s.requoteCourier(ctx, destination, totalWeight, cmd.Courier)
		if quoteErr != nil {
			return Order{}, quoteErr
		}
		shippingDetail = &detail
		shippingCost = detail.Cost
	}

	taxPercent, err := s.taxPercent(ctx)
	if err != nil {
		return Order{}, err
	}

	pricingLines := make([]PricingLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		pricingLines = append(pricingLines, PricingLine{
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			WeightGrams: item.WeightGrams,
		})
	}
	breakdown, err := CalculatePricing(pricingLines, taxPercent, shippingCost)
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	orderNumber, err := s.nextOrderNumber(ctx, now)
	if err != nil {
		return Order{}, err
	}

	orderID := "ord_" + s.newID()
	lines := make([]domain.OrderLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, domain.OrderLine{
			ID:          "line_" + s.newID(),
			OrderID:     orderID,
			VariantID:   item.VariantID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			WeightGrams: item.WeightGrams,
			CreatedAt:   now,
		})
	}

	order := domain.Order{
		ID:               orderID,
		OrderNumber:      orderNumber,
		UserID:           userID,
		Method:           cmd.Method,
		Status:           domain.StatusUnpaid,
		Subtotal:         breakdown.Subtotal,
		Tax:              breakdown.Tax,
		TaxRate:          breakdown.TaxRate,
		ShippingCost:     breakdown.Shipping,
		Total:            breakdown.Total,
		TotalWeightGrams: breakdown.TotalWeightGrams,
		Destination:      destination,
		Shipping:         shippingDetail,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.orders.Create(ctx, repositories.OrderCreateRequest{
		Order:         order,
		Lines:         lines,
		ClearCartUser: userID,
		Now:           now,
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "order.created", map[string]any{
		"orderId":     created.ID,
		"orderNumber": created.OrderNumber,
		"userId":      userID,
		"method":      string(created.Method),
		"total":       created.Total,
	})
	s.dispatchMail(ctx, notifications.MailJobMessage{
		Kind:           notifications.MailOrderCreated,
		OrderID:        created.ID,
		OrderNumber:    created.OrderNumber,
		UserID:         userID,
		RecipientEmail: strings.TrimSpace(cmd.CustomerEmail),
		TotalAmount:    created.Total,
		QueuedAt:       now,
	})

	return created, nil
}

func (s *orderService) GetOrder(ctx context.Context, cmd GetOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if !cmd.IsAdmin && order.UserID != strings.TrimSpace(cmd.UserID) {
		return Order{}, fmt.Errorf("%w: order %s", ErrOrderForbidden, orderID)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) RequestPayment(ctx context.Context, cmd RequestPaymentCommand) (PaymentDetail, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return PaymentDetail{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return PaymentDetail{}, s.mapRepositoryError(err)
	}
	if userID := strings.TrimSpace(cmd.UserID); userID != "" && order.UserID != userID {
		return PaymentDetail{}, fmt.Errorf("%w: order %s", ErrOrderForbidden, orderID)
	}
	if order.Payment != nil && order.Payment.Token != "" {
		return *order.Payment, nil
	}
	if order.Status != domain.StatusUnpaid {
		return PaymentDetail{}, fmt.Errorf("%w: payment can only be requested while unpaid", ErrOrderInvalidState)
	}

	items := make([]payments.CheckoutItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, payments.CheckoutItem{
			ID:       line.VariantID,
			Name:     line.Name,
			Quantity: line.Quantity,
			Price:    line.UnitPrice,
		})
	}

	session, err := s.gateway.CreateCheckout(ctx, payments.CheckoutRequest{
		OrderID:       order.ID,
		GrossAmount:   order.Total,
		CustomerName:  strings.TrimSpace(cmd.CustomerName),
		CustomerEmail: strings.TrimSpace(cmd.CustomerEmail),
		Items:         items,
	})
	if err != nil {
		return PaymentDetail{}, fmt.Errorf("%w: create checkout: %v", ErrOrderUpstream, err)
	}

	saved, err := s.orders.SavePaymentDetail(ctx, order.ID, domain.PaymentDetail{
		Token:       session.Token,
		RedirectURL: session.RedirectURL,
	}, s.clock())
	if err != nil {
		return PaymentDetail{}, s.mapRepositoryError(err)
	}
	if saved.Payment == nil {
		return PaymentDetail{}, fmt.Errorf("%w: payment detail missing after save", ErrOrderUpstream)
	}

	s.logger(ctx, "order.paymentRequested", map[string]any{
		"orderId": order.ID,
		"userId":  order.UserID,
	})
	return *saved.Payment, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidStatus(cmd.Target) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Target)
	}

	order, err := s.orders.Transition(ctx, repositories.OrderTransitionRequest{
		OrderID:        orderID,
		Target:         cmd.Target,
		TrackingNumber: strings.TrimSpace(cmd.TrackingNumber),
		Now:            s.clock(),
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "order.transitioned", map[string]any{
		"orderId": order.ID,
		"status":  string(order.Status),
		"actorId": strings.TrimSpace(cmd.ActorID),
	})
	if order.Status == domain.StatusShipped {
		s.dispatchMail(ctx, notifications.MailJobMessage{
			Kind:           notifications.MailOrderReceipt,
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			UserID:         order.UserID,
			TrackingNumber: trackingOrEmpty(order),
			QueuedAt:       s.clock(),
		})
	}
	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if !cmd.IsAdmin && order.UserID != strings.TrimSpace(cmd.UserID) {
		return Order{}, fmt.Errorf("%w: order %s", ErrOrderForbidden, orderID)
	}

	cancelled, err := s.orders.Cancel(ctx, repositories.OrderCancelRequest{
		OrderID: orderID,
		Reason:  strings.TrimSpace(cmd.Reason),
		Now:     s.clock(),
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	// The pre-read above only checks ownership. Whether a charge needs
	// refunding comes from the transactional result, so a settlement that
	// lands between the read and the cancel is still refunded.
	wasPaid := cancelled.PaidAt != nil

	if wasPaid {
		s.refundIfSettled(ctx, &cancelled)
	}

	s.logger(ctx, "order.cancelled", map[string]any{
		"orderId":      cancelled.ID,
		"actorId":      strings.TrimSpace(cmd.UserID),
		"admin":        cmd.IsAdmin,
		"wasPaid":      wasPaid,
		"refundFailed": cancelled.IsRefundFailed,
	})

	mail := notifications.MailJobMessage{
		Kind:         notifications.MailOrderCanceled,
		OrderID:      cancelled.ID,
		OrderNumber:  cancelled.OrderNumber,
		UserID:       cancelled.UserID,
		CancelReason: strings.TrimSpace(cmd.Reason),
		QueuedAt:     s.clock(),
	}
	if cmd.IsAdmin && cancelled.StockIssueCount > 0 {
		mail.StockIssues = cancelled.StockIssueCount
	}
	s.dispatchMail(ctx, mail)

	return cancelled, nil
}

// refundIfSettled attempts a refund only when the gateway confirms the charge
// actually settled. A failed attempt flags the order instead of blocking the
// cancellation.
func (s *orderService) refundIfSettled(ctx context.Context, order *domain.Order) {
	status, err := s.gateway.GetStatus(ctx, order.ID)
	if err != nil {
		if errors.Is(err, payments.ErrTransactionNotFound) {
			return
		}
		s.flagRefundFailed(ctx, order, err)
		return
	}
	if status.Status != payments.StatusSettled {
		return
	}

	if _, err := s.gateway.Refund(ctx, payments.RefundRequest{
		OrderID: order.ID,
		Reason:  "order cancelled",
	}); err != nil {
		s.flagRefundFailed(ctx, order, err)
	}
}

func (s *orderService) flagRefundFailed(ctx context.Context, order *domain.Order, cause error) {
	s.logger(ctx, "order.refundFailed", map[string]any{
		"orderId": order.ID,
		"error":   cause.Error(),
	})
	if err := s.orders.SetRefundFailed(ctx, order.ID, s.clock()); err != nil {
		s.logger(ctx, "order.refundFlagWriteFailed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return
	}
	order.IsRefundFailed = true
}

func (s *orderService) AddManualShippingCost(ctx context.Context, cmd ManualShippingCostCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if cmd.Cost < 0 {
		return Order{}, fmt.Errorf("%w: shipping cost cannot be negative", ErrOrderInvalidInput)
	}

	order, err := s.orders.SetManualShippingCost(ctx, orderID, cmd.Cost, s.clock())
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "order.manualShippingCost", map[string]any{
		"orderId": order.ID,
		"cost":    cmd.Cost,
		"actorId": strings.TrimSpace(cmd.ActorID),
	})
	return order, nil
}

func (s *orderService) UpdateShippingReceipt(ctx context.Context, cmd ShippingReceiptCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	tracking := strings.TrimSpace(cmd.TrackingNumber)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if tracking == "" {
		return Order{}, fmt.Errorf("%w: tracking number is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.SetTrackingNumber(ctx, orderID, tracking, s.clock())
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "order.receiptUpdated", map[string]any{
		"orderId": order.ID,
		"actorId": strings.TrimSpace(cmd.ActorID),
	})
	return order, nil
}

// validateDestination enforces the address contract per fulfilment method.
// Delivery orders get their city re-validated against the rate provider.
func (s *orderService) validateDestination(ctx context.Context, method ShippingMethod, dest Destination) (*Destination, error) {
	if method == domain.MethodManual {
		if dest == (Destination{}) {
			return nil, nil
		}
		normalized := normalizeDestination(dest)
		return &normalized, nil
	}

	normalized := normalizeDestination(dest)
	if normalized.City == "" {
		return nil, fmt.Errorf("%w: destination city is required", ErrOrderInvalidInput)
	}
	if normalized.Address == "" {
		return nil, fmt.Errorf("%w: destination address is required", ErrOrderInvalidInput)
	}

	city, err := s.shipping.LookupCity(ctx, normalized.City)
	if err != nil {
		if errors.Is(err, shipping.ErrCityNotFound) {
			return nil, fmt.Errorf("%w: destination city %s", ErrOrderNotFound, normalized.City)
		}
		return nil, fmt.Errorf("%w: city lookup: %v", ErrOrderUpstream, err)
	}
	if normalized.PostalCode == "" {
		normalized.PostalCode = strings.TrimSpace(city.PostalCode)
	}
	if normalized.Province == "" {
		normalized.Province = strings.TrimSpace(city.Province)
	}
	if normalized.PostalCode == "" {
		return nil, fmt.Errorf("%w: postal code is required", ErrOrderInvalidInput)
	}
	return &normalized, nil
}

// checkAdvisoryStock is a best-effort early rejection; the authoritative check
// happens when payment settles.
func (s *orderService) checkAdvisoryStock(ctx context.Context, items []CartItem) error {
	if s.stocks == nil {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.VariantID)
	}
	stocks, err := s.stocks.GetMany(ctx, ids)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	for _, item := range items {
		stock, ok := stocks[item.VariantID]
		if !ok {
			return fmt.Errorf("%w: variant %s is no longer sellable", ErrOrderConflict, item.VariantID)
		}
		if stock.Stock < item.Quantity {
			return fmt.Errorf("%w: variant %s has %d in stock, %d requested", ErrOrderConflict, item.VariantID, stock.Stock, item.Quantity)
		}
	}
	return nil
}

// requoteCourier fetches fresh rates and requires the client's chosen quote to
// still be on offer at the same price.
func (s *orderService) requoteCourier(ctx context.Context, dest *Destination, totalWeight int, selection *CourierSelection) (ShippingDetail, error) {
	if selection == nil {
		return ShippingDetail{}, fmt.Errorf("%w: courier selection is required for delivery orders", ErrOrderInvalidInput)
	}
	courierCode := strings.ToLower(strings.TrimSpace(selection.CourierCode))
	service := strings.TrimSpace(selection.Service)
	if courierCode == "" || service == "" {
		return ShippingDetail{}, fmt.Errorf("%w: courier code and service are required", ErrOrderInvalidInput)
	}
	if totalWeight <= 0 {
		totalWeight = 1
	}

	options, err := s.shipping.Rates(ctx, shipping.RateQuery{
		OriginCity:      s.originCity,
		DestinationCity: dest.City,
		WeightGrams:     totalWeight,
		CourierCode:     courierCode,
	})
	if err != nil {
		if errors.Is(err, shipping.ErrNoRates) {
			return ShippingDetail{}, fmt.Errorf("%w: courier %s offers no service to this destination", ErrOrderNotFound, courierCode)
		}
		return ShippingDetail{}, fmt.Errorf("%w: courier quote: %v", ErrOrderUpstream, err)
	}

	for _, option := range options {
		if !strings.EqualFold(option.Service, service) {
			continue
		}
		if option.Cost != selection.Cost {
			return ShippingDetail{}, fmt.Errorf("%w: quote for %s %s changed from %d to %d", ErrOrderConflict, courierCode, service, selection.Cost, option.Cost)
		}
		return ShippingDetail{
			CourierCode: option.CourierCode,
			Service:     option.Service,
			Description: option.Description,
			Cost:        option.Cost,
			EtaDays:     option.EtaDays,
		}, nil
	}
	return ShippingDetail{}, fmt.Errorf("%w: courier service %s/%s not offered", ErrOrderNotFound, courierCode, service)
}

func (s *orderService) taxPercent(ctx context.Context) (string, error) {
	cfg, err := s.storeConfig.GetTax(ctx)
	if err == nil && strings.TrimSpace(cfg.Percent) != "" {
		return cfg.Percent, nil
	}
	if err != nil && !isNotFound(err) {
		return "", s.mapRepositoryError(err)
	}
	if s.defaultTaxPercent != "" {
		return s.defaultTaxPercent, nil
	}
	return "", fmt.Errorf("%w: tax configuration", ErrOrderNotFound)
}

func (s *orderService) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, orderNumberCounter, 1)
	if err != nil {
		return "", s.mapRepositoryError(err)
	}
	return fmt.Sprintf("BRP-%d-%06d", now.Year(), seq), nil
}

// dispatchMail is fire and forget; delivery problems never fail the
// originating order mutation.
func (s *orderService) dispatchMail(ctx context.Context, message notifications.MailJobMessage) {
	if s.mail == nil {
		return
	}
	if _, err := s.mail.DispatchMail(ctx, message); err != nil {
		s.logger(ctx, "order.mailDispatchFailed", map[string]any{
			"orderId": message.OrderID,
			"kind":    string(message.Kind),
			"error":   err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	return mapOrderRepositoryError(err)
}

func mapOrderRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var orderErr *repositories.OrderError
	if errors.As(err, &orderErr) {
		switch orderErr.Code {
		case repositories.OrderErrorNotFound, repositories.OrderErrorLineNotFound:
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderErr.Message)
		case repositories.OrderErrorInvalidState, repositories.OrderErrorStockIssueOpen:
			return fmt.Errorf("%w: %s", ErrOrderInvalidState, orderErr.Message)
		case repositories.OrderErrorConflict:
			return fmt.Errorf("%w: %s", ErrOrderConflict, orderErr.Message)
		}
	}

	var stockErr *repositories.StockError
	if errors.As(err, &stockErr) {
		switch stockErr.Code {
		case repositories.StockErrorVariantNotFound, repositories.StockErrorLineNotFound:
			return fmt.Errorf("%w: %s", ErrOrderNotFound, stockErr.Message)
		case repositories.StockErrorInsufficient:
			return fmt.Errorf("%w: %s", ErrOrderConflict, stockErr.Message)
		}
	}

	if isNotFound(err) {
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	}

	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

func normalizeDestination(dest Destination) Destination {
	return Destination{
		Province:    strings.TrimSpace(dest.Province),
		City:        strings.TrimSpace(dest.City),
		District:    strings.TrimSpace(dest.District),
		Subdistrict: strings.TrimSpace(dest.Subdistrict),
		PostalCode:  strings.TrimSpace(dest.PostalCode),
		Address:     strings.TrimSpace(dest.Address),
	}
}

func trackingOrEmpty(order domain.Order) string {
	if order.TrackingNumber == nil {
		return ""
	}
	return *order.TrackingNumber
}
