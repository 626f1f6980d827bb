package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/brp-commerce/api/internal/domain"
	"github.com/brp-commerce/api/internal/platform/auth"
	"github.com/brp-commerce/api/internal/platform/httpx"
	"github.com/brp-commerce/api/internal/services"
)

const maxOrderBodySize = 16 * 1024

type createOrderRequest struct {
	Method        string                   `json:"method"`
	CustomerName  string                   `json:"customer_name"`
	CustomerEmail string                   `json:"customer_email"`
	Destination   *destinationRequest      `json:"destination"`
	Courier       *courierSelectionRequest `json:"courier"`
}

type destinationRequest struct {
	Province    string `json:"province"`
	City        string `json:"city"`
	District    string `json:"district"`
	Subdistrict string `json:"subdistrict"`
	PostalCode  string `json:"postal_code"`
	Address     string `json:"address"`
}

type courierSelectionRequest struct {
	CourierCode string `json:"courier_code"`
	Service     string `json:"service"`
	Cost        int64  `json:"cost"`
}

type requestPaymentRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type transitionStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

type shippingCostRequest struct {
	Cost *int64 `json:"cost"`
}

type shippingReceiptRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

type resolveLineRequest struct {
	Quantity int `json:"quantity"`
}

// OrderHandlers exposes the order lifecycle endpoints for authenticated users
// and back-office staff.
type OrderHandlers struct {
	authn       *auth.Authenticator
	orders      services.OrderService
	inventory   services.InventoryService
	idempotency func(http.Handler) http.Handler
}

// OrderOption customises OrderHandlers construction.
type OrderOption func(*OrderHandlers)

// WithOrderIdempotency guards order creation with the supplied idempotency
// middleware. Clients must send an Idempotency-Key header on POST /orders.
func WithOrderIdempotency(mw func(http.Handler) http.Handler) OrderOption {
	return func(h *OrderHandlers) {
		h.idempotency = mw
	}
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, inventory services.InventoryService, opts ...OrderOption) *OrderHandlers {
	h := &OrderHandlers{
		authn:     authn,
		orders:    orders,
		inventory: inventory,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	if h.idempotency != nil {
		r.With(h.idempotency).Post("/", h.createOrder)
	} else {
		r.Post("/", h.createOrder)
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}:pay", h.requestPayment)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Post("/{orderID}:status", h.transitionStatus)
	r.Post("/{orderID}/shipping-cost", h.setManualShippingCost)
	r.Post("/{orderID}/receipt", h.updateShippingReceipt)
	r.Post("/{orderID}/lines/{lineID}:resolve", h.resolveStockLine)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeRequestBody(ctx, w, r, &req) {
		return
	}

	cmd := services.CreateOrderFromCartCommand{
		UserID:        identity.UID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Method:        domain.ShippingMethod(strings.ToUpper(strings.TrimSpace(req.Method))),
	}
	if req.Destination != nil {
		cmd.Destination = domain.Destination{
			Province:    req.Destination.Province,
			City:        req.Destination.City,
			District:    req.Destination.District,
			Subdistrict: req.Destination.Subdistrict,
			PostalCode:  req.Destination.PostalCode,
			Address:     req.Destination.Address,
		}
	}
	if req.Courier != nil {
		cmd.Courier = &services.CourierSelection{
			CourierCode: req.Courier.CourierCode,
			Service:     req.Courier.Service,
			Cost:        req.Courier.Cost,
		}
	}

	order, err := h.orders.CreateFromCart(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusCreated, "order created", buildOrderPayload(order))
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	query := r.URL.Query()
	pager, err := parsePagination(query)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.OrderListFilter{
		UserID:     identity.UID,
		Pagination: pager,
	}
	for _, raw := range parseFilterValues(query["status"]) {
		status := domain.OrderStatus(raw)
		if !domain.ValidStatus(status) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status filter contains an unknown status", http.StatusBadRequest))
			return
		}
		filter.Status = append(filter.Status, status)
	}

	if isAdminIdentity(identity) {
		filter.UserID = strings.TrimSpace(query.Get("user_id"))
		if raw := strings.ToUpper(strings.TrimSpace(query.Get("method"))); raw != "" {
			method := domain.ShippingMethod(raw)
			if !domain.ValidMethod(method) {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "method filter must be DELIVERY or MANUAL", http.StatusBadRequest))
				return
			}
			filter.Method = &method
		}
		if raw := strings.TrimSpace(query.Get("has_stock_issue")); raw != "" {
			flagged := raw == "true" || raw == "1"
			filter.HasStockIssue = &flagged
		}
		filter.Search = strings.TrimSpace(query.Get("q"))
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}
	httpx.WriteData(w, http.StatusOK, "orders listed", orderListPayload{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, services.GetOrderCommand{
		OrderID: orderID,
		UserID:  identity.UID,
		IsAdmin: isAdminIdentity(identity),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, "order fetched", buildOrderPayload(order))
}

func (h *OrderHandlers) requestPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req requestPaymentRequest
	if !decodeOptionalRequestBody(ctx, w, r, &req) {
		return
	}

	payment, err := h.orders.RequestPayment(ctx, services.RequestPaymentCommand{
		OrderID:       orderID,
		UserID:        identity.UID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, "payment session ready", paymentDetailPayload{
		Token:       payment.Token,
		RedirectURL: payment.RedirectURL,
		PaymentType: payment.PaymentType,
	})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req cancelOrderRequest
	if !decodeOptionalRequestBody(ctx, w, r, &req) {
		return
	}

	order, err := h.orders.CancelOrder(ctx, services.CancelOrderCommand{
		OrderID: orderID,
		UserID:  identity.UID,
		IsAdmin: isAdminIdentity(identity),
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, "order cancelled", buildOrderPayload(order))
}

func (h *OrderHandlers) transitionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireAdminIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req transitionStatusRequest
	if !decodeRequestBody(ctx, w, r, &req) {
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID:        orderID,
		Target:         domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
		ActorID:        identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, "order status updated", buildOrderPayload(order))
}

func (h *OrderHandlers) setManualShippingCost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireAdminIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req shippingCostRequest
	if !decodeRequestBody(ctx, w, r, &req) {
		return
	}
	if req.Cost == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "cost is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.AddManualShippingCost(ctx, services.ManualShippingCostCommand{
		OrderID: orderID,
		Cost:    *req.Cost,
		ActorID: identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, "shipping cost recorded", buildOrderPayload(order))
}

func (h *OrderHandlers) updateShippingReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireAdminIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req shippingReceiptRequest
	if !decodeRequestBody(ctx, w, r, &req) {
		return
	}

	order, err := h.orders.UpdateShippingReceipt(ctx, services.ShippingReceiptCommand{
		OrderID:        orderID,
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
		ActorID:        identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, "shipping receipt recorded", buildOrderPayload(order))
}

func (h *OrderHandlers) resolveStockLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireAdminIdentity(ctx, w)
	if !ok {
		return
	}
	orderID, ok := requireOrderID(ctx, w, r)
	if !ok {
		return
	}
	lineID := strings.TrimSpace(chi.URLParam(r, "lineID"))
	if lineID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "line id is required", http.StatusBadRequest))
		return
	}
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req resolveLineRequest
	if !decodeRequestBody(ctx, w, r, &req) {
		return
	}

	resolution, err := h.inventory.ResolveLine(ctx, services.ResolveStockLineCommand{
		OrderID:  orderID,
		LineID:   lineID,
		Quantity: req.Quantity,
		ActorID:  identity.UID,
	})
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, "stock line resolved", stockResolutionPayload{
		LineID:    resolution.LineID,
		Cleared:   resolution.Cleared,
		Shortfall: resolution.Shortfall,
	})
}

func (h *OrderHandlers) requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func (h *OrderHandlers) requireAdminIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return nil, false
	}
	if !isAdminIdentity(identity) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "admin role required", http.StatusForbidden))
		return nil, false
	}
	return identity, true
}

func isAdminIdentity(identity *auth.Identity) bool {
	return identity.HasAnyRole(auth.RoleAdmin, auth.RoleStaff)
}

func requireOrderID(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return "", false
	}
	return orderID, true
}

func decodeRequestBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any) bool {
	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		case errors.Is(err, errEmptyBody):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

// decodeOptionalRequestBody tolerates an absent body and decodes it when present.
func decodeOptionalRequestBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any) bool {
	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errEmptyBody):
			return true
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
			return false
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return false
		}
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

type orderListPayload struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	ID              string `json:"id"`
	OrderNumber     string `json:"order_number"`
	Method          string `json:"method"`
	Status          string `json:"status"`
	Total           int64  `json:"total"`
	StockIssueCount int    `json:"stock_issue_count,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type orderPayload struct {
	ID                 string                `json:"id"`
	OrderNumber        string                `json:"order_number"`
	UserID             string                `json:"user_id"`
	Method             string                `json:"method"`
	Status             string                `json:"status"`
	Subtotal           int64                 `json:"subtotal"`
	Tax                int64                 `json:"tax"`
	TaxRate            string                `json:"tax_rate"`
	ShippingCost       int64                 `json:"shipping_cost"`
	ManualShippingCost *int64                `json:"manual_shipping_cost,omitempty"`
	Total              int64                 `json:"total"`
	TotalWeightGrams   int                   `json:"total_weight_grams,omitempty"`
	Destination        *destinationPayload   `json:"destination,omitempty"`
	Shipping           *shippingPayload      `json:"shipping,omitempty"`
	TrackingNumber     string                `json:"tracking_number,omitempty"`
	Payment            *paymentDetailPayload `json:"payment,omitempty"`
	IsRefundFailed     bool                  `json:"is_refund_failed,omitempty"`
	CancelReason       string                `json:"cancel_reason,omitempty"`
	StockIssueCount    int                   `json:"stock_issue_count,omitempty"`
	Lines              []orderLinePayload    `json:"lines"`
	CreatedAt          string                `json:"created_at"`
	UpdatedAt          string                `json:"updated_at,omitempty"`
	PaidAt             string                `json:"paid_at,omitempty"`
	ShippedAt          string                `json:"shipped_at,omitempty"`
	DeliveredAt        string                `json:"delivered_at,omitempty"`
	ProcessingAt       string                `json:"processing_at,omitempty"`
	CompletedAt        string                `json:"completed_at,omitempty"`
	CanceledAt         string                `json:"canceled_at,omitempty"`
}

type destinationPayload struct {
	Province    string `json:"province,omitempty"`
	City        string `json:"city"`
	District    string `json:"district,omitempty"`
	Subdistrict string `json:"subdistrict,omitempty"`
	PostalCode  string `json:"postal_code"`
	Address     string `json:"address"`
}

type shippingPayload struct {
	CourierCode string `json:"courier_code"`
	Service     string `json:"service"`
	Description string `json:"description,omitempty"`
	Cost        int64  `json:"cost"`
	EtaDays     string `json:"eta_days,omitempty"`
}

type paymentDetailPayload struct {
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	PaymentType string `json:"payment_type,omitempty"`
}

type orderLinePayload struct {
	ID          string `json:"id"`
	VariantID   string `json:"variant_id"`
	Name        string `json:"name,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Total       int64  `json:"total"`
	WeightGrams int    `json:"weight_grams,omitempty"`
	StockIssue  bool   `json:"stock_issue,omitempty"`
}

type stockResolutionPayload struct {
	LineID    string `json:"line_id"`
	Cleared   bool   `json:"cleared"`
	Shortfall int    `json:"shortfall,omitempty"`
}

func buildOrderSummary(order services.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Method:          string(order.Method),
		Status:          string(order.Status),
		Total:           order.Total,
		StockIssueCount: order.StockIssueCount,
		CreatedAt:       formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		UserID:             order.UserID,
		Method:             string(order.Method),
		Status:             string(order.Status),
		Subtotal:           order.Subtotal,
		Tax:                order.Tax,
		TaxRate:            order.TaxRate,
		ShippingCost:       order.ShippingCost,
		ManualShippingCost: order.ManualShippingCost,
		Total:              order.Total,
		TotalWeightGrams:   order.TotalWeightGrams,
		TrackingNumber:     stringFromPtr(order.TrackingNumber),
		IsRefundFailed:     order.IsRefundFailed,
		CancelReason:       stringFromPtr(order.CancelReason),
		StockIssueCount:    order.StockIssueCount,
		Lines:              make([]orderLinePayload, 0, len(order.Lines)),
		CreatedAt:          formatTime(order.CreatedAt),
		UpdatedAt:          formatTime(order.UpdatedAt),
		PaidAt:             formatTimePtr(order.PaidAt),
		ShippedAt:          formatTimePtr(order.ShippedAt),
		DeliveredAt:        formatTimePtr(order.DeliveredAt),
		ProcessingAt:       formatTimePtr(order.ProcessingAt),
		CompletedAt:        formatTimePtr(order.CompletedAt),
		CanceledAt:         formatTimePtr(order.CanceledAt),
	}

	if order.Destination != nil {
		payload.Destination = &destinationPayload{
			Province:    order.Destination.Province,
			City:        order.Destination.City,
			District:    order.Destination.District,
			Subdistrict: order.Destination.Subdistrict,
			PostalCode:  order.Destination.PostalCode,
			Address:     order.Destination.Address,
		}
	}
	if order.Shipping != nil {
		payload.Shipping = &shippingPayload{
			CourierCode: order.Shipping.CourierCode,
			Service:     order.Shipping.Service,
			Description: order.Shipping.Description,
			Cost:        order.Shipping.Cost,
			EtaDays:     order.Shipping.EtaDays,
		}
	}
	if order.Payment != nil {
		payload.Payment = &paymentDetailPayload{
			Token:       order.Payment.Token,
			RedirectURL: order.Payment.RedirectURL,
			PaymentType: order.Payment.PaymentType,
		}
	}
	for _, line := range order.Lines {
		payload.Lines = append(payload.Lines, orderLinePayload{
			ID:          line.ID,
			VariantID:   line.VariantID,
			Name:        line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Total:       line.Total(),
			WeightGrams: line.WeightGrams,
			StockIssue:  line.StockIssue,
		})
	}

	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderForbidden):
		// Ownership mismatches are reported as not found so order ids cannot
		// be probed by other accounts.
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderUpstream):
		httpx.WriteError(ctx, w, httpx.NewError("upstream_unavailable", "an upstream provider rejected the request", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func writeInventoryError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrInventoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInventoryVariantNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("variant_not_found", "variant not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInventoryLineNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_line_not_found", "order line not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInventoryLineNotFlagged):
		httpx.WriteError(ctx, w, httpx.NewError("line_not_flagged", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("inventory_error", "failed to process inventory request", http.StatusInternalServerError))
	}
}
