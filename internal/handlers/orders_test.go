package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/brp-commerce/api/internal/domain"
	"github.com/brp-commerce/api/internal/platform/auth"
	"github.com/brp-commerce/api/internal/services"
)

type stubOrderService struct {
	createFn     func(context.Context, services.CreateOrderFromCartCommand) (services.Order, error)
	getFn        func(context.Context, services.GetOrderCommand) (services.Order, error)
	listFn       func(context.Context, services.OrderListFilter) (domain.CursorPage[services.Order], error)
	payFn        func(context.Context, services.RequestPaymentCommand) (services.PaymentDetail, error)
	transitionFn func(context.Context, services.OrderStatusTransitionCommand) (services.Order, error)
	cancelFn     func(context.Context, services.CancelOrderCommand) (services.Order, error)
	costFn       func(context.Context, services.ManualShippingCostCommand) (services.Order, error)
	receiptFn    func(context.Context, services.ShippingReceiptCommand) (services.Order, error)
}

func (s *stubOrderService) CreateFromCart(ctx context.Context, cmd services.CreateOrderFromCartCommand) (services.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Order{}, errors.New("unexpected CreateFromCart call")
}

func (s *stubOrderService) GetOrder(ctx context.Context, cmd services.GetOrderCommand) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, cmd)
	}
	return services.Order{}, errors.New("unexpected GetOrder call")
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[services.Order]{}, errors.New("unexpected ListOrders call")
}

func (s *stubOrderService) RequestPayment(ctx context.Context, cmd services.RequestPaymentCommand) (services.PaymentDetail, error) {
	if s.payFn != nil {
		return s.payFn(ctx, cmd)
	}
	return services.PaymentDetail{}, errors.New("unexpected RequestPayment call")
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return services.Order{}, errors.New("unexpected TransitionStatus call")
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return services.Order{}, errors.New("unexpected CancelOrder call")
}

func (s *stubOrderService) AddManualShippingCost(ctx context.Context, cmd services.ManualShippingCostCommand) (services.Order, error) {
	if s.costFn != nil {
		return s.costFn(ctx, cmd)
	}
	return services.Order{}, errors.New("unexpected AddManualShippingCost call")
}

func (s *stubOrderService) UpdateShippingReceipt(ctx context.Context, cmd services.ShippingReceiptCommand) (services.Order, error) {
	if s.receiptFn != nil {
		return s.receiptFn(ctx, cmd)
	}
	return services.Order{}, errors.New("unexpected UpdateShippingReceipt call")
}

var _ services.OrderService = (*stubOrderService)(nil)

type stubInventoryService struct {
	getStockFn   func(context.Context, string) (services.VariantStock, error)
	restockFn    func(context.Context, services.RestockCommand) (services.RestockResult, error)
	resolveFn    func(context.Context, services.ResolveStockLineCommand) (services.StockResolution, error)
	listIssuesFn func(context.Context, services.StockIssueFilter) (domain.CursorPage[services.OrderLine], error)
}

func (s *stubInventoryService) GetStock(ctx context.Context, variantID string) (services.VariantStock, error) {
	if s.getStockFn != nil {
		return s.getStockFn(ctx, variantID)
	}
	return services.VariantStock{}, errors.New("unexpected GetStock call")
}

func (s *stubInventoryService) Restock(ctx context.Context, cmd services.RestockCommand) (services.RestockResult, error) {
	if s.restockFn != nil {
		return s.restockFn(ctx, cmd)
	}
	return services.RestockResult{}, errors.New("unexpected Restock call")
}

func (s *stubInventoryService) ResolveLine(ctx context.Context, cmd services.ResolveStockLineCommand) (services.StockResolution, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, cmd)
	}
	return services.StockResolution{}, errors.New("unexpected ResolveLine call")
}

func (s *stubInventoryService) ListIssueLines(ctx context.Context, filter services.StockIssueFilter) (domain.CursorPage[services.OrderLine], error) {
	if s.listIssuesFn != nil {
		return s.listIssuesFn(ctx, filter)
	}
	return domain.CursorPage[services.OrderLine]{}, errors.New("unexpected ListIssueLines call")
}

var _ services.InventoryService = (*stubInventoryService)(nil)

type envelopeBody struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, target any) envelopeBody {
	t.Helper()
	var env envelopeBody
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse envelope: %v", err)
	}
	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			t.Fatalf("failed to parse envelope data: %v", err)
		}
	}
	return env
}

func newOrdersRouter(orders services.OrderService, inventory services.InventoryService) chi.Router {
	handler := NewOrderHandlers(nil, orders, inventory)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)
	return router
}

func withUser(req *http.Request, uid string, roles ...string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Roles: roles}))
}

func TestOrderHandlersCreateOrder(t *testing.T) {
	var captured services.CreateOrderFromCartCommand
	service := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderFromCartCommand) (services.Order, error) {
			captured = cmd
			return services.Order{
				ID:          "ord_1",
				OrderNumber: "BRP-2026-000042",
				UserID:      cmd.UserID,
				Method:      cmd.Method,
				Status:      domain.StatusUnpaid,
				Subtotal:    150000,
				Tax:         16500,
				TaxRate:     "11",
				Total:       166500,
				CreatedAt:   time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	body := `{
		"method": "delivery",
		"customer_name": "Ayu",
		"customer_email": "ayu@example.com",
		"destination": {"city": "114", "postal_code": "80227", "address": "Jl. Melati 5"},
		"courier": {"courier_code": "jne", "service": "REG", "cost": 18000}
	}`
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
	req = withUser(req, "user-1")

	rr := httptest.NewRecorder()
	newOrdersRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	if captured.UserID != "user-1" {
		t.Fatalf("expected user-1, got %s", captured.UserID)
	}
	if captured.Method != domain.MethodDelivery {
		t.Fatalf("expected method DELIVERY, got %s", captured.Method)
	}
	if captured.Courier == nil || captured.Courier.CourierCode != "jne" || captured.Courier.Cost != 18000 {
		t.Fatalf("unexpected courier selection: %#v", captured.Courier)
	}
	if captured.Destination.City != "114" || captured.Destination.Address != "Jl. Melati 5" {
		t.Fatalf("unexpected destination: %#v", captured.Destination)
	}

	var payload orderPayload
	env := decodeEnvelope(t, rr, &payload)
	if env.Code != "ok" {
		t.Fatalf("expected code ok, got %s", env.Code)
	}
	if payload.ID != "ord_1" || payload.OrderNumber != "BRP-2026-000042" {
		t.Fatalf("unexpected order payload: %#v", payload)
	}
	if payload.Total != 166500 {
		t.Fatalf("expected total 166500, got %d", payload.Total)
	}
}

func TestOrderHandlersCreateOrderRequiresBody(t *testing.T) {
	router := newOrdersRouter(&stubOrderService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req = withUser(req, "user-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersCreateOrderUnauthenticated(t *testing.T) {
	router := newOrdersRouter(&stubOrderService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{"method":"MANUAL"}`))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestOrderHandlersListOrdersScopesToOwnUser(t *testing.T) {
	var captured services.OrderListFilter
	service := &stubOrderService{
		listFn: func(_ context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
			captured = filter
			return domain.CursorPage[services.Order]{
				Items: []services.Order{{
					ID:          "ord_1",
					OrderNumber: "BRP-2026-000001",
					Method:      domain.MethodDelivery,
					Status:      domain.StatusPaid,
					Total:       166500,
					CreatedAt:   time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC),
				}},
				NextPageToken: "tok-next",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/orders?status=paid&page_size=10&page_token=tok123&user_id=someone-else", nil)
	req = withUser(req, "user-1")

	rr := httptest.NewRecorder()
	newOrdersRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if captured.UserID != "user-1" {
		t.Fatalf("expected listing scoped to user-1, got %q", captured.UserID)
	}
	if len(captured.Status) != 1 || captured.Status[0] != domain.StatusPaid {
		t.Fatalf("unexpected status filter: %#v", captured.Status)
	}
	if captured.Pagination.PageSize != 10 || captured.Pagination.PageToken != "tok123" {
		t.Fatalf("unexpected pagination: %#v", captured.Pagination)
	}

	var payload orderListPayload
	decodeEnvelope(t, rr, &payload)
	if len(payload.Items) != 1 || payload.Items[0].ID != "ord_1" {
		t.Fatalf("unexpected list payload: %#v", payload)
	}
	if payload.NextPageToken != "tok-next" {
		t.Fatalf("expected next page token tok-next, got %s", payload.NextPageToken)
	}
}

func TestOrderHandlersListOrdersAdminFilters(t *testing.T) {
	var captured services.OrderListFilter
	service := &stubOrderService{
		listFn: func(_ context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
			captured = filter
			return domain.CursorPage[services.Order]{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/orders?user_id=user-7&method=manual&has_stock_issue=true&q=BRP-2026", nil)
	req = withUser(req, "admin-1", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	newOrdersRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.UserID != "user-7" {
		t.Fatalf("expected user filter user-7, got %q", captured.UserID)
	}
	if captured.Method == nil || *captured.Method != domain.MethodManual {
		t.Fatalf("unexpected method filter: %#v", captured.Method)
	}
	if captured.HasStockIssue == nil || !*captured.HasStockIssue {
		t.Fatalf("expected stock issue filter set")
	}
	if captured.Search != "BRP-2026" {
		t.Fatalf("expected search BRP-2026, got %q", captured.Search)
	}
}

func TestOrderHandlersListOrdersRejectsUnknownStatus(t *testing.T) {
	router := newOrdersRouter(&stubOrderService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/orders?status=teleported", nil)
	req = withUser(req, "user-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderMasksForbidden(t *testing.T) {
	service := &stubOrderService{
		getFn: func(context.Context, services.GetOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderForbidden
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_1", nil)
	req = withUser(req, "user-2")

	rr := httptest.NewRecorder()
	newOrdersRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["code"] != "order_not_found" {
		t.Fatalf("expected code order_not_found, got %v", body["code"])
	}
}

func TestOrderHandlersRequestPaymentWithoutBody(t *testing.T) {
	var captured services.RequestPaymentCommand
	service := &stubOrderService{
		payFn: func(_ context.Context, cmd services.RequestPaymentCommand) (services.PaymentDetail, error) {
			captured = cmd
			return services.PaymentDetail{Token: "snap-token", RedirectURL: "https://pay.example/snap-token"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:pay", nil)
	req = withUser(req, "user-1")

	rr := httptest.NewRecorder()
	newOrdersRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" || captured.UserID != "user-1" {
		t.Fatalf("unexpected command: %#v", captured)
	}

	var payload paymentDetailPayload
	decodeEnvelope(t, rr, &payload)
	if payload.Token != "snap-token" {
		t.Fatalf("expected snap-token, got %s", payload.Token)
	}
	if payload.RedirectURL != "https://pay.example/snap-token" {
		t.Fatalf("unexpected redirect url %s", payload.RedirectURL)
	}
}

func TestOrderHandlersCancelOrderPassesReason(t *testing.T) {
	var captured services.CancelOrderCommand
	service := &stubOrderService{
		cancelFn: func(_ context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
			captured = cmd
			reason := cmd.Reason
			return services.Order{ID: cmd.OrderID, Status: domain.StatusCancelled, CancelReason: &reason}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:cancel", bytes.NewBufferString(`{"reason":"changed my mind"}`))
	req = withUser(req, "user-1")

	rr := httptest.NewRecorder()
	newOrdersRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Reason != "changed my mind" {
		t.Fatalf("expected reason to pass through, got %q", captured.Reason)
	}
	if captured.IsAdmin {
		t.Fatalf("expected non-admin cancellation")
	}

	var payload orderPayload
	decodeEnvelope(t, rr, &payload)
	if payload.Status != string(domain.StatusCancelled) {
		t.Fatalf("expected CANCELLED, got %s", payload.Status)
	}
	if payload.CancelReason != "changed my mind" {
		t.Fatalf("expected cancel reason in payload, got %q", payload.CancelReason)
	}
}

func TestOrderHandlersTransitionStatusRequiresAdmin(t *testing.T) {
	router := newOrdersRouter(&stubOrderService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:status", bytes.NewBufferString(`{"status":"SHIPPED"}`))
	req = withUser(req, "user-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestOrderHandlersTransitionStatus(t *testing.T) {
	var captured services.OrderStatusTransitionCommand
	tracking := "JNE123456"
	service := &stubOrderService{
		transitionFn: func(_ context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
			captured = cmd
			return services.Order{ID: cmd.OrderID, Status: cmd.Target, TrackingNumber: &tracking}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:status", bytes.NewBufferString(`{"status":"shipped","tracking_number":"JNE123456"}`))
	req = withUser(req, "admin-1", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	newOrdersRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Target != domain.StatusShipped {
		t.Fatalf("expected target SHIPPED, got %s", captured.Target)
	}
	if captured.TrackingNumber != "JNE123456" {
		t.Fatalf("expected tracking number, got %q", captured.TrackingNumber)
	}
	if captured.ActorID != "admin-1" {
		t.Fatalf("expected actor admin-1, got %s", captured.ActorID)
	}
}

func TestOrderHandlersTransitionStatusMapsInvalidState(t *testing.T) {
	service := &stubOrderService{
		transitionFn: func(context.Context, services.OrderStatusTransitionCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidState
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1:status", bytes.NewBufferString(`{"status":"DELIVERED"}`))
	req = withUser(req, "admin-1", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	newOrdersRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestOrderHandlersShippingCostRequiresValue(t *testing.T) {
	router := newOrdersRouter(&stubOrderService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1/shipping-cost", bytes.NewBufferString(`{}`))
	req = withUser(req, "admin-1", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersShippingCost(t *testing.T) {
	var captured services.ManualShippingCostCommand
	service := &stubOrderService{
		costFn: func(_ context.Context, cmd services.ManualShippingCostCommand) (services.Order, error) {
			captured = cmd
			cost := cmd.Cost
			return services.Order{ID: cmd.OrderID, ManualShippingCost: &cost}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1/shipping-cost", bytes.NewBufferString(`{"cost":25000}`))
	req = withUser(req, "admin-1", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	newOrdersRouter(service, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Cost != 25000 {
		t.Fatalf("expected cost 25000, got %d", captured.Cost)
	}
}

func TestOrderHandlersResolveStockLine(t *testing.T) {
	var captured services.ResolveStockLineCommand
	inventory := &stubInventoryService{
		resolveFn: func(_ context.Context, cmd services.ResolveStockLineCommand) (services.StockResolution, error) {
			captured = cmd
			return services.StockResolution{LineID: cmd.LineID, Cleared: true}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1/lines/line_9:resolve", bytes.NewBufferString(`{"quantity":3}`))
	req = withUser(req, "admin-1", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	newOrdersRouter(&stubOrderService{}, inventory).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" || captured.LineID != "line_9" || captured.Quantity != 3 {
		t.Fatalf("unexpected command: %#v", captured)
	}

	var payload stockResolutionPayload
	decodeEnvelope(t, rr, &payload)
	if !payload.Cleared || payload.LineID != "line_9" {
		t.Fatalf("unexpected resolution payload: %#v", payload)
	}
}

func TestOrderHandlersResolveStockLineNotFlagged(t *testing.T) {
	inventory := &stubInventoryService{
		resolveFn: func(context.Context, services.ResolveStockLineCommand) (services.StockResolution, error) {
			return services.StockResolution{}, services.ErrInventoryLineNotFlagged
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/ord_1/lines/line_9:resolve", bytes.NewBufferString(`{"quantity":1}`))
	req = withUser(req, "admin-1", auth.RoleAdmin)

	rr := httptest.NewRecorder()
	newOrdersRouter(&stubOrderService{}, inventory).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}
