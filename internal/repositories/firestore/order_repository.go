package firestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/brp-commerce/api/internal/domain"
	pfirestore "github.com/brp-commerce/api/internal/platform/firestore"
	"github.com/brp-commerce/api/internal/repositories"
)

const (
	ordersCollection        = "orders"
	orderLinesCollection    = "lines"
	variantStocksCollection = "variantStocks"
	cartsCollection         = "carts"
)

// OrderRepository persists orders with their lines and keeps status and stock
// mutations inside single Firestore transactions.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
	stocks   *pfirestore.BaseRepository[variantStockDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	orders := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	stocks := pfirestore.NewBaseRepository[variantStockDocument](provider, variantStocksCollection, nil, nil)
	return &OrderRepository{provider: provider, orders: orders, stocks: stocks}, nil
}

// Create persists the order header with its lines and empties the source cart
// in one transaction.
func (r *OrderRepository) Create(ctx context.Context, req repositories.OrderCreateRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(req.Order.ID) == "" {
		return domain.Order{}, errors.New("order create: order id is required")
	}
	if len(req.Lines) == 0 {
		return domain.Order{}, errors.New("order create: at least one line is required")
	}

	now := req.Now.UTC()
	order := req.Order
	order.Status = domain.StatusUnpaid
	order.CreatedAt = now
	order.UpdatedAt = now

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.create", err)
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef := client.Collection(ordersCollection).Doc(order.ID)
		doc := newOrderDocument(order)
		if err := tx.Create(orderRef, doc); err != nil {
			if status.Code(err) == codes.AlreadyExists {
				return repositories.NewOrderError(repositories.OrderErrorConflict, fmt.Sprintf("order %s already exists", order.ID), err)
			}
			return err
		}
		for _, line := range req.Lines {
			if strings.TrimSpace(line.ID) == "" {
				return errors.New("order create: line id is required")
			}
			lineRef := orderRef.Collection(orderLinesCollection).Doc(line.ID)
			lineDoc := newOrderLineDocument(order.ID, line)
			lineDoc.CreatedAt = now
			if err := tx.Create(lineRef, lineDoc); err != nil {
				return err
			}
		}
		if uid := strings.TrimSpace(req.ClearCartUser); uid != "" {
			cartRef := client.Collection(cartsCollection).Doc(uid)
			if err := tx.Set(cartRef, map[string]any{
				"items":     []any{},
				"updatedAt": now,
			}, firestore.MergeAll); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.create", err)
	}

	order.Lines = req.Lines
	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		order.Lines[i].CreatedAt = now
	}
	return order, nil
}

// MarkPaid transitions an unpaid order to PAID and commits inventory per line.
// Variants with enough stock are decremented; the rest are flagged as stock
// issues without blocking the transition. Calling it again for a settled order
// is a no-op reported through AlreadyPaid.
func (r *OrderRepository) MarkPaid(ctx context.Context, req repositories.OrderMarkPaidRequest) (repositories.OrderMarkPaidResult, error) {
	if r == nil || r.provider == nil {
		return repositories.OrderMarkPaidResult{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return repositories.OrderMarkPaidResult{}, errors.New("order mark paid: order id is required")
	}

	now := req.Now.UTC()
	var result repositories.OrderMarkPaidResult

	client, err := r.provider.Client(ctx)
	if err != nil {
		return repositories.OrderMarkPaidResult{}, wrapOrderError("orders.markPaid", err)
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef := client.Collection(ordersCollection).Doc(orderID)
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		current := domain.OrderStatus(doc.Status)
		if current == domain.StatusCancelled {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s is cancelled", orderID), nil)
		}
		if domain.AtOrPastPaid(domain.ShippingMethod(doc.Method), current) {
			result = repositories.OrderMarkPaidResult{Order: doc.toDomain(orderID), AlreadyPaid: true}
			return nil
		}
		if current != domain.StatusUnpaid {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s cannot be paid from %s", orderID, current), nil)
		}

		lines, lineRefs, err := readOrderLines(tx, orderRef)
		if err != nil {
			return err
		}

		// All reads must precede writes, so stock snapshots come first.
		stockRefs := make(map[string]*firestore.DocumentRef)
		stockDocs := make(map[string]variantStockDocument)
		for _, line := range lines {
			vid := line.VariantID
			if _, seen := stockDocs[vid]; seen {
				continue
			}
			ref := client.Collection(variantStocksCollection).Doc(vid)
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					stockRefs[vid] = ref
					stockDocs[vid] = variantStockDocument{VariantID: vid}
					continue
				}
				return err
			}
			var sd variantStockDocument
			if err := snap.DataTo(&sd); err != nil {
				return fmt.Errorf("decode variant stock %s: %w", vid, err)
			}
			stockRefs[vid] = ref
			stockDocs[vid] = sd
		}

		var flagged []domain.OrderLine
		issueCount := 0
		for i, line := range lines {
			sd := stockDocs[line.VariantID]
			if sd.Stock >= line.Quantity {
				sd.Stock -= line.Quantity
				sd.UpdatedAt = now
				stockDocs[line.VariantID] = sd
				continue
			}
			issueCount++
			lines[i].StockIssue = true
			flagged = append(flagged, lines[i].toDomain(orderID, lineRefs[i].ID))
			if err := tx.Update(lineRefs[i], []firestore.Update{
				{Path: "stockIssue", Value: true},
			}); err != nil {
				return err
			}
		}
		for vid, sd := range stockDocs {
			if err := tx.Set(stockRefs[vid], sd); err != nil {
				return err
			}
		}

		doc.Status = string(domain.StatusPaid)
		doc.StockIssueCount = issueCount
		doc.PaidAt = &now
		doc.UpdatedAt = now
		if pt := strings.TrimSpace(req.PaymentType); pt != "" {
			if doc.Payment == nil {
				doc.Payment = &orderPaymentDocument{}
			}
			doc.Payment.PaymentType = pt
		}
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}

		updated := doc.toDomain(orderID)
		for i := range lines {
			updated.Lines = append(updated.Lines, lines[i].toDomain(orderID, lineRefs[i].ID))
		}
		result = repositories.OrderMarkPaidResult{Order: updated, FlaggedLines: flagged}
		return nil
	})
	if err != nil {
		return repositories.OrderMarkPaidResult{}, wrapOrderError("orders.markPaid", err)
	}
	return result, nil
}

// Cancel moves the order to CANCELLED. When the order was PAID the stock of
// every line without a stock issue is returned to its variant in the same
// transaction. Flagged lines never decremented anything, so they restore
// nothing.
func (r *OrderRepository) Cancel(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order cancel: order id is required")
	}

	now := req.Now.UTC()
	var result domain.Order

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.cancel", err)
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef := client.Collection(ordersCollection).Doc(orderID)
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		method := domain.ShippingMethod(doc.Method)
		current := domain.OrderStatus(doc.Status)
		if !domain.IsLegalTransition(method, current, domain.StatusCancelled) {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s cannot be cancelled from %s", orderID, current), nil)
		}

		lines, lineRefs, err := readOrderLines(tx, orderRef)
		if err != nil {
			return err
		}

		if current == domain.StatusPaid {
			restore := make(map[string]int)
			for _, line := range lines {
				if line.StockIssue {
					continue
				}
				restore[line.VariantID] += line.Quantity
			}
			stockRefs := make(map[string]*firestore.DocumentRef)
			stockDocs := make(map[string]variantStockDocument)
			for vid := range restore {
				ref := client.Collection(variantStocksCollection).Doc(vid)
				snap, err := tx.Get(ref)
				if err != nil {
					if status.Code(err) == codes.NotFound {
						stockRefs[vid] = ref
						stockDocs[vid] = variantStockDocument{VariantID: vid}
						continue
					}
					return err
				}
				var sd variantStockDocument
				if err := snap.DataTo(&sd); err != nil {
					return fmt.Errorf("decode variant stock %s: %w", vid, err)
				}
				stockRefs[vid] = ref
				stockDocs[vid] = sd
			}
			for vid, qty := range restore {
				sd := stockDocs[vid]
				sd.Stock += qty
				sd.UpdatedAt = now
				if err := tx.Set(stockRefs[vid], sd); err != nil {
					return err
				}
			}
		}

		// Flagged lines are dead once the order is terminal. Clear them so
		// the restock sweep only ever feeds stock to live PAID orders.
		for i := range lines {
			if !lines[i].StockIssue {
				continue
			}
			if err := tx.Update(lineRefs[i], []firestore.Update{
				{Path: "stockIssue", Value: false},
			}); err != nil {
				return err
			}
			lines[i].StockIssue = false
		}

		doc.Status = string(domain.StatusCancelled)
		doc.StockIssueCount = 0
		doc.CanceledAt = &now
		doc.UpdatedAt = now
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			doc.CancelReason = &reason
		}
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}

		result = doc.toDomain(orderID)
		for i := range lines {
			result.Lines = append(result.Lines, lines[i].toDomain(orderID, lineRefs[i].ID))
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.cancel", err)
	}
	return result, nil
}

// Transition applies a single forward step past PAID. PAID itself is only
// reachable through MarkPaid and CANCELLED through Cancel.
func (r *OrderRepository) Transition(ctx context.Context, req repositories.OrderTransitionRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order transition: order id is required")
	}
	if req.Target == domain.StatusPaid || req.Target == domain.StatusCancelled || req.Target == domain.StatusUnpaid {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("status %s is not reachable through a direct transition", req.Target), nil)
	}

	now := req.Now.UTC()
	var result domain.Order

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.transition", err)
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef := client.Collection(ordersCollection).Doc(orderID)
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		method := domain.ShippingMethod(doc.Method)
		current := domain.OrderStatus(doc.Status)
		if !domain.IsLegalTransition(method, current, req.Target) {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s cannot move from %s to %s", orderID, current, req.Target), nil)
		}
		if doc.StockIssueCount > 0 {
			return repositories.NewOrderError(repositories.OrderErrorStockIssueOpen, fmt.Sprintf("order %s has %d unresolved stock issue lines", orderID, doc.StockIssueCount), nil)
		}

		switch req.Target {
		case domain.StatusShipped:
			tracking := strings.TrimSpace(req.TrackingNumber)
			if tracking == "" {
				return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s requires a tracking number to ship", orderID), nil)
			}
			doc.TrackingNumber = &tracking
			doc.ShippedAt = &now
		case domain.StatusDelivered:
			doc.DeliveredAt = &now
		case domain.StatusProcessing:
			doc.ProcessingAt = &now
		case domain.StatusComplete:
			doc.CompletedAt = &now
		}

		doc.Status = string(req.Target)
		doc.UpdatedAt = now
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}
		result = doc.toDomain(orderID)
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.transition", err)
	}
	return result, nil
}

// SavePaymentDetail stores the checkout token unless one already exists. The
// stored detail always wins so retried payment requests stay idempotent.
func (r *OrderRepository) SavePaymentDetail(ctx context.Context, orderID string, detail domain.PaymentDetail, now time.Time) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order save payment: order id is required")
	}

	ts := now.UTC()
	var result domain.Order

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.savePayment", err)
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef := client.Collection(ordersCollection).Doc(orderID)
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		if doc.Payment != nil && strings.TrimSpace(doc.Payment.Token) != "" {
			result = doc.toDomain(orderID)
			return nil
		}
		if domain.OrderStatus(doc.Status) != domain.StatusUnpaid {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s is not awaiting payment", orderID), nil)
		}
		doc.Payment = &orderPaymentDocument{
			Token:       strings.TrimSpace(detail.Token),
			RedirectURL: strings.TrimSpace(detail.RedirectURL),
		}
		doc.UpdatedAt = ts
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}
		result = doc.toDomain(orderID)
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.savePayment", err)
	}
	return result, nil
}

// SetManualShippingCost records the operator-quoted cost on a paid manual
// order and folds it into the stored total.
func (r *OrderRepository) SetManualShippingCost(ctx context.Context, orderID string, cost int64, now time.Time) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order shipping cost: order id is required")
	}
	if cost < 0 {
		return domain.Order{}, errors.New("order shipping cost: cost must be >= 0")
	}

	ts := now.UTC()
	var result domain.Order

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.manualShipping", err)
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef := client.Collection(ordersCollection).Doc(orderID)
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		method := domain.ShippingMethod(doc.Method)
		current := domain.OrderStatus(doc.Status)
		if method != domain.MethodManual {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s does not use manual fulfillment", orderID), nil)
		}
		if current == domain.StatusCancelled || !domain.AtOrPastPaid(method, current) {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s cannot take a shipping cost at %s", orderID, current), nil)
		}
		doc.ManualShippingCost = &cost
		doc.Total = doc.Subtotal + doc.Tax + doc.ShippingCost + cost
		doc.UpdatedAt = ts
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}
		result = doc.toDomain(orderID)
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.manualShipping", err)
	}
	return result, nil
}

// SetTrackingNumber replaces the tracking number of a shipped delivery order.
func (r *OrderRepository) SetTrackingNumber(ctx context.Context, orderID string, tracking string, now time.Time) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	tracking = strings.TrimSpace(tracking)
	if orderID == "" {
		return domain.Order{}, errors.New("order tracking: order id is required")
	}
	if tracking == "" {
		return domain.Order{}, errors.New("order tracking: tracking number is required")
	}

	ts := now.UTC()
	var result domain.Order

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.tracking", err)
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef := client.Collection(ordersCollection).Doc(orderID)
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		doc, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		if domain.ShippingMethod(doc.Method) != domain.MethodDelivery {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s is not a delivery order", orderID), nil)
		}
		if domain.OrderStatus(doc.Status) != domain.StatusShipped {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s is not shipped", orderID), nil)
		}
		doc.TrackingNumber = &tracking
		doc.UpdatedAt = ts
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}
		result = doc.toDomain(orderID)
		return nil
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.tracking", err)
	}
	return result, nil
}

// SetRefundFailed flags the order after the gateway rejected a refund.
func (r *OrderRepository) SetRefundFailed(ctx context.Context, orderID string, now time.Time) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return errors.New("order refund flag: order id is required")
	}
	_, err := r.orders.Update(ctx, orderID, []firestore.Update{
		{Path: "isRefundFailed", Value: true},
		{Path: "updatedAt", Value: now.UTC()},
	})
	if err != nil {
		return wrapOrderError("orders.refundFlag", err)
	}
	return nil
}

// FindByID loads the order header with its lines.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order find: order id is required")
	}

	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		if repoErr, ok := err.(*pfirestore.Error); ok && repoErr.IsNotFound() {
			return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
		}
		return domain.Order{}, wrapOrderError("orders.find", err)
	}
	order := doc.Data.toDomain(doc.ID)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.find", err)
	}
	iter := client.Collection(ordersCollection).Doc(orderID).
		Collection(orderLinesCollection).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.Order{}, wrapOrderError("orders.find", err)
		}
		var line orderLineDocument
		if err := snap.DataTo(&line); err != nil {
			return domain.Order{}, fmt.Errorf("decode order line %s: %w", snap.Ref.ID, err)
		}
		order.Lines = append(order.Lines, line.toDomain(orderID, snap.Ref.ID))
	}
	return order, nil
}

// FindLine loads a single order line.
func (r *OrderRepository) FindLine(ctx context.Context, orderID string, lineID string) (domain.OrderLine, error) {
	if r == nil || r.provider == nil {
		return domain.OrderLine{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	lineID = strings.TrimSpace(lineID)
	if orderID == "" || lineID == "" {
		return domain.OrderLine{}, errors.New("order find line: order id and line id are required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.OrderLine{}, wrapOrderError("orders.findLine", err)
	}
	snap, err := client.Collection(ordersCollection).Doc(orderID).
		Collection(orderLinesCollection).Doc(lineID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.OrderLine{}, repositories.NewOrderError(repositories.OrderErrorLineNotFound, fmt.Sprintf("order line %s/%s not found", orderID, lineID), err)
		}
		return domain.OrderLine{}, wrapOrderError("orders.findLine", err)
	}
	var line orderLineDocument
	if err := snap.DataTo(&line); err != nil {
		return domain.OrderLine{}, fmt.Errorf("decode order line %s: %w", lineID, err)
	}
	return line.toDomain(orderID, lineID), nil
}

// List returns order headers filtered for user or admin surfaces.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := filter.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
	}

	query := client.Collection(ordersCollection).Query
	if uid := strings.TrimSpace(filter.UserID); uid != "" {
		query = query.Where("userId", "==", uid)
	}
	if filter.Method != nil {
		query = query.Where("method", "==", string(*filter.Method))
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		query = query.Where("status", "in", statuses)
	}
	if filter.HasStockIssue != nil {
		if *filter.HasStockIssue {
			query = query.Where("stockIssueCount", ">", 0)
		} else {
			query = query.Where("stockIssueCount", "==", 0)
		}
	}
	if filter.DateRange.From != nil {
		query = query.Where("createdAt", ">=", filter.DateRange.From.UTC())
	}
	if filter.DateRange.To != nil {
		query = query.Where("createdAt", "<=", filter.DateRange.To.UTC())
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("orderNumber", "==", search)
	}
	query = query.OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		decoded, err := decodeOrderPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(orders) > pageSize
	if hasMore {
		orders = orders[:pageSize]
	}
	var nextToken string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		encoded, err := encodeOrderPageToken(orderPageToken{ID: last.ID, CreatedAt: last.CreatedAt})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Order]{
		Items:         orders,
		NextPageToken: nextToken,
	}, nil
}

// Helper structures ---------------------------------------------------------

type orderDocument struct {
	OrderNumber        string                    `firestore:"orderNumber"`
	UserID             string                    `firestore:"userId"`
	Method             string                    `firestore:"method"`
	Status             string                    `firestore:"status"`
	Subtotal           int64                     `firestore:"subtotal"`
	Tax                int64                     `firestore:"tax"`
	TaxRate            string                    `firestore:"taxRate"`
	ShippingCost       int64                     `firestore:"shippingCost"`
	ManualShippingCost *int64                    `firestore:"manualShippingCost,omitempty"`
	Total              int64                     `firestore:"total"`
	TotalWeightGrams   int                       `firestore:"totalWeightGrams"`
	Destination        *orderDestinationDocument `firestore:"destination,omitempty"`
	Shipping           *orderShippingDocument    `firestore:"shipping,omitempty"`
	TrackingNumber     *string                   `firestore:"trackingNumber,omitempty"`
	Payment            *orderPaymentDocument     `firestore:"payment,omitempty"`
	IsRefundFailed     bool                      `firestore:"isRefundFailed"`
	CancelReason       *string                   `firestore:"cancelReason,omitempty"`
	StockIssueCount    int                       `firestore:"stockIssueCount"`
	CreatedAt          time.Time                 `firestore:"createdAt"`
	UpdatedAt          time.Time                 `firestore:"updatedAt"`
	PaidAt             *time.Time                `firestore:"paidAt,omitempty"`
	ShippedAt          *time.Time                `firestore:"shippedAt,omitempty"`
	DeliveredAt        *time.Time                `firestore:"deliveredAt,omitempty"`
	ProcessingAt       *time.Time                `firestore:"processingAt,omitempty"`
	CompletedAt        *time.Time                `firestore:"completedAt,omitempty"`
	CanceledAt         *time.Time                `firestore:"canceledAt,omitempty"`
}

type orderDestinationDocument struct {
	Province    string `firestore:"province"`
	City        string `firestore:"city"`
	District    string `firestore:"district"`
	Subdistrict string `firestore:"subdistrict"`
	PostalCode  string `firestore:"postalCode"`
	Address     string `firestore:"address"`
}

type orderShippingDocument struct {
	CourierCode string `firestore:"courierCode"`
	Service     string `firestore:"service"`
	Description string `firestore:"description,omitempty"`
	Cost        int64  `firestore:"cost"`
	EtaDays     string `firestore:"etaDays,omitempty"`
}

type orderPaymentDocument struct {
	Token       string `firestore:"token,omitempty"`
	RedirectURL string `firestore:"redirectUrl,omitempty"`
	PaymentType string `firestore:"paymentType,omitempty"`
}

type orderLineDocument struct {
	OrderID     string    `firestore:"orderId"`
	VariantID   string    `firestore:"variantId"`
	Name        string    `firestore:"name"`
	Quantity    int       `firestore:"qty"`
	UnitPrice   int64     `firestore:"unitPrice"`
	WeightGrams int       `firestore:"weightGrams"`
	StockIssue  bool      `firestore:"stockIssue"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

type variantStockDocument struct {
	VariantID  string    `firestore:"variantId"`
	ProductRef string    `firestore:"productRef,omitempty"`
	Stock      int       `firestore:"stock"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func (s variantStockDocument) toDomain(id string) domain.VariantStock {
	return domain.VariantStock{
		VariantID:  id,
		ProductRef: strings.TrimSpace(s.ProductRef),
		Stock:      s.Stock,
		UpdatedAt:  s.UpdatedAt,
	}
}

func newOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:        strings.TrimSpace(order.OrderNumber),
		UserID:             strings.TrimSpace(order.UserID),
		Method:             string(order.Method),
		Status:             string(order.Status),
		Subtotal:           order.Subtotal,
		Tax:                order.Tax,
		TaxRate:            strings.TrimSpace(order.TaxRate),
		ShippingCost:       order.ShippingCost,
		ManualShippingCost: order.ManualShippingCost,
		Total:              order.Total,
		TotalWeightGrams:   order.TotalWeightGrams,
		TrackingNumber:     order.TrackingNumber,
		IsRefundFailed:     order.IsRefundFailed,
		CancelReason:       order.CancelReason,
		StockIssueCount:    order.StockIssueCount,
		CreatedAt:          order.CreatedAt.UTC(),
		UpdatedAt:          order.UpdatedAt.UTC(),
		PaidAt:             order.PaidAt,
		ShippedAt:          order.ShippedAt,
		DeliveredAt:        order.DeliveredAt,
		ProcessingAt:       order.ProcessingAt,
		CompletedAt:        order.CompletedAt,
		CanceledAt:         order.CanceledAt,
	}
	if order.Destination != nil {
		doc.Destination = &orderDestinationDocument{
			Province:    strings.TrimSpace(order.Destination.Province),
			City:        strings.TrimSpace(order.Destination.City),
			District:    strings.TrimSpace(order.Destination.District),
			Subdistrict: strings.TrimSpace(order.Destination.Subdistrict),
			PostalCode:  strings.TrimSpace(order.Destination.PostalCode),
			Address:     strings.TrimSpace(order.Destination.Address),
		}
	}
	if order.Shipping != nil {
		doc.Shipping = &orderShippingDocument{
			CourierCode: strings.TrimSpace(order.Shipping.CourierCode),
			Service:     strings.TrimSpace(order.Shipping.Service),
			Description: strings.TrimSpace(order.Shipping.Description),
			Cost:        order.Shipping.Cost,
			EtaDays:     strings.TrimSpace(order.Shipping.EtaDays),
		}
	}
	if order.Payment != nil {
		doc.Payment = &orderPaymentDocument{
			Token:       strings.TrimSpace(order.Payment.Token),
			RedirectURL: strings.TrimSpace(order.Payment.RedirectURL),
			PaymentType: strings.TrimSpace(order.Payment.PaymentType),
		}
	}
	return doc
}

func (d orderDocument) toDomain(id string) domain.Order {
	order := domain.Order{
		ID:                 id,
		OrderNumber:        strings.TrimSpace(d.OrderNumber),
		UserID:             strings.TrimSpace(d.UserID),
		Method:             domain.ShippingMethod(d.Method),
		Status:             domain.OrderStatus(d.Status),
		Subtotal:           d.Subtotal,
		Tax:                d.Tax,
		TaxRate:            strings.TrimSpace(d.TaxRate),
		ShippingCost:       d.ShippingCost,
		ManualShippingCost: d.ManualShippingCost,
		Total:              d.Total,
		TotalWeightGrams:   d.TotalWeightGrams,
		TrackingNumber:     d.TrackingNumber,
		IsRefundFailed:     d.IsRefundFailed,
		CancelReason:       d.CancelReason,
		StockIssueCount:    d.StockIssueCount,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		PaidAt:             d.PaidAt,
		ShippedAt:          d.ShippedAt,
		DeliveredAt:        d.DeliveredAt,
		ProcessingAt:       d.ProcessingAt,
		CompletedAt:        d.CompletedAt,
		CanceledAt:         d.CanceledAt,
	}
	if d.Destination != nil {
		order.Destination = &domain.Destination{
			Province:    d.Destination.Province,
			City:        d.Destination.City,
			District:    d.Destination.District,
			Subdistrict: d.Destination.Subdistrict,
			PostalCode:  d.Destination.PostalCode,
			Address:     d.Destination.Address,
		}
	}
	if d.Shipping != nil {
		order.Shipping = &domain.ShippingDetail{
			CourierCode: d.Shipping.CourierCode,
			Service:     d.Shipping.Service,
			Description: d.Shipping.Description,
			Cost:        d.Shipping.Cost,
			EtaDays:     d.Shipping.EtaDays,
		}
	}
	if d.Payment != nil {
		order.Payment = &domain.PaymentDetail{
			Token:       d.Payment.Token,
			RedirectURL: d.Payment.RedirectURL,
			PaymentType: d.Payment.PaymentType,
		}
	}
	return order
}

func newOrderLineDocument(orderID string, line domain.OrderLine) orderLineDocument {
	return orderLineDocument{
		OrderID:     strings.TrimSpace(orderID),
		VariantID:   strings.TrimSpace(line.VariantID),
		Name:        strings.TrimSpace(line.Name),
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
		WeightGrams: line.WeightGrams,
		StockIssue:  line.StockIssue,
		CreatedAt:   line.CreatedAt.UTC(),
	}
}

func (d orderLineDocument) toDomain(orderID string, id string) domain.OrderLine {
	return domain.OrderLine{
		ID:          id,
		OrderID:     orderID,
		VariantID:   strings.TrimSpace(d.VariantID),
		Name:        strings.TrimSpace(d.Name),
		Quantity:    d.Quantity,
		UnitPrice:   d.UnitPrice,
		WeightGrams: d.WeightGrams,
		StockIssue:  d.StockIssue,
		CreatedAt:   d.CreatedAt,
	}
}

func decodeOrder(snap *firestore.DocumentSnapshot) (orderDocument, error) {
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return orderDocument{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
	}
	return doc, nil
}

func readOrderLines(tx *firestore.Transaction, orderRef *firestore.DocumentRef) ([]orderLineDocument, []*firestore.DocumentRef, error) {
	iter := tx.Documents(orderRef.Collection(orderLinesCollection).
		OrderBy("createdAt", firestore.Asc))
	defer iter.Stop()

	var lines []orderLineDocument
	var refs []*firestore.DocumentRef
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		var line orderLineDocument
		if err := snap.DataTo(&line); err != nil {
			return nil, nil, fmt.Errorf("decode order line %s: %w", snap.Ref.ID, err)
		}
		lines = append(lines, line)
		refs = append(refs, snap.Ref)
	}
	return lines, refs, nil
}

type orderPageToken struct {
	ID        string
	CreatedAt time.Time
}

func encodeOrderPageToken(token orderPageToken) (string, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	if err := enc.Encode(token); err != nil {
		return "", fmt.Errorf("encode order page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSpace(buf.Bytes())), nil
}

func decodeOrderPageToken(encoded string) (*orderPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode order page token: %w", err)
	}
	var token orderPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode order page token json: %w", err)
	}
	return &token, nil
}

func wrapOrderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ordErr *repositories.OrderError
	if errors.As(err, &ordErr) {
		if ordErr.Op == "" {
			ordErr.Op = op
		}
		return ordErr
	}
	return pfirestore.WrapError(op, err)
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
