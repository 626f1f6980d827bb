package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/brp-commerce/api/internal/domain"
	pfirestore "github.com/brp-commerce/api/internal/platform/firestore"
	"github.com/brp-commerce/api/internal/repositories"
)

// StockRepository manages per-variant stock counts and sweeps the stock-issue
// ledger kept on order lines.
type StockRepository struct {
	provider *pfirestore.Provider
	stocks   *pfirestore.BaseRepository[variantStockDocument]
}

// NewStockRepository constructs a Firestore-backed stock repository.
func NewStockRepository(provider *pfirestore.Provider) (*StockRepository, error) {
	if provider == nil {
		return nil, errors.New("stock repository requires firestore provider")
	}
	stocks := pfirestore.NewBaseRepository[variantStockDocument](provider, variantStocksCollection, nil, nil)
	return &StockRepository{provider: provider, stocks: stocks}, nil
}

// Get loads the stock record for a single variant.
func (r *StockRepository) Get(ctx context.Context, variantID string) (domain.VariantStock, error) {
	if r == nil || r.stocks == nil {
		return domain.VariantStock{}, errors.New("stock repository not initialised")
	}
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return domain.VariantStock{}, errors.New("stock get: variant id is required")
	}

	doc, err := r.stocks.Get(ctx, variantID)
	if err != nil {
		if repoErr, ok := err.(*pfirestore.Error); ok && repoErr.IsNotFound() {
			return domain.VariantStock{}, repositories.NewStockError(repositories.StockErrorVariantNotFound, fmt.Sprintf("variant %s has no stock record", variantID), err)
		}
		return domain.VariantStock{}, wrapStockError("stocks.get", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// GetMany loads stock records for the requested variants. Missing variants are
// simply absent from the result map.
func (r *StockRepository) GetMany(ctx context.Context, variantIDs []string) (map[string]domain.VariantStock, error) {
	if r == nil || r.stocks == nil {
		return nil, errors.New("stock repository not initialised")
	}

	out := make(map[string]domain.VariantStock, len(variantIDs))
	for _, vid := range variantIDs {
		vid = strings.TrimSpace(vid)
		if vid == "" {
			continue
		}
		if _, seen := out[vid]; seen {
			continue
		}
		doc, err := r.stocks.Get(ctx, vid)
		if err != nil {
			if repoErr, ok := err.(*pfirestore.Error); ok && repoErr.IsNotFound() {
				continue
			}
			return nil, wrapStockError("stocks.getMany", err)
		}
		out[vid] = doc.Data.toDomain(doc.ID)
	}
	return out, nil
}

// Restock adjusts the variant's count by delta, flooring at zero. A positive
// delta sweeps outstanding stock-issue lines oldest first: a line clears only
// when the stock left after earlier lines covers its full quantity, and the
// sweep stops at the first line it cannot cover.
func (r *StockRepository) Restock(ctx context.Context, req repositories.StockRestockRequest) (repositories.StockRestockResult, error) {
	if r == nil || r.provider == nil {
		return repositories.StockRestockResult{}, errors.New("stock repository not initialised")
	}
	variantID := strings.TrimSpace(req.VariantID)
	if variantID == "" {
		return repositories.StockRestockResult{}, errors.New("stock restock: variant id is required")
	}
	if req.Delta == 0 {
		return repositories.StockRestockResult{}, errors.New("stock restock: delta must not be zero")
	}

	now := req.Now.UTC()
	var result repositories.StockRestockResult

	client, err := r.provider.Client(ctx)
	if err != nil {
		return repositories.StockRestockResult{}, wrapStockError("stocks.restock", err)
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		stockRef := client.Collection(variantStocksCollection).Doc(variantID)
		snap, err := tx.Get(stockRef)
		var sd variantStockDocument
		switch {
		case err == nil:
			if err := snap.DataTo(&sd); err != nil {
				return fmt.Errorf("decode variant stock %s: %w", variantID, err)
			}
		case status.Code(err) == codes.NotFound:
			if req.Delta < 0 {
				return repositories.NewStockError(repositories.StockErrorVariantNotFound, fmt.Sprintf("variant %s has no stock record", variantID), err)
			}
			sd = variantStockDocument{VariantID: variantID}
		default:
			return err
		}

		newStock := sd.Stock + req.Delta
		if newStock < 0 {
			newStock = 0
		}

		var cleared []domain.OrderLine
		var clearedRefs []*firestore.DocumentRef
		orderDecrements := make(map[string]int)
		var orderRefs []*firestore.DocumentRef
		orderRefIndex := make(map[string]int)

		if req.Delta > 0 {
			iter := tx.Documents(client.CollectionGroup(orderLinesCollection).
				Where("variantId", "==", variantID).
				Where("stockIssue", "==", true).
				OrderBy("createdAt", firestore.Asc))
			defer iter.Stop()

			remaining := newStock
			for {
				snap, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					break
				}
				if err != nil {
					return err
				}
				var line orderLineDocument
				if err := snap.DataTo(&line); err != nil {
					return fmt.Errorf("decode order line %s: %w", snap.Ref.ID, err)
				}
				if remaining < line.Quantity {
					// Partial coverage never clears a line; stop so a younger
					// smaller line cannot jump the queue.
					break
				}
				remaining -= line.Quantity
				orderRef := snap.Ref.Parent.Parent
				cleared = append(cleared, line.toDomain(orderRef.ID, snap.Ref.ID))
				clearedRefs = append(clearedRefs, snap.Ref)
				if _, seen := orderRefIndex[orderRef.ID]; !seen {
					orderRefIndex[orderRef.ID] = len(orderRefs)
					orderRefs = append(orderRefs, orderRef)
				}
				orderDecrements[orderRef.ID]++
			}
			newStock = remaining
		}

		for i, ref := range clearedRefs {
			if err := tx.Update(ref, []firestore.Update{
				{Path: "stockIssue", Value: false},
			}); err != nil {
				return err
			}
			cleared[i].StockIssue = false
		}
		for _, orderRef := range orderRefs {
			if err := tx.Update(orderRef, []firestore.Update{
				{Path: "stockIssueCount", Value: firestore.Increment(-orderDecrements[orderRef.ID])},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}

		sd.VariantID = variantID
		sd.Stock = newStock
		sd.UpdatedAt = now
		if err := tx.Set(stockRef, sd); err != nil {
			return err
		}

		result = repositories.StockRestockResult{
			Stock:        sd.toDomain(variantID),
			ClearedLines: cleared,
		}
		return nil
	})
	if err != nil {
		return repositories.StockRestockResult{}, wrapStockError("stocks.restock", err)
	}
	return result, nil
}

// ResolveLine applies operator-supplied stock to one flagged line. The line
// clears only when the supplied quantity covers it in full; any surplus goes
// back to the variant. A short supply changes nothing and reports the gap.
func (r *StockRepository) ResolveLine(ctx context.Context, req repositories.StockResolveLineRequest) (domain.StockResolution, error) {
	if r == nil || r.provider == nil {
		return domain.StockResolution{}, errors.New("stock repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	lineID := strings.TrimSpace(req.LineID)
	if orderID == "" || lineID == "" {
		return domain.StockResolution{}, errors.New("stock resolve: order id and line id are required")
	}
	if req.Quantity <= 0 {
		return domain.StockResolution{}, errors.New("stock resolve: quantity must be > 0")
	}

	now := req.Now.UTC()
	var result domain.StockResolution

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.StockResolution{}, wrapStockError("stocks.resolve", err)
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef := client.Collection(ordersCollection).Doc(orderID)
		lineRef := orderRef.Collection(orderLinesCollection).Doc(lineID)
		snap, err := tx.Get(lineRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewStockError(repositories.StockErrorLineNotFound, fmt.Sprintf("order line %s/%s not found", orderID, lineID), err)
			}
			return err
		}
		var line orderLineDocument
		if err := snap.DataTo(&line); err != nil {
			return fmt.Errorf("decode order line %s: %w", lineID, err)
		}
		if !line.StockIssue {
			return repositories.NewStockError(repositories.StockErrorLineNotFlagged, fmt.Sprintf("order line %s/%s has no stock issue", orderID, lineID), nil)
		}

		if req.Quantity < line.Quantity {
			result = domain.StockResolution{
				LineID:    lineID,
				Cleared:   false,
				Shortfall: line.Quantity - req.Quantity,
			}
			return nil
		}

		surplus := req.Quantity - line.Quantity
		stockRef := client.Collection(variantStocksCollection).Doc(line.VariantID)
		var sd variantStockDocument
		stockSnap, err := tx.Get(stockRef)
		switch {
		case err == nil:
			if err := stockSnap.DataTo(&sd); err != nil {
				return fmt.Errorf("decode variant stock %s: %w", line.VariantID, err)
			}
		case status.Code(err) == codes.NotFound:
			sd = variantStockDocument{VariantID: line.VariantID}
		default:
			return err
		}

		if err := tx.Update(lineRef, []firestore.Update{
			{Path: "stockIssue", Value: false},
		}); err != nil {
			return err
		}
		if err := tx.Update(orderRef, []firestore.Update{
			{Path: "stockIssueCount", Value: firestore.Increment(-1)},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		if surplus > 0 {
			sd.VariantID = line.VariantID
			sd.Stock += surplus
			sd.UpdatedAt = now
			if err := tx.Set(stockRef, sd); err != nil {
				return err
			}
		}

		result = domain.StockResolution{LineID: lineID, Cleared: true}
		return nil
	})
	if err != nil {
		return domain.StockResolution{}, wrapStockError("stocks.resolve", err)
	}
	return result, nil
}

// ListIssueLines returns the outstanding stock-issue lines for a variant in
// oldest-first order.
func (r *StockRepository) ListIssueLines(ctx context.Context, variantID string, pager domain.Pagination) (domain.CursorPage[domain.OrderLine], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.OrderLine]{}, errors.New("stock repository not initialised")
	}
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return domain.CursorPage[domain.OrderLine]{}, errors.New("stock issue lines: variant id is required")
	}

	pageSize := pager.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.OrderLine]{}, wrapStockError("stocks.issueLines", err)
	}

	// Lines created in the same order share a createdAt, so the cursor
	// needs the document ID as a tiebreaker to keep page boundaries exact.
	query := client.CollectionGroup(orderLinesCollection).
		Where("variantId", "==", variantID).
		Where("stockIssue", "==", true).
		OrderBy("createdAt", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(pager.PageToken); token != "" {
		decoded, err := decodeOrderPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.OrderLine]{}, wrapStockError("stocks.issueLines", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var lines []domain.OrderLine
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.OrderLine]{}, wrapStockError("stocks.issueLines", err)
		}
		var line orderLineDocument
		if err := snap.DataTo(&line); err != nil {
			return domain.CursorPage[domain.OrderLine]{}, fmt.Errorf("decode order line %s: %w", snap.Ref.ID, err)
		}
		lines = append(lines, line.toDomain(snap.Ref.Parent.Parent.ID, snap.Ref.ID))
	}

	hasMore := len(lines) > pageSize
	if hasMore {
		lines = lines[:pageSize]
	}
	var nextToken string
	if hasMore && len(lines) > 0 {
		// Collection-group cursors compare on the full document path, so
		// the token carries orders/{id}/lines/{id} rather than a bare ID.
		last := lines[len(lines)-1]
		cursor := ordersCollection + "/" + last.OrderID + "/" + orderLinesCollection + "/" + last.ID
		encoded, err := encodeOrderPageToken(orderPageToken{ID: cursor, CreatedAt: last.CreatedAt})
		if err != nil {
			return domain.CursorPage[domain.OrderLine]{}, wrapStockError("stocks.issueLines", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.OrderLine]{
		Items:         lines,
		NextPageToken: nextToken,
	}, nil
}

func wrapStockError(op string, err error) error {
	if err == nil {
		return nil
	}
	var stockErr *repositories.StockError
	if errors.As(err, &stockErr) {
		if stockErr.Op == "" {
			stockErr.Op = op
		}
		return stockErr
	}
	return pfirestore.WrapError(op, err)
}

var _ repositories.StockRepository = (*StockRepository)(nil)
