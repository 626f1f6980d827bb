package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/brp-commerce/api/internal/domain"
	"github.com/brp-commerce/api/internal/repositories"
)

var (
	// ErrInventoryInvalidInput signals the caller provided invalid arguments.
	ErrInventoryInvalidInput = errors.New("inventory: invalid input")
	// ErrInventoryVariantNotFound indicates the variant stock record could not be located.
	ErrInventoryVariantNotFound = errors.New("inventory: variant not found")
	// ErrInventoryLineNotFound indicates the order line could not be located.
	ErrInventoryLineNotFound = errors.New("inventory: order line not found")
	// ErrInventoryLineNotFlagged indicates the order line carries no stock issue.
	ErrInventoryLineNotFlagged = errors.New("inventory: order line not flagged")
)

// InventoryServiceDeps bundles the collaborators required to construct an inventory service.
type InventoryServiceDeps struct {
	Stocks repositories.StockRepository
	Clock  Clock
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	stocks repositories.StockRepository
	clock  Clock
	logger func(context.Context, string, map[string]any)
}

// NewInventoryService wires dependencies into a concrete InventoryService implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Stocks == nil {
		return nil, errors.New("inventory service: stock repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &inventoryService{
		stocks: deps.Stocks,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *inventoryService) GetStock(ctx context.Context, variantID string) (VariantStock, error) {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return VariantStock{}, fmt.Errorf("%w: variant id is required", ErrInventoryInvalidInput)
	}

	stock, err := s.stocks.Get(ctx, variantID)
	if err != nil {
		return VariantStock{}, s.mapRepositoryError(err)
	}
	return stock, nil
}

func (s *inventoryService) Restock(ctx context.Context, cmd RestockCommand) (RestockResult, error) {
	variantID := strings.TrimSpace(cmd.VariantID)
	if variantID == "" {
		return RestockResult{}, fmt.Errorf("%w: variant id is required", ErrInventoryInvalidInput)
	}
	if cmd.Delta == 0 {
		return RestockResult{}, fmt.Errorf("%w: delta must be non-zero", ErrInventoryInvalidInput)
	}

	result, err := s.stocks.Restock(ctx, repositories.StockRestockRequest{
		VariantID: variantID,
		Delta:     cmd.Delta,
		Now:       s.clock(),
	})
	if err != nil {
		return RestockResult{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "inventory.restock", map[string]any{
		"variantId":    variantID,
		"delta":        cmd.Delta,
		"stock":        result.Stock.Stock,
		"clearedLines": len(result.ClearedLines),
		"actorId":      strings.TrimSpace(cmd.ActorID),
	})

	return RestockResult{Stock: result.Stock, ClearedLines: result.ClearedLines}, nil
}

func (s *inventoryService) ResolveLine(ctx context.Context, cmd ResolveStockLineCommand) (StockResolution, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	lineID := strings.TrimSpace(cmd.LineID)
	if orderID == "" {
		return StockResolution{}, fmt.Errorf("%w: order id is required", ErrInventoryInvalidInput)
	}
	if lineID == "" {
		return StockResolution{}, fmt.Errorf("%w: line id is required", ErrInventoryInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return StockResolution{}, fmt.Errorf("%w: quantity must be positive", ErrInventoryInvalidInput)
	}

	resolution, err := s.stocks.ResolveLine(ctx, repositories.StockResolveLineRequest{
		OrderID:  orderID,
		LineID:   lineID,
		Quantity: cmd.Quantity,
		Now:      s.clock(),
	})
	if err != nil {
		return StockResolution{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "inventory.resolveLine", map[string]any{
		"orderId":   orderID,
		"lineId":    lineID,
		"quantity":  cmd.Quantity,
		"cleared":   resolution.Cleared,
		"shortfall": resolution.Shortfall,
		"actorId":   strings.TrimSpace(cmd.ActorID),
	})

	return resolution, nil
}

func (s *inventoryService) ListIssueLines(ctx context.Context, filter StockIssueFilter) (domain.CursorPage[OrderLine], error) {
	page, err := s.stocks.ListIssueLines(ctx, strings.TrimSpace(filter.VariantID), filter.Pagination)
	if err != nil {
		return domain.CursorPage[OrderLine]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *inventoryService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var stockErr *repositories.StockError
	if errors.As(err, &stockErr) {
		switch stockErr.Code {
		case repositories.StockErrorVariantNotFound:
			return fmt.Errorf("%w: %s", ErrInventoryVariantNotFound, stockErr.Message)
		case repositories.StockErrorLineNotFound:
			return fmt.Errorf("%w: %s", ErrInventoryLineNotFound, stockErr.Message)
		case repositories.StockErrorLineNotFlagged:
			return fmt.Errorf("%w: %s", ErrInventoryLineNotFlagged, stockErr.Message)
		}
	}

	return err
}
