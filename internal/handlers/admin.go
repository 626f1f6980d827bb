package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brp-commerce/api/internal/platform/auth"
	"github.com/brp-commerce/api/internal/platform/httpx"
	"github.com/brp-commerce/api/internal/services"
)

type restockRequest struct {
	Delta *int `json:"delta"`
}

// AdminHandlers exposes the back-office stock endpoints.
type AdminHandlers struct {
	authn     *auth.Authenticator
	inventory services.InventoryService
}

// NewAdminHandlers constructs a new AdminHandlers instance.
func NewAdminHandlers(authn *auth.Authenticator, inventory services.InventoryService) *AdminHandlers {
	return &AdminHandlers{
		authn:     authn,
		inventory: inventory,
	}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin, auth.RoleStaff))
	}
	r.Get("/stocks/{variantID}", h.getStock)
	r.Post("/stocks/{variantID}:restock", h.restock)
	r.Get("/stocks/{variantID}/issues", h.listIssueLines)
}

func (h *AdminHandlers) getStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireIdentity(w, r); !ok {
		return
	}

	variantID := strings.TrimSpace(chi.URLParam(r, "variantID"))
	stock, err := h.inventory.GetStock(ctx, variantID)
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, "stock fetched", buildStockPayload(stock))
}

func (h *AdminHandlers) restock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	variantID := strings.TrimSpace(chi.URLParam(r, "variantID"))
	var req restockRequest
	if !decodeRequestBody(ctx, w, r, &req) {
		return
	}
	if req.Delta == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "delta is required", http.StatusBadRequest))
		return
	}

	result, err := h.inventory.Restock(ctx, services.RestockCommand{
		VariantID: variantID,
		Delta:     *req.Delta,
		ActorID:   identity.UID,
	})
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}

	cleared := make([]orderLinePayload, 0, len(result.ClearedLines))
	for _, line := range result.ClearedLines {
		cleared = append(cleared, orderLinePayload{
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
	httpx.WriteData(w, http.StatusOK, "stock adjusted", restockPayload{
		Stock:        buildStockPayload(result.Stock),
		ClearedLines: cleared,
	})
}

func (h *AdminHandlers) listIssueLines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireIdentity(w, r); !ok {
		return
	}

	pager, err := parsePagination(r.URL.Query())
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.inventory.ListIssueLines(ctx, services.StockIssueFilter{
		VariantID:  strings.TrimSpace(chi.URLParam(r, "variantID")),
		Pagination: pager,
	})
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}

	items := make([]issueLinePayload, 0, len(page.Items))
	for _, line := range page.Items {
		items = append(items, issueLinePayload{
			ID:        line.ID,
			OrderID:   line.OrderID,
			VariantID: line.VariantID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			CreatedAt: formatTime(line.CreatedAt),
		})
	}
	httpx.WriteData(w, http.StatusOK, "stock issues listed", issueLineListPayload{
		Items:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *AdminHandlers) requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

type stockPayload struct {
	VariantID  string `json:"variant_id"`
	ProductRef string `json:"product_ref,omitempty"`
	Stock      int    `json:"stock"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

type restockPayload struct {
	Stock        stockPayload       `json:"stock"`
	ClearedLines []orderLinePayload `json:"cleared_lines"`
}

type issueLinePayload struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	CreatedAt string `json:"created_at,omitempty"`
}

type issueLineListPayload struct {
	Items         []issueLinePayload `json:"items"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

func buildStockPayload(stock services.VariantStock) stockPayload {
	return stockPayload{
		VariantID:  stock.VariantID,
		ProductRef: stock.ProductRef,
		Stock:      stock.Stock,
		UpdatedAt:  formatTime(stock.UpdatedAt),
	}
}
