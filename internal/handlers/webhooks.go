package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brp-commerce/api/internal/platform/httpx"
	"github.com/brp-commerce/api/internal/services"
)

const (
	maxWebhookBodySize   = 32 * 1024
	webhookRateLimit     = 120
	webhookRateWindow    = time.Minute
	webhookRateLimitCode = "rate_limited"
)

// paymentCallbackRequest mirrors the gateway's HTTP notification body.
type paymentCallbackRequest struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	SignatureKey      string `json:"signature_key"`
}

// WebhookHandlers receives asynchronous notifications from external providers.
type WebhookHandlers struct {
	payments services.PaymentService
	limiter  rateLimiter
}

// WebhookOption customises the webhook handlers.
type WebhookOption func(*WebhookHandlers)

// WithWebhookRateLimit bounds how many callbacks a single remote address may
// deliver per window.
func WithWebhookRateLimit(limit int, window time.Duration) WebhookOption {
	return func(h *WebhookHandlers) {
		h.limiter = newSourceRateLimiter(limit, window, nil)
	}
}

// NewWebhookHandlers constructs a new WebhookHandlers instance.
func NewWebhookHandlers(payments services.PaymentService, opts ...WebhookOption) *WebhookHandlers {
	h := &WebhookHandlers{
		payments: payments,
		limiter:  newSourceRateLimiter(webhookRateLimit, webhookRateWindow, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /webhooks endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/payment", h.paymentCallback)
}

func (h *WebhookHandlers) paymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(r.RemoteAddr) {
		httpx.WriteError(ctx, w, httpx.NewError(webhookRateLimitCode, "too many callbacks, slow down", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		}
		return
	}

	var req paymentCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	result, err := h.payments.HandleCallback(ctx, services.PaymentCallbackCommand{
		OrderID:           strings.TrimSpace(req.OrderID),
		StatusCode:        strings.TrimSpace(req.StatusCode),
		GrossAmount:       strings.TrimSpace(req.GrossAmount),
		TransactionStatus: strings.TrimSpace(req.TransactionStatus),
		FraudStatus:       strings.TrimSpace(req.FraudStatus),
		PaymentType:       strings.TrimSpace(req.PaymentType),
		Signature:         strings.TrimSpace(req.SignatureKey),
	})
	if err != nil {
		writePaymentCallbackError(ctx, w, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, "callback processed", paymentCallbackPayload{
		OrderID: result.OrderID,
		Status:  string(result.Status),
		Applied: result.Applied,
	})
}

type paymentCallbackPayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Applied bool   `json:"applied"`
}

func writePaymentCallbackError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPaymentInvalidPayload):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentSignatureMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "signature verification failed", http.StatusUnauthorized))
	case errors.Is(err, services.ErrPaymentOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrPaymentUpstream):
		httpx.WriteError(ctx, w, httpx.NewError("upstream_unavailable", "gateway verification failed", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("payment_error", "failed to process payment callback", http.StatusInternalServerError))
	}
}
