package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// httpDoer narrows http.Client for testability.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// MidtransConfig captures the data required to talk to the gateway.
type MidtransConfig struct {
	ServerKey   string
	BaseURL     string
	SnapBaseURL string
	HTTPClient  httpDoer
	Timeout     time.Duration
}

// MidtransGateway implements Gateway against the Midtrans Snap and Core APIs.
type MidtransGateway struct {
	serverKey   string
	baseURL     string
	snapBaseURL string
	client      httpDoer
}

// NewMidtransGateway validates configuration and constructs the adapter.
func NewMidtransGateway(cfg MidtransConfig) (*MidtransGateway, error) {
	if strings.TrimSpace(cfg.ServerKey) == "" {
		return nil, errors.New("payments: midtrans server key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("payments: midtrans base url is required")
	}
	if strings.TrimSpace(cfg.SnapBaseURL) == "" {
		return nil, errors.New("payments: midtrans snap base url is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &MidtransGateway{
		serverKey:   strings.TrimSpace(cfg.ServerKey),
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		snapBaseURL: strings.TrimRight(strings.TrimSpace(cfg.SnapBaseURL), "/"),
		client:      client,
	}, nil
}

// CreateCheckout opens a Snap transaction and returns its token and redirect URL.
func (g *MidtransGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	if g == nil || g.client == nil {
		return CheckoutSession{}, errors.New("payments: midtrans gateway not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return CheckoutSession{}, errors.New("payments: order id is required")
	}
	if req.GrossAmount <= 0 {
		return CheckoutSession{}, errors.New("payments: gross amount must be > 0")
	}

	type itemDetail struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
		Price    int64  `json:"price"`
	}
	body := map[string]any{
		"transaction_details": map[string]any{
			"order_id":     orderID,
			"gross_amount": req.GrossAmount,
		},
	}
	if len(req.Items) > 0 {
		items := make([]itemDetail, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, itemDetail{
				ID:       strings.TrimSpace(item.ID),
				Name:     strings.TrimSpace(item.Name),
				Quantity: item.Quantity,
				Price:    item.Price,
			})
		}
		body["item_details"] = items
	}
	if name := strings.TrimSpace(req.CustomerName); name != "" || strings.TrimSpace(req.CustomerEmail) != "" {
		body["customer_details"] = map[string]any{
			"first_name": name,
			"email":      strings.TrimSpace(req.CustomerEmail),
		}
	}

	var resp struct {
		Token       string `json:"token"`
		RedirectURL string `json:"redirect_url"`
	}
	if err := g.do(ctx, http.MethodPost, g.snapBaseURL+"/transactions", body, &resp); err != nil {
		return CheckoutSession{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return CheckoutSession{}, errors.New("payments: gateway returned an empty checkout token")
	}
	return CheckoutSession{
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

// GetStatus fetches the authoritative transaction state for an order.
func (g *MidtransGateway) GetStatus(ctx context.Context, orderID string) (TransactionStatus, error) {
	if g == nil || g.client == nil {
		return TransactionStatus{}, errors.New("payments: midtrans gateway not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return TransactionStatus{}, errors.New("payments: order id is required")
	}

	raw := map[string]any{}
	if err := g.do(ctx, http.MethodGet, g.baseURL+"/v2/"+orderID+"/status", nil, &raw); err != nil {
		return TransactionStatus{}, err
	}
	statusCode := stringField(raw, "status_code")
	if statusCode == "404" {
		return TransactionStatus{}, fmt.Errorf("%w: order %s", ErrTransactionNotFound, orderID)
	}
	providerStatus := stringField(raw, "transaction_status")
	return TransactionStatus{
		OrderID:        orderID,
		Status:         NormalizeStatus(providerStatus),
		ProviderStatus: providerStatus,
		StatusCode:     statusCode,
		GrossAmount:    stringField(raw, "gross_amount"),
		PaymentType:    stringField(raw, "payment_type"),
		TransactionID:  stringField(raw, "transaction_id"),
		Raw:            raw,
	}, nil
}

// Refund returns settled funds for the order.
func (g *MidtransGateway) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if g == nil || g.client == nil {
		return RefundResult{}, errors.New("payments: midtrans gateway not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return RefundResult{}, errors.New("payments: order id is required")
	}

	body := map[string]any{}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return RefundResult{}, errors.New("payments: refund amount must be > 0")
		}
		body["amount"] = *req.Amount
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		body["reason"] = reason
	}

	raw := map[string]any{}
	err := g.do(ctx, http.MethodPost, g.baseURL+"/v2/"+orderID+"/refund", body, &raw)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) && gwErr.StatusCode >= 400 && gwErr.StatusCode < 500 {
			return RefundResult{}, fmt.Errorf("%w: %s", ErrRefundRejected, gwErr.Message)
		}
		return RefundResult{}, err
	}
	return RefundResult{
		OrderID:  orderID,
		RefundID: stringField(raw, "refund_key"),
		Status:   NormalizeStatus(stringField(raw, "transaction_status")),
		Raw:      raw,
	}, nil
}

// GatewayError reports a non-2xx gateway response.
type GatewayError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("payments: gateway responded %d: %s", e.StatusCode, e.Message)
}

func (g *MidtransGateway) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("payments: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("payments: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(g.serverKey+":")))

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payments: gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("payments: read gateway response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GatewayError{StatusCode: resp.StatusCode, Message: gatewayMessage(payload)}
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("payments: decode gateway response: %w", err)
		}
	}
	return nil
}

func gatewayMessage(payload []byte) string {
	var parsed struct {
		StatusMessage string   `json:"status_message"`
		ErrorMessages []string `json:"error_messages"`
	}
	if err := json.Unmarshal(payload, &parsed); err == nil {
		if parsed.StatusMessage != "" {
			return parsed.StatusMessage
		}
		if len(parsed.ErrorMessages) > 0 {
			return strings.Join(parsed.ErrorMessages, "; ")
		}
	}
	trimmed := strings.TrimSpace(string(payload))
	if len(trimmed) > 256 {
		trimmed = trimmed[:256]
	}
	return trimmed
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

var _ Gateway = (*MidtransGateway)(nil)
