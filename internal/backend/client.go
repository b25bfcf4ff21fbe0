// Package backend is the HTTP client for the external order-management
// API: customers, orders and Pix/card payment intents. Response shapes
// from this API vary between deployments, so all parsing goes through
// the normalizers in response.go.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pizzaria-checkout/internal/domain"
)

// Client talks to the order-management backend.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *log.Logger
}

// New builds a Client. The timeout bounds every request.
func New(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// SetAPIKey makes every request carry a bearer token. Deployments
// without auth leave it unset.
func (c *Client) SetAPIKey(key string) {
	c.apiKey = key
}

// CreateCustomerInput is the payload for POST /api/customers.
type CreateCustomerInput struct {
	Name         string
	Phone        string
	CEP          string
	Street       string
	Neighborhood string
}

// LookupCustomerByPhone fetches an existing customer record by phone
// digits. Returns domain.ErrNotFound when the backend has no match.
func (c *Client) LookupCustomerByPhone(ctx context.Context, phoneDigits string) (*domain.CustomerProfile, error) {
	endpoint := c.baseURL + "/api/customers/by-phone?phone=" + url.QueryEscape(phoneDigits)
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	profile, err := normalizeCustomer(raw)
	if err != nil {
		return nil, fmt.Errorf("parse customer response: %w", err)
	}
	return profile, nil
}

// CreateCustomer registers a new customer record and returns it with
// the backend-assigned id.
func (c *Client) CreateCustomer(ctx context.Context, in CreateCustomerInput) (*domain.CustomerProfile, error) {
	body := map[string]interface{}{
		"name":  in.Name,
		"phone": in.Phone,
		"address": map[string]string{
			"cep":          in.CEP,
			"street":       in.Street,
			"neighborhood": in.Neighborhood,
		},
	}
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/customers", body, "")
	if err != nil {
		return nil, err
	}
	profile, err := normalizeCustomer(raw)
	if err != nil {
		return nil, fmt.Errorf("parse customer response: %w", err)
	}
	return profile, nil
}

// SubmitOrder posts the assembled order payload and reconciles the
// response into a canonical id and human-readable code.
func (c *Client) SubmitOrder(ctx context.Context, payload map[string]interface{}) (*OrderResult, error) {
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/orders", payload, "")
	if err != nil {
		return nil, err
	}
	result, err := normalizeOrder(raw)
	if err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}
	return result, nil
}

// PaymentInput carries the fields common to Pix and card intents.
// Amounts are centavos; the wire format is reais.
type PaymentInput struct {
	AmountCents   int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	OrderID       string
	Address       string
}

// CreatePixPayment creates (or, via the idempotency key, re-fetches)
// a Pix payment intent.
func (c *Client) CreatePixPayment(ctx context.Context, in PaymentInput, idempotencyKey string) (*domain.Payment, error) {
	body := map[string]interface{}{
		"amount": centsToReais(in.AmountCents),
		"customer": map[string]string{
			"name":  in.CustomerName,
			"email": in.CustomerEmail,
		},
		"metadata": map[string]string{
			"source":        "site",
			"orderId":       in.OrderID,
			"customerPhone": in.CustomerPhone,
		},
	}
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/payments/pix", body, idempotencyKey)
	if err != nil {
		return nil, err
	}
	payment, err := normalizePayment(raw, domain.PaymentPix)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// CreateCardPayment creates a card payment intent. The returned
// payment usually carries a redirect URL to the provider checkout.
func (c *Client) CreateCardPayment(ctx context.Context, in PaymentInput, idempotencyKey string) (*domain.Payment, error) {
	body := map[string]interface{}{
		"amount": centsToReais(in.AmountCents),
		"customer": map[string]string{
			"name":         in.CustomerName,
			"email":        in.CustomerEmail,
			"phone_number": in.CustomerPhone,
		},
		"metadata": map[string]string{
			"address": in.Address,
			"orderId": in.OrderID,
		},
	}
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/payments/card", body, idempotencyKey)
	if err != nil {
		return nil, err
	}
	payment, err := normalizePayment(raw, domain.PaymentCard)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// FetchMenu returns the raw catalog document for the storefront.
func (c *Client) FetchMenu(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/api/menu", nil, "")
}

// FetchOrderStatus returns the raw order document used by the rider
// tracking page.
func (c *Client) FetchOrderStatus(ctx context.Context, orderID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/motoboy/pedido/"+url.PathEscape(orderID), nil, "")
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, idempotencyKey string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode >= 400:
		c.logger.Printf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, truncate(raw, 200))
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, endpoint, resp.StatusCode)
	}
	return raw, nil
}

func centsToReais(cents int64) float64 {
	return float64(cents) / 100
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
