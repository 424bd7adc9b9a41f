// Package storeapi is the HTTP client for the order store's action-tagged
// endpoint. Failures come back as typed errors, never bare strings.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/AWWWJAY03/OrderSystem/internal/dispatch"
	"github.com/AWWWJAY03/OrderSystem/internal/orders"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("order store unavailable")
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ dispatch.Store = (*Client)(nil)

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (c *Client) ListOrders(ctx context.Context, f orders.Filter) ([]orders.Order, error) {
	params := url.Values{"action": {"getOrders"}}
	if f.PaymentStatus != "" {
		params.Set("paymentStatus", f.PaymentStatus)
	}
	if f.ShippingStatus != "" {
		params.Set("shippingStatus", f.ShippingStatus)
	}
	if f.Search != "" {
		params.Set("search", f.Search)
	}
	var out []orders.Order
	if err := c.get(ctx, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListReadyToShip(ctx context.Context) ([]orders.Order, error) {
	return c.ListOrders(ctx, orders.Filter{ShippingStatus: string(orders.ShippingReadyToShip)})
}

func (c *Client) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	params := url.Values{"action": {"getOrder"}, "orderId": {id}}
	var out orders.Order
	if err := c.get(ctx, params, &out); err != nil {
		return orders.Order{}, err
	}
	return out, nil
}

type CreateOrderResult struct {
	OrderID     string `json:"order_id"`
	AmountCents int    `json:"amount_cents"`
}

func (c *Client) CreateOrder(ctx context.Context, in orders.CreateOrderInput) (CreateOrderResult, error) {
	body := struct {
		Action string `json:"action"`
		orders.CreateOrderInput
	}{Action: "createOrder", CreateOrderInput: in}

	var out CreateOrderResult
	if err := c.post(ctx, body, &out); err != nil {
		return CreateOrderResult{}, err
	}
	return out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, patch orders.StatusPatch) error {
	body := struct {
		Action  string             `json:"action"`
		OrderID string             `json:"orderId"`
		Status  orders.StatusPatch `json:"status"`
		Token   string             `json:"token"`
	}{Action: "updateOrderStatus", OrderID: id, Status: patch, Token: c.token}
	return c.post(ctx, body, nil)
}

func (c *Client) RecordBatchResult(ctx context.Context, s dispatch.Summary) error {
	body := struct {
		Action    string           `json:"action"`
		Results   dispatch.Summary `json:"results"`
		Timestamp time.Time        `json:"timestamp"`
		Token     string           `json:"token"`
	}{Action: "jtCallback", Results: s, Timestamp: time.Now().UTC(), Token: c.token}
	return c.post(ctx, body, nil)
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var body apiResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("malformed response (status %d): %w", resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body.Error)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body.Error)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrUnavailable, body.Error)
	case resp.StatusCode >= 400:
		return errors.New(body.Error)
	}

	if out == nil || len(body.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(body.Data, out); err != nil {
		return fmt.Errorf("malformed response data: %w", err)
	}
	return nil
}
