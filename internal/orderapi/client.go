package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/joao-fontenele/orderflow-console/internal/domain"
)

// APIError is returned when the order service answers with a non-2xx status.
// Body is kept verbatim so callers can show the service's own error payload.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Request failed with status code %d", e.StatusCode)
}

type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient returns a client for the order service API. A relative baseURL
// such as /api is resolved against origin.
func NewClient(baseURL, origin string, client *http.Client) *Client {
	if strings.HasPrefix(baseURL, "/") {
		baseURL = strings.TrimRight(origin, "/") + baseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  client,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) CreateUser(ctx context.Context, req domain.CreateUserRequest) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/users", req)
}

func (c *Client) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/orders", req)
}

func (c *Client) ListOrders(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/orders", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: data}
	}

	return json.RawMessage(data), nil
}
