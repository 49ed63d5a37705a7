package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// AllocationView is an allocation row as the panel displays it
type AllocationView struct {
	ID          uuid.UUID `json:"id"`
	LineID      uuid.UUID `json:"line_id"`
	StockItemID uuid.UUID `json:"stock_item_id"`
	PartName    string    `json:"part_name"`
	Serial      string    `json:"serial"`
	Quantity    string    `json:"quantity"`
	Consumed    bool      `json:"consumed"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

// LineView is a return order line in the panel's line picker
type LineView struct {
	ID           uuid.UUID `json:"id"`
	StockItemID  uuid.UUID `json:"stock_item_id"`
	PartName     string    `json:"part_name"`
	Serial       string    `json:"serial"`
	OutcomeLabel string    `json:"outcome_label"`
	Notes        string    `json:"notes"`
}

// StockView is a stock item in the panel's part picker
type StockView struct {
	ID       uuid.UUID `json:"id"`
	PartName string    `json:"part_name"`
	Serial   string    `json:"serial"`
	Location string    `json:"location"`
	Quantity string    `json:"quantity"`
}

// CreateAllocation is the panel's mutation payload
type CreateAllocation struct {
	LineID      uuid.UUID
	StockItemID uuid.UUID
	Quantity    float64
	Notes       string
}

// API is the narrow port the panel needs from the plugin service
type API interface {
	ListAllocations(ctx context.Context, orderID uuid.UUID) ([]AllocationView, error)
	CreateAllocation(ctx context.Context, req CreateAllocation) (*AllocationView, error)
	DeleteAllocation(ctx context.Context, id uuid.UUID) error
	OrderLines(ctx context.Context, orderID uuid.UUID) ([]LineView, error)
	SearchStock(ctx context.Context, query string) ([]StockView, error)
}

// HTTPClient implements API against the plugin's HTTP surface
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates an API client. baseURL includes the plugin prefix,
// e.g. "http://host/api/plugin/rma-automation". An empty token sends no
// Authorization header.
func NewHTTPClient(baseURL, token string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{baseURL: baseURL, token: token, client: client}
}

var _ API = (*HTTPClient)(nil)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a failed plugin API call
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error returns the error message
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 400 || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ListAllocations returns the allocations for a return order
func (c *HTTPClient) ListAllocations(ctx context.Context, orderID uuid.UUID) ([]AllocationView, error) {
	var out []AllocationView
	path := "/allocations?order_id=" + orderID.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAllocation allocates a repair part to a line
func (c *HTTPClient) CreateAllocation(ctx context.Context, req CreateAllocation) (*AllocationView, error) {
	payload := map[string]any{
		"line_id":       req.LineID.String(),
		"stock_item_id": req.StockItemID.String(),
		"quantity":      req.Quantity,
		"notes":         req.Notes,
	}
	var out AllocationView
	if err := c.do(ctx, http.MethodPost, "/allocations", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAllocation removes an unconsumed allocation
func (c *HTTPClient) DeleteAllocation(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/allocations/"+id.String(), nil, nil)
}

// OrderLines returns the order's lines for the line picker
func (c *HTTPClient) OrderLines(ctx context.Context, orderID uuid.UUID) ([]LineView, error) {
	var out []LineView
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID.String()+"/lines", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchStock finds stock items matching the query
func (c *HTTPClient) SearchStock(ctx context.Context, query string) ([]StockView, error) {
	var out []StockView
	path := "/stock?search=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
