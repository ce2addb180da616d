// internal/clients/inventory_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"stockroom/internal/inventory"
	"stockroom/internal/ledger"
)

// ItemFields is the request body for create and update calls. Nil fields are
// left out of the JSON so updates stay partial.
type ItemFields struct {
	Name     *string  `json:"name,omitempty"`
	Qty      *int     `json:"qty,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Location *string  `json:"location,omitempty"`
}

type InventoryClient struct {
	baseURL    string
	actor      string
	httpClient *http.Client
}

func NewInventoryClient(baseURL string) *InventoryClient {
	return &InventoryClient{baseURL: baseURL, httpClient: http.DefaultClient}
}

// WithActor returns a copy of the client that names itself in the audit ledger.
func (c *InventoryClient) WithActor(actor string) *InventoryClient {
	clone := *c
	clone.actor = actor
	return &clone
}

// WithHTTPClient returns a copy of the client using hc for transport.
func (c *InventoryClient) WithHTTPClient(hc *http.Client) *InventoryClient {
	clone := *c
	clone.httpClient = hc
	return &clone
}

func (c *InventoryClient) CreateItem(ctx context.Context, fields ItemFields) (*inventory.Item, error) {
	var item inventory.Item
	if err := c.do(ctx, http.MethodPost, "/items", fields, http.StatusCreated, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *InventoryClient) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	var item inventory.Item
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), nil, http.StatusOK, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *InventoryClient) ListItems(ctx context.Context) ([]inventory.Item, error) {
	var items []inventory.Item
	if err := c.do(ctx, http.MethodGet, "/items", nil, http.StatusOK, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *InventoryClient) UpdateItem(ctx context.Context, id string, fields ItemFields) (*inventory.Item, error) {
	var item inventory.Item
	if err := c.do(ctx, http.MethodPut, "/items/"+url.PathEscape(id), fields, http.StatusOK, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *InventoryClient) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

func (c *InventoryClient) ItemHistory(ctx context.Context, id string) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id)+"/history", nil, http.StatusOK, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *InventoryClient) AllHistory(ctx context.Context) ([]ledger.Record, error) {
	var records []ledger.Record
	if err := c.do(ctx, http.MethodGet, "/history", nil, http.StatusOK, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *InventoryClient) Health(ctx context.Context) (*inventory.HealthResponse, error) {
	var health inventory.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *InventoryClient) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.actor != "" {
		req.Header.Set(inventory.ActorHeader, c.actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", payload.Error, inventory.ErrNotFound)
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %w", payload.Error, inventory.ErrInvalidInput)
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}
