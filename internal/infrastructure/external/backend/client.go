package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

// HTTPClient interface for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the central fuel backend over HTTP. It implements the
// inventory, transaction and scan-reporting ports; every call carries
// the request context so the offline queue's drain deadline applies.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewClient creates a backend client. A zero timeout falls back to 30s.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// GetInventory fetches the authoritative stock snapshot for a station.
func (c *Client) GetInventory(ctx context.Context, stationID string) (*entity.Inventory, error) {
	var inv entity.Inventory
	path := fmt.Sprintf("/stations/%s/inventory", url.PathEscape(stationID))
	if err := c.do(ctx, http.MethodGet, path, nil, &inv); err != nil {
		return nil, fmt.Errorf("get inventory for station %s: %w", stationID, err)
	}
	return &inv, nil
}

// UpdateInventory reports a locally applied stock debit.
func (c *Client) UpdateInventory(ctx context.Context, stationID string, fuel entity.FuelType, liters decimal.Decimal) error {
	body := entity.InventorySyncPayload{
		StationID: stationID,
		FuelType:  fuel,
		Liters:    liters.String(),
	}
	path := fmt.Sprintf("/stations/%s/inventory/debit", url.PathEscape(stationID))
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("update inventory for station %s: %w", stationID, err)
	}
	return nil
}

// SubmitTransaction submits a finalized transaction for settlement.
func (c *Client) SubmitTransaction(ctx context.Context, tx *entity.Transaction) error {
	if err := c.do(ctx, http.MethodPost, "/transactions", tx, nil); err != nil {
		return fmt.Errorf("submit transaction %s: %w", tx.ID, err)
	}
	return nil
}

// GetTransactions queries settlement history. Zero filter fields are
// omitted from the query string.
func (c *Client) GetTransactions(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error) {
	q := url.Values{}
	if filter.StationID != "" {
		q.Set("station_id", filter.StationID)
	}
	if filter.Mode != "" {
		q.Set("mode", string(filter.Mode))
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if !filter.Since.IsZero() {
		q.Set("since", filter.Since.UTC().Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := "/transactions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var txs []*entity.Transaction
	if err := c.do(ctx, http.MethodGet, path, nil, &txs); err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	return txs, nil
}

// ReportScan forwards a scan event recorded while offline.
func (c *Client) ReportScan(ctx context.Context, scan entity.QRScanPayload) error {
	if err := c.do(ctx, http.MethodPost, "/scans", scan, nil); err != nil {
		return fmt.Errorf("report scan of voucher %s: %w", scan.VoucherID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Backend request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(payload))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

var (
	_ port.InventoryService   = (*Client)(nil)
	_ port.TransactionService = (*Client)(nil)
	_ port.ScanReporter       = (*Client)(nil)
)
