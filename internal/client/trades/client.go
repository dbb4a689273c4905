// Package trades is the REST client for the authoritative trading backend.
// Only the data contracts matter here; transport failures are classified
// into the taxonomy the reconciler and handlers act on: timeouts are
// retryable and distinct, unreachable is distinct, HTTP rejections carry
// their status, and a 404 on delete counts as success.
package trades

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tradedesk/internal/trade"
)

var (
	// ErrTimeout marks a request that exceeded its per-request bound.
	ErrTimeout = errors.New("upstream request timed out")
	// ErrUnreachable marks a transport failure before any HTTP response.
	ErrUnreachable = errors.New("upstream unreachable")
)

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error (%d): %s", e.Status, e.Body)
}

// IsNotFound reports whether err is an HTTP 404 from the upstream.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Timeouts bounds each request class. Mutations get a longer leash than
// the polling reads that run every couple of seconds.
type Timeouts struct {
	Query  time.Duration
	Mutate time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Query <= 0 {
		t.Query = 7 * time.Second
	}
	if t.Mutate <= 0 {
		t.Mutate = 45 * time.Second
	}
	return t
}

type Client struct {
	host       string
	httpClient *http.Client
	timeouts   Timeouts
}

func NewClient(httpClient *http.Client, host string, timeouts Timeouts) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: httpClient,
		timeouts:   timeouts.withDefaults(),
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any, bound time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, bound)
	defer cancel()

	fullURL := c.host + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			// The owning cycle was superseded; not a failure.
			return nil, context.Canceled
		case errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%s %s: %w", method, path, ErrTimeout)
		default:
			return nil, fmt.Errorf("%s %s: %w: %v", method, path, ErrUnreachable, err)
		}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return b, nil
}

// ListOpenTrades fetches the authoritative snapshot of open positions.
func (c *Client) ListOpenTrades(ctx context.Context) ([]trade.Record, error) {
	query := url.Values{}
	query.Set("status", "OPEN")
	b, err := c.doRequest(ctx, http.MethodGet, "/trades/dashboard", query, nil, c.timeouts.Query)
	if err != nil {
		return nil, err
	}
	return decodeRecords(b)
}

// ListWinners fetches the closed trades the backend marked as wins.
func (c *Client) ListWinners(ctx context.Context) ([]trade.Record, error) {
	b, err := c.doRequest(ctx, http.MethodGet, "/trades/winners", nil, nil, c.timeouts.Query)
	if err != nil {
		return nil, err
	}
	return decodeRecords(b)
}

type CreateTradeRequest struct {
	Symbol     string   `json:"symbol"`
	Right      string   `json:"right"`
	Strike     float64  `json:"strike"`
	Expiration string   `json:"expiration"` // YYYYMMDD
	Contracts  int      `json:"contracts,omitempty"`
	EntryPrice *float64 `json:"entryPrice,omitempty"`
	StopLoss   *float64 `json:"stopLoss,omitempty"`
}

// CreateTrade submits a new position. The response may be a full record or
// a bare echo of the input; either decodes through the same boundary.
func (c *Client) CreateTrade(ctx context.Context, req CreateTradeRequest) (trade.Record, error) {
	b, err := c.doRequest(ctx, http.MethodPost, "/trades", nil, req, c.timeouts.Mutate)
	if err != nil {
		return trade.Record{}, err
	}
	return decodeRecord(b)
}

// SetStopLoss updates the stop loss on an open trade.
func (c *Client) SetStopLoss(ctx context.Context, tradeID string, stopLoss float64) (trade.Record, error) {
	payload := map[string]float64{"stopLoss": stopLoss}
	b, err := c.doRequest(ctx, http.MethodPatch, "/trades/"+url.PathEscape(tradeID)+"/stoploss", nil, payload, c.timeouts.Mutate)
	if err != nil {
		return trade.Record{}, err
	}
	return decodeRecord(b)
}

// CloseTrade asks the backend to close an open trade at market.
func (c *Client) CloseTrade(ctx context.Context, tradeID string) (trade.Record, error) {
	b, err := c.doRequest(ctx, http.MethodPatch, "/trades/"+url.PathEscape(tradeID)+"/close", nil, struct{}{}, c.timeouts.Mutate)
	if err != nil {
		return trade.Record{}, err
	}
	return decodeRecord(b)
}

// DeleteReport removes a closed-trade report. Deletes are idempotent: a
// 404 means the row is already gone and is treated as success.
func (c *Client) DeleteReport(ctx context.Context, reportID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/reports/"+url.PathEscape(reportID), nil, nil, c.timeouts.Mutate)
	if err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

// PeriodReport is the upstream aggregate for one period window. WinRate is
// optional; when present it is the backend's own computation and is passed
// through unchanged by the aggregator's backend policy.
type PeriodReport struct {
	TotalPnl float64
	WinRate  *float64
	Reports  []trade.Record
}

// FetchPeriodReport fetches closed-trade reports for a period anchored at
// date (YYYY-MM-DD, empty for today).
func (c *Client) FetchPeriodReport(ctx context.Context, period string, date string) (PeriodReport, error) {
	path, ok := map[string]string{
		"day":   "/reports/daily",
		"week":  "/reports/weekly",
		"month": "/reports/monthly",
	}[period]
	if !ok {
		return PeriodReport{}, fmt.Errorf("unknown period %q", period)
	}
	var query url.Values
	if date != "" {
		query = url.Values{}
		query.Set("date", date)
	}
	b, err := c.doRequest(ctx, http.MethodGet, path, query, nil, c.timeouts.Query)
	if err != nil {
		return PeriodReport{}, err
	}

	var wire struct {
		TotalPnl trade.Numeric `json:"totalPnL"`
		WinRate  trade.Numeric `json:"winRate"`
		Reports  []trade.Wire  `json:"reports"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return PeriodReport{}, fmt.Errorf("decode period report: %w", err)
	}
	out := PeriodReport{
		TotalPnl: wire.TotalPnl.Or(0),
		WinRate:  wire.WinRate.Ptr(),
		Reports:  make([]trade.Record, 0, len(wire.Reports)),
	}
	for _, w := range wire.Reports {
		out.Reports = append(out.Reports, trade.FromWire(w))
	}
	return out, nil
}

func decodeRecords(b []byte) ([]trade.Record, error) {
	var wires []trade.Wire
	if err := json.Unmarshal(b, &wires); err != nil {
		return nil, fmt.Errorf("decode trades: %w", err)
	}
	out := make([]trade.Record, 0, len(wires))
	for _, w := range wires {
		out = append(out, trade.FromWire(w))
	}
	return out, nil
}

func decodeRecord(b []byte) (trade.Record, error) {
	var w trade.Wire
	if err := json.Unmarshal(b, &w); err != nil {
		return trade.Record{}, fmt.Errorf("decode trade: %w", err)
	}
	return trade.FromWire(w), nil
}
