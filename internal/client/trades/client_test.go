package trades

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestListOpenTradesDecodesThroughBoundary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trades/dashboard" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("status"); got != "OPEN" {
			t.Errorf("status query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"t1","symbol":"SPY","type":"call","strike":"500","expiration":"20260320","price":1.25,"mark":"1.40"},
			{"id":"t2","symbol":"QQQ","right":"put","strike":430,"entryPrice":"NaN","currentPrice":2.0}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, Timeouts{})
	records, err := c.ListOpenTrades(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Expiry != "2026-03-20" {
		t.Fatalf("expiry = %q", records[0].Expiry)
	}
	if records[0].EntryPrice != 1.25 || records[0].CurrentPrice != 1.40 {
		t.Fatalf("alias collapse failed: entry=%v current=%v", records[0].EntryPrice, records[0].CurrentPrice)
	}
	if records[1].EntryPrice != 0 {
		t.Fatalf("NaN entry price should coerce to absent then zero, got %v", records[1].EntryPrice)
	}
}

func TestDeleteReportTreats404AsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, Timeouts{})
	if err := c.DeleteReport(context.Background(), "gone-already"); err != nil {
		t.Fatalf("404 delete must succeed: %v", err)
	}
}

func TestDeleteReportSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, Timeouts{})
	err := c.DeleteReport(context.Background(), "r1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("err = %v, want APIError 500", err)
	}
}

func TestTimeoutClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, Timeouts{Query: 20 * time.Millisecond})
	_, err := c.ListOpenTrades(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestCanceledContextPassesThroughSilently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	c := NewClient(srv.Client(), srv.URL, Timeouts{})
	_, err := c.ListOpenTrades(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnreachable) {
		t.Fatalf("cancellation misclassified: %v", err)
	}
}

func TestUnreachableClassification(t *testing.T) {
	c := NewClient(&http.Client{Timeout: time.Second}, "http://127.0.0.1:1", Timeouts{})
	_, err := c.ListOpenTrades(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("err = %v, want ErrUnreachable", err)
	}
}

func TestFetchPeriodReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reports/weekly" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "2026-02-20" {
			t.Errorf("date query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"totalPnL":"120.5",
			"winRate":62.5,
			"reports":[{"id":"r1","symbol":"SPY","right":"call","pnlAmount":37.5,"status":"closed","closedAt":"2026-02-19T15:00:00Z"}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, Timeouts{})
	out, err := c.FetchPeriodReport(context.Background(), "week", "2026-02-20")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if out.TotalPnl != 120.5 {
		t.Fatalf("totalPnl = %v", out.TotalPnl)
	}
	if out.WinRate == nil || *out.WinRate != 62.5 {
		t.Fatalf("winRate = %v", out.WinRate)
	}
	if len(out.Reports) != 1 || out.Reports[0].ReportedPnlAmount == nil || *out.Reports[0].ReportedPnlAmount != 37.5 {
		t.Fatalf("reports = %+v", out.Reports)
	}
}

func TestFetchPeriodReportRejectsUnknownPeriod(t *testing.T) {
	c := NewClient(nil, "http://localhost:0", Timeouts{})
	if _, err := c.FetchPeriodReport(context.Background(), "quarter", ""); err == nil {
		t.Fatalf("expected error for unknown period")
	}
}
