package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/barsync/internal/model"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("http://aktools.local")

		if c.baseURL != "http://aktools.local" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "http://aktools.local")
		}
		if c.httpClient.Timeout != 60*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 60*time.Second)
		}
		if c.maxRetries != 0 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 0)
		}
		if c.adjust != "" {
			t.Errorf("adjust = %q, want empty", c.adjust)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with multiple options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		hc := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("http://aktools.local",
			WithHTTPClient(hc),
			WithTimeout(15*time.Second),
			WithRetries(2, 500*time.Millisecond),
			WithAdjust("qfq"),
			WithLogger(logger),
		)
		if c.httpClient != hc {
			t.Error("custom HTTP client not set")
		}
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 2 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 2)
		}
		if c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 500*time.Millisecond)
		}
		if c.adjust != "qfq" {
			t.Errorf("adjust = %q, want %q", c.adjust, "qfq")
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 404, Message: "Not Found"}
	if err.Error() != "aktools api error 404: Not Found" {
		t.Errorf("Error() = %q", err.Error())
	}

	tests := []struct {
		code     int
		expected bool
	}{
		{500, true},
		{503, true},
		{429, true},
		{400, false},
		{404, false},
	}
	for _, tt := range tests {
		err := &APIError{StatusCode: tt.code}
		if got := err.IsRetryable(); got != tt.expected {
			t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

// TestDoWithRetry tests the retry logic.
func TestNextBackoff(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{time.Second, 2 * time.Second},
		{29 * time.Second, 58 * time.Second},
		{30 * time.Second, time.Minute},
		{40 * time.Second, time.Minute},
		{time.Minute, time.Minute},
		{0, time.Minute},
	}
	for _, tt := range tests {
		if got := nextBackoff(tt.in); got != tt.want {
			t.Errorf("nextBackoff(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	b := time.Second
	for i := 0; i < 100; i++ {
		b = nextBackoff(b)
		if b <= 0 || b > maxRetryBackoff {
			t.Fatalf("backoff after %d doublings = %v, want within (0, %v]", i+1, b, maxRetryBackoff)
		}
	}
}

func TestDoWithRetry(t *testing.T) {
	t.Run("no retries by default", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		c := NewClient(server.URL)
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
			t.Errorf("err = %v, want *APIError 502", err)
		}
		if strings.Contains(err.Error(), "max retries") {
			t.Errorf("error should not mention retries, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(3, 10*time.Millisecond))
		body, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `[]` {
			t.Errorf("body = %q, want %q", string(body), `[]`)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("does not retry on 4xx (except 429)", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(3, 10*time.Millisecond))
		if _, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil); err == nil {
			t.Fatal("expected error, got nil")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		c := NewClient(server.URL, WithRetries(2, 10*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error should contain 'max retries exceeded', got %v", err)
		}
		// 1 initial + 2 retries = 3 attempts
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})
}

func TestListInstruments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/public/stock_info_a_code_name" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/api/public/stock_info_a_code_name")
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept header = %q, want %q", r.Header.Get("Accept"), "application/json")
		}
		w.Write([]byte(`[{"code":"000001","name":"平安银行"},{"code":"600519","name":"贵州茅台"}]`))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	table, err := c.ListInstruments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	if got := table.Rows[1]["code"]; got != "600519" {
		t.Errorf("Rows[1][code] = %v, want 600519", got)
	}
	if len(table.Columns) != 2 || table.Columns[0] != "code" || table.Columns[1] != "name" {
		t.Errorf("Columns = %v, want [code name]", table.Columns)
	}
}

func TestFetchDailyBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/public/stock_zh_a_hist" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		want := map[string]string{
			"symbol":     "600519",
			"period":     "daily",
			"start_date": "20240101",
			"end_date":   "20240131",
			"adjust":     "hfq",
		}
		for k, v := range want {
			if q.Get(k) != v {
				t.Errorf("%s = %q, want %q", k, q.Get(k), v)
			}
		}
		w.Write([]byte(`[{"日期":"2024-01-02T00:00:00.000","开盘":1715.0,"收盘":1685.01,"最高":1718.19,"最低":1678.1,"成交量":32155}]`))
	}))
	defer server.Close()

	c := NewClient(server.URL, WithAdjust("hfq"))
	table, err := c.FetchDailyBars(context.Background(), "600519", "20240101", "20240131")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}
	if got, ok := table.Rows[0]["开盘"].(json.Number); !ok || got.String() != "1715.0" {
		t.Errorf("开盘 = %#v, want json.Number 1715.0", table.Rows[0]["开盘"])
	}
	wantCols := []string{"日期", "开盘", "收盘", "最高", "最低", "成交量"}
	for i, c := range wantCols {
		if table.Columns[i] != c {
			t.Errorf("Columns[%d] = %q, want %q", i, table.Columns[i], c)
		}
	}
}

func TestFetchMinuteBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/public/stock_zh_a_hist_min_em" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("start_date") != "2024-03-01 09:30:00" {
			t.Errorf("start_date = %q", q.Get("start_date"))
		}
		if q.Get("period") != "30" {
			t.Errorf("period = %q, want 30", q.Get("period"))
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	table, err := c.FetchMinuteBars(context.Background(), "000001", "2024-03-01 09:30:00", "2024-03-20 15:00:00", "30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Len() != 0 || len(table.Columns) != 0 {
		t.Errorf("table = %+v, want empty", table)
	}
}

func TestFetch_ProviderUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `boom`},
		{"object instead of array", http.StatusOK, `{"detail":"not found"}`},
		{"truncated body", http.StatusOK, `[{"日期":"2024-01-02"`},
		{"trailing data", http.StatusOK, `[] []`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL)
			_, err := c.FetchDailyBars(context.Background(), "000001", "20240101", "20240131")
			if !errors.Is(err, model.ErrProviderUnavailable) {
				t.Errorf("err = %v, want ErrProviderUnavailable", err)
			}
		})
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListInstruments(ctx)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in chain", err)
	}
}
