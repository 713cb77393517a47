package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{BaseURL: server.URL, APIKey: "test-key", Timeout: time.Second})
	assert.NoError(t, err)
	return client, server
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestFetchSeriesChronologicalOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		// 接口返回最新在前。
		w.Write([]byte(`{
			"status": "ok",
			"values": [
				{"datetime": "2026-08-28 15:00:00", "open": "101", "high": "103", "low": "100", "close": "102", "volume": "2000"},
				{"datetime": "2026-08-28 14:00:00", "open": "100", "high": "102", "low": "99", "close": "101", "volume": "1500"}
			]
		}`))
	})

	bars, err := client.FetchSeries(context.Background(), "aapl", "1h", 100)

	assert.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Less(t, bars[0].Timestamp, bars[1].Timestamp)
	assert.InDelta(t, 101.0, bars[0].Close, 1e-9)
	assert.InDelta(t, 102.0, bars[1].Close, 1e-9)
	assert.InDelta(t, 2000.0, bars[1].Volume, 1e-9)
}

func TestFetchSeriesUnknownSymbolIsEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "code": 400, "message": "symbol not found"}`))
	})

	bars, err := client.FetchSeries(context.Background(), "NOPE", "1h", 100)

	assert.NoError(t, err)
	assert.Empty(t, bars)
}

func TestFetchSeriesUpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "code": 429, "message": "rate limit exceeded"}`))
	})

	_, err := client.FetchSeries(context.Background(), "AAPL", "1h", 100)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestFetchQuote(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		w.Write([]byte(`{"symbol": "AAPL", "close": "184.25", "volume": "52000000", "change": "1.75", "percent_change": "0.96"}`))
	})

	quote, err := client.FetchQuote(context.Background(), "AAPL")

	assert.NoError(t, err)
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.InDelta(t, 184.25, quote.Price, 1e-9)
	assert.InDelta(t, 0.96, quote.ChangePercent, 1e-9)
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := client.FetchQuote(context.Background(), "AAPL")
		assert.Error(t, err)
	}
	assert.Equal(t, 5, calls)

	// 熔断打开后不再发请求。
	_, err := client.FetchQuote(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, 5, calls)
}

func TestParseDatetime(t *testing.T) {
	assert.Equal(t, time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC).Unix(), parseDatetime("2026-08-28 14:00:00"))
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC).Unix(), parseDatetime("2026-08-28"))
	assert.Zero(t, parseDatetime("not a date"))
}
