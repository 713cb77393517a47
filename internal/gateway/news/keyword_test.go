package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScoreHeadlines(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Zero(t, ScoreHeadlines(nil))
		assert.Zero(t, ScoreHeadlines([]string{"Apple announces new product"}))
	})
	t.Run("all positive", func(t *testing.T) {
		score := ScoreHeadlines([]string{"Strong revenue growth", "Analysts upgrade stock"})
		assert.InDelta(t, 1.0, score, 1e-9)
	})
	t.Run("all negative", func(t *testing.T) {
		score := ScoreHeadlines([]string{"Bearish outlook amid decline"})
		assert.InDelta(t, -1.0, score, 1e-9)
	})
	t.Run("mixed", func(t *testing.T) {
		// 2 正 1 负 → (2-1)/3
		score := ScoreHeadlines([]string{"Profit beat expectations", "Growing risk of slowdown"})
		assert.InDelta(t, 1.0/3.0, score, 1e-9)
	})
}

func TestKeywordClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/headlines", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"headlines": ["Strong profit growth", "Concerns over weak demand", "  "]}`))
	}))
	defer server.Close()

	client := NewKeywordClient(server.URL, time.Second)
	sentiment, err := client.FetchSentiment(context.Background(), "AAPL")

	assert.NoError(t, err)
	assert.Equal(t, 2, sentiment.Count)
	// 3 正（strong/profit/growth）2 负（concern/weak）→ 1/5
	assert.InDelta(t, 0.2, sentiment.Score, 1e-9)
	assert.Len(t, sentiment.Headlines, 2)
}

func TestKeywordClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewKeywordClient(server.URL, time.Second)
	_, err := client.FetchSentiment(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestStaticSource(t *testing.T) {
	src := Static{Value: Sentiment{Score: 0.1, Count: 3}}
	got, err := src.FetchSentiment(context.Background(), "AAPL")
	assert.NoError(t, err)
	assert.Equal(t, 3, got.Count)
}
