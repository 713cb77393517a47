package twelvedata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"marketmind/internal/market"
	"marketmind/internal/pkg/circuit"
)

// Client 基于 Twelve Data REST API 实现 market.Source。
// 未知 symbol 返回空序列，由上层按数据不足降级处理。
// 连续失败会触发熔断，冷却期内直接拒绝请求。
type Client struct {
	cfg     Config
	client  *http.Client
	breaker *circuit.Breaker
}

func New(cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	if strings.TrimSpace(final.APIKey) == "" {
		return nil, fmt.Errorf("twelvedata api key is required")
	}
	return &Client{
		cfg:     final,
		client:  &http.Client{Timeout: final.Timeout},
		breaker: circuit.NewBreaker("twelvedata", 5, 30*time.Second),
	}, nil
}

// FetchSeries 拉取历史K线并转为时间升序（接口返回最新在前）。
func (c *Client) FetchSeries(ctx context.Context, symbol, interval string, limit int) ([]market.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > maxOutputSize {
		limit = maxOutputSize
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", interval)
	query.Set("outputsize", fmt.Sprintf("%d", limit))
	query.Set("apikey", c.cfg.APIKey)
	body, err := c.get(ctx, "/time_series", query)
	if err != nil {
		return nil, err
	}
	if status := gjson.GetBytes(body, "status").String(); status == "error" {
		code := gjson.GetBytes(body, "code").Int()
		if code == 400 || code == 404 {
			// 未知 symbol：按空序列处理，不视为抓取失败。
			return nil, nil
		}
		return nil, fmt.Errorf("twelvedata time_series failed: %s", gjson.GetBytes(body, "message").String())
	}

	values := gjson.GetBytes(body, "values").Array()
	bars := make([]market.Bar, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		v := values[i]
		bars = append(bars, market.Bar{
			Timestamp: parseDatetime(v.Get("datetime").String()),
			Open:      v.Get("open").Float(),
			High:      v.Get("high").Float(),
			Low:       v.Get("low").Float(),
			Close:     v.Get("close").Float(),
			Volume:    v.Get("volume").Float(),
		})
	}
	return bars, nil
}

// FetchQuote 拉取实时行情快照。
func (c *Client) FetchQuote(ctx context.Context, symbol string) (market.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return market.Quote{}, fmt.Errorf("symbol is required")
	}
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("apikey", c.cfg.APIKey)
	body, err := c.get(ctx, "/quote", query)
	if err != nil {
		return market.Quote{}, err
	}
	if gjson.GetBytes(body, "status").String() == "error" {
		return market.Quote{}, fmt.Errorf("twelvedata quote failed: %s", gjson.GetBytes(body, "message").String())
	}
	return market.Quote{
		Symbol:        symbol,
		Price:         gjson.GetBytes(body, "close").Float(),
		Volume:        gjson.GetBytes(body, "volume").Float(),
		Change:        gjson.GetBytes(body, "change").Float(),
		ChangePercent: gjson.GetBytes(body, "percent_change").Float(),
		Timestamp:     time.Now(),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("twelvedata circuit open, request rejected")
	}
	endpoint := c.cfg.BaseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("twelvedata returned status %d", resp.StatusCode)
	}
	c.breaker.RecordSuccess()
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

// parseDatetime 兼容日内与日线两种时间格式。
func parseDatetime(s string) int64 {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix()
		}
	}
	return 0
}
