package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// 关键词表来自常见财经新闻用语，粗粒度但确定性强。
var (
	positiveKeywords = []string{
		"bullish", "positive", "growth", "profit", "revenue",
		"strong", "beat", "exceed", "upgrade",
	}
	negativeKeywords = []string{
		"bearish", "negative", "loss", "decline", "weak",
		"miss", "downgrade", "concern", "risk",
	}
)

// KeywordClient 从一个返回 {"headlines": [...]} 的 JSON 接口拉取标题，
// 按关键词计分。任何 NLP 层面的精细打分都不在此处做。
type KeywordClient struct {
	baseURL string
	client  *http.Client
}

func NewKeywordClient(baseURL string, timeout time.Duration) *KeywordClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KeywordClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *KeywordClient) FetchSentiment(ctx context.Context, symbol string) (Sentiment, error) {
	if c.baseURL == "" {
		return Sentiment{}, fmt.Errorf("news feed url not configured")
	}
	endpoint := fmt.Sprintf("%s/headlines?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Sentiment{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Sentiment{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Sentiment{}, fmt.Errorf("news feed returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Sentiment{}, err
	}
	var headlines []string
	for _, item := range gjson.GetBytes(body, "headlines").Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			headlines = append(headlines, s)
		}
	}
	return Sentiment{
		Score:     ScoreHeadlines(headlines),
		Count:     len(headlines),
		Headlines: headlines,
	}, nil
}

// ScoreHeadlines 按关键词命中数计分，输出限定在 [-1,1]。
// 无命中或无标题时为 0。
func ScoreHeadlines(headlines []string) float64 {
	var positive, negative int
	for _, headline := range headlines {
		lower := strings.ToLower(headline)
		for _, kw := range positiveKeywords {
			if strings.Contains(lower, kw) {
				positive++
			}
		}
		for _, kw := range negativeKeywords {
			if strings.Contains(lower, kw) {
				negative++
			}
		}
	}
	total := positive + negative
	if total == 0 {
		return 0
	}
	return float64(positive-negative) / float64(total)
}
