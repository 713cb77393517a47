package news

import "context"

// Sentiment 新闻情绪评分。Score ∈ [-1,1]，Count 为参与打分的文章数。
type Sentiment struct {
	Score     float64  `json:"score"`
	Count     int      `json:"count"`
	Headlines []string `json:"headlines,omitempty"`
}

// Source 新闻情绪数据源。实现必须自带超时，失败由调用方降级处理。
type Source interface {
	FetchSentiment(ctx context.Context, symbol string) (Sentiment, error)
}

// Static 固定输出的数据源，用于未配置新闻接口时的确定性兜底。
type Static struct {
	Value Sentiment
}

func (s Static) FetchSentiment(context.Context, string) (Sentiment, error) {
	return s.Value, nil
}
