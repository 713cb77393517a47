package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketmind/internal/decision"
	"marketmind/internal/gateway/news"
	"marketmind/internal/market"
)

type stubNews struct {
	sentiment news.Sentiment
	err       error
}

func (s stubNews) FetchSentiment(context.Context, string) (news.Sentiment, error) {
	return s.sentiment, s.err
}

func TestSentimentNewsFailurePropagates(t *testing.T) {
	ag := NewSentiment(SizingConfig{}, stubNews{err: errors.New("feed down")}, nil)

	_, err := ag.Analyze(context.Background(), market.Snapshot{Symbol: "AAPL"}, decision.PortfolioSnapshot{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fetching news sentiment")
	// 失败不计入历史，由引擎把该 agent 从共识中剔除。
	assert.Zero(t, ag.Metrics().TotalSignals)
}

func TestSentimentBullishNews(t *testing.T) {
	ag := NewSentiment(SizingConfig{}, stubNews{
		sentiment: news.Sentiment{Score: 0.8, Count: 10},
	}, nil)

	sig, err := ag.Analyze(context.Background(), market.Snapshot{Symbol: "AAPL"}, decision.PortfolioSnapshot{})

	assert.NoError(t, err)
	// combined = 0.6*0.8*1.0 = 0.48 > 0.3
	assert.Equal(t, decision.ActionBuy, sig.Action)
	assert.InDelta(t, 0.48*0.8, sig.Confidence, 1e-9)
	assert.Contains(t, sig.Reasoning, "Positive news sentiment")
	assert.Contains(t, sig.Reasoning, "Overall sentiment is bullish")
}

func TestSentimentFewArticlesDampened(t *testing.T) {
	// 同样的正面分数但只有 2 篇文章：置信度 0.2，合成 0.096 → hold。
	ag := NewSentiment(SizingConfig{}, stubNews{
		sentiment: news.Sentiment{Score: 0.8, Count: 2},
	}, nil)

	sig, err := ag.Analyze(context.Background(), market.Snapshot{Symbol: "AAPL"}, decision.PortfolioSnapshot{})

	assert.NoError(t, err)
	assert.Equal(t, decision.ActionHold, sig.Action)
	assert.InDelta(t, 0.2, sig.Confidence, 1e-9)
}

func TestSentimentNeutralDefaultsToHold(t *testing.T) {
	ag := NewSentiment(SizingConfig{}, nil, nil) // nil source 回退到 Static

	sig, err := ag.Analyze(context.Background(), market.Snapshot{Symbol: "MSFT"}, decision.PortfolioSnapshot{})

	assert.NoError(t, err)
	assert.Equal(t, decision.ActionHold, sig.Action)
	assert.InDelta(t, 0.2, sig.Confidence, 1e-9)
	assert.Contains(t, sig.Reasoning, "Neutral news sentiment")
}

func TestSentimentMomentumContribution(t *testing.T) {
	// 连续上涨 2.5%/根：动量顶格 +0.4，量价指标齐全时市场情绪权重 1.0。
	bars := make([]market.Bar, 30)
	price := 100.0
	for i := range bars {
		bars[i] = market.Bar{Close: price, Volume: 1000}
		price *= 1.025
	}
	snap := market.Snapshot{
		Symbol: "NVDA",
		Bars:   bars,
		Indicators: &market.Indicators{
			VolumeSMA: series(30, 1000),
		},
	}
	ag := NewSentiment(SizingConfig{}, stubNews{
		sentiment: news.Sentiment{Score: 0.5, Count: 10},
	}, nil)

	sig, err := ag.Analyze(context.Background(), snap, decision.PortfolioSnapshot{})

	assert.NoError(t, err)
	assert.Equal(t, decision.ActionBuy, sig.Action)
	assert.Contains(t, sig.Reasoning, "Strong positive price momentum")
}

func TestRollingStd(t *testing.T) {
	assert.Zero(t, rollingStd(nil, 20))
	assert.Zero(t, rollingStd([]float64{0.1}, 20))
	// 常数序列标准差为 0。
	assert.Zero(t, rollingStd(series(25, 0.01), 20))
}
