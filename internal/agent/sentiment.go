package agent

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"marketmind/internal/decision"
	"marketmind/internal/gateway/news"
	"marketmind/internal/market"
)

// 新闻与市场两路情绪的合成权重。
const (
	newsWeight   = 0.6
	marketWeight = 0.4
)

// Sentiment 情绪 agent：外部新闻情绪与市场派生情绪（量比/动量/波动率）
// 各自带置信度后加权合成。
type Sentiment struct {
	Base
	source news.Source
}

func NewSentiment(sizing SizingConfig, source news.Source, commentator Commentator) *Sentiment {
	if source == nil {
		source = news.Static{}
	}
	return &Sentiment{Base: newBase("sentiment", sizing, commentator), source: source}
}

// marketSentiment 市场派生情绪：三个可选指标各贡献约 [-0.4, 0.4]。
type marketSentiment struct {
	Score      float64
	Confidence float64 // 出现的指标数 / 3
	Volume     float64
	Momentum   float64
	Volatility float64
	has        [3]bool
}

func (a *Sentiment) Analyze(ctx context.Context, snap market.Snapshot, _ decision.PortfolioSnapshot) (decision.TradingSignal, error) {
	currentPrice := snap.LastPrice()

	newsSent, err := a.source.FetchSentiment(ctx, snap.Symbol)
	if err != nil {
		return decision.TradingSignal{}, fmt.Errorf("fetching news sentiment: %w", err)
	}
	newsConfidence := math.Min(float64(newsSent.Count)/10.0, 1.0)

	marketSent := a.marketSentiment(snap)
	combined := clampUnit(newsWeight*newsSent.Score*newsConfidence + marketWeight*marketSent.Score*marketSent.Confidence)
	action, confidence := scoreAction(combined, 0.8, 0.2)
	reasoning := a.reasoning(newsSent, marketSent, combined)

	prompt := fmt.Sprintf(`Analyze market sentiment for %s:
Current Price: $%.2f
News Sentiment Score: %.2f
Market Sentiment Score: %.2f
Combined Sentiment: %.2f

Recent market conditions and any notable events affecting %s.
Provide sentiment-based trading recommendation and key factors to consider.`,
		snap.Symbol, currentPrice, newsSent.Score, marketSent.Score, combined, snap.Symbol)

	sig := decision.TradingSignal{
		Symbol:       snap.Symbol,
		Action:       action,
		Confidence:   confidence,
		Reasoning:    a.withCommentary(ctx, reasoning, prompt),
		TargetPrice:  a.takeProfitPrice(currentPrice, action),
		StopLoss:     a.stopLossPrice(currentPrice, action),
		PositionSize: a.positionSize(confidence),
		CreatedAt:    time.Now(),
	}
	a.Record(sig)
	return sig, nil
}

func (a *Sentiment) marketSentiment(snap market.Snapshot) marketSentiment {
	out := marketSentiment{}
	if len(snap.Bars) == 0 {
		return out
	}

	// 量比：放量偏多，缩量偏空。
	if ind := snap.Indicators; ind != nil && len(ind.VolumeSMA) == len(snap.Bars) {
		if avg := last(ind.VolumeSMA); avg > 0 {
			out.has[0] = true
			switch ratio := snap.Bars[len(snap.Bars)-1].Volume / avg; {
			case ratio > 1.5:
				out.Volume = 0.3
			case ratio < 0.5:
				out.Volume = -0.2
			}
		}
	}

	// 动量：最近 5 根K线的平均收益率。
	returns := snap.Returns()
	if len(snap.Bars) >= 5 && len(returns) >= 4 {
		out.has[1] = true
		window := returns
		if len(window) > 5 {
			window = window[len(window)-5:]
		}
		var momentum float64
		for _, r := range window {
			momentum += r
		}
		momentum /= float64(len(window))
		switch {
		case momentum > 0.02:
			out.Momentum = 0.4
		case momentum < -0.02:
			out.Momentum = -0.4
		default:
			out.Momentum = momentum * 10 // 约为 [-0.2, 0.2]
		}
	}

	// 波动率情绪：高波动偏空，极低波动略偏多。
	if len(snap.Bars) >= 20 && len(returns) >= 20 {
		out.has[2] = true
		vol := rollingStd(returns, 20)
		switch {
		case vol > 0.03:
			out.Volatility = -0.2
		case vol < 0.01:
			out.Volatility = 0.1
		}
	}

	present := 0
	for _, ok := range out.has {
		if ok {
			present++
		}
	}
	out.Score = clampUnit(out.Volume + out.Momentum + out.Volatility)
	out.Confidence = float64(present) / 3.0
	return out
}

func (a *Sentiment) reasoning(n news.Sentiment, m marketSentiment, combined float64) string {
	var parts []string
	switch {
	case n.Score > 0.2:
		parts = append(parts, fmt.Sprintf("Positive news sentiment (%.2f) based on %d articles", n.Score, n.Count))
	case n.Score < -0.2:
		parts = append(parts, fmt.Sprintf("Negative news sentiment (%.2f) based on %d articles", n.Score, n.Count))
	default:
		parts = append(parts, "Neutral news sentiment")
	}

	if m.has[0] {
		switch {
		case m.Volume > 0:
			parts = append(parts, "High trading volume indicates strong interest")
		case m.Volume < 0:
			parts = append(parts, "Low trading volume suggests weak interest")
		}
	}
	if m.has[1] {
		switch {
		case m.Momentum > 0.1:
			parts = append(parts, "Strong positive price momentum")
		case m.Momentum < -0.1:
			parts = append(parts, "Strong negative price momentum")
		}
	}
	if m.has[2] && m.Volatility < 0 {
		parts = append(parts, "High volatility suggests uncertainty")
	}

	switch {
	case combined > 0.3:
		parts = append(parts, "Overall sentiment is bullish")
	case combined < -0.3:
		parts = append(parts, "Overall sentiment is bearish")
	default:
		parts = append(parts, "Overall sentiment is neutral")
	}
	return strings.Join(parts, ". ")
}

// rollingStd 最近 window 个元素的样本标准差。
func rollingStd(values []float64, window int) float64 {
	if len(values) < window {
		window = len(values)
	}
	if window < 2 {
		return 0
	}
	tail := values[len(values)-window:]
	var mean float64
	for _, v := range tail {
		mean += v
	}
	mean /= float64(window)
	var variance float64
	for _, v := range tail {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(window-1))
}

func clampUnit(v float64) float64 {
	return math.Max(-1.0, math.Min(1.0, v))
}
