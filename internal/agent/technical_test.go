package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marketmind/internal/decision"
	"marketmind/internal/market"
)

func series(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

// flatSnapshot n 根K线的基础快照，指标全部填充为中性值。
func flatSnapshot(symbol string, n int, price float64) market.Snapshot {
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{
			Timestamp: int64(i) * 3600,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    1000,
		}
	}
	return market.Snapshot{
		Symbol: symbol,
		Bars:   bars,
		Indicators: &market.Indicators{
			SMA20:      series(n, price),
			SMA50:      series(n, price),
			MACD:       series(n, 0),
			MACDSignal: series(n, 0),
			RSI:        series(n, 50),
			BBUpper:    series(n, price*1.1),
			BBMiddle:   series(n, price),
			BBLower:    series(n, price*0.9),
			StochK:     series(n, 50),
			StochD:     series(n, 50),
			VolumeSMA:  series(n, 1000),
		},
	}
}

func TestTechnicalInsufficientData(t *testing.T) {
	ag := NewTechnical(SizingConfig{}, nil)
	snap := flatSnapshot("AAPL", 10, 100)

	sig, err := ag.Analyze(context.Background(), snap, decision.PortfolioSnapshot{})

	assert.NoError(t, err)
	assert.Equal(t, decision.ActionHold, sig.Action)
	assert.Zero(t, sig.Confidence)
	assert.Equal(t, "Insufficient data for technical analysis", sig.Reasoning)
	// 降级信号不计入历史。
	assert.Zero(t, ag.Metrics().TotalSignals)
}

func TestTechnicalAllBullish(t *testing.T) {
	ag := NewTechnical(SizingConfig{}, nil)
	snap := flatSnapshot("AAPL", 60, 95)
	n := len(snap.Bars)
	ind := snap.Indicators

	// RSI 超卖
	ind.RSI[n-1] = 25
	// MACD 本根上穿
	ind.MACD[n-1], ind.MACDSignal[n-1] = 1.0, 0.5
	ind.MACD[n-2], ind.MACDSignal[n-2] = 0.4, 0.5
	// 多头排列：price 95 > SMA20 90 > SMA50 80
	ind.SMA20[n-1] = 90
	ind.SMA50[n-1] = 80
	// 触及下轨
	ind.BBLower[n-1] = 95
	// 随机指标超卖
	ind.StochK[n-1], ind.StochD[n-1] = 15, 15
	// 放量确认
	snap.Bars[n-1].Volume = 2000
	ind.VolumeSMA[n-1] = 1000

	sig, err := ag.Analyze(context.Background(), snap, decision.PortfolioSnapshot{})

	assert.NoError(t, err)
	assert.Equal(t, decision.ActionBuy, sig.Action)
	// 满分 1.0 × 1.2 放量系数，置信度截断在 0.9。
	assert.InDelta(t, 0.9, sig.Confidence, 1e-9)
	assert.InDelta(t, 95*0.95, sig.StopLoss, 1e-9)
	assert.InDelta(t, 95*1.15, sig.TargetPrice, 1e-9)
	assert.InDelta(t, 0.09, sig.PositionSize, 1e-9)
	assert.Contains(t, sig.Reasoning, "RSI indicates oversold conditions")
	assert.Contains(t, sig.Reasoning, "High volume confirms the signal")
	assert.Equal(t, 1, ag.Metrics().TotalSignals)
}

func TestTechnicalNeutralHold(t *testing.T) {
	ag := NewTechnical(SizingConfig{}, nil)
	snap := flatSnapshot("MSFT", 60, 100)

	sig, err := ag.Analyze(context.Background(), snap, decision.PortfolioSnapshot{})

	assert.NoError(t, err)
	assert.Equal(t, decision.ActionHold, sig.Action)
	assert.InDelta(t, 0.1, sig.Confidence, 1e-9)
	assert.Equal(t, "Mixed technical signals", sig.Reasoning)
	// hold 的风控价位保持原价。
	assert.InDelta(t, 100, sig.StopLoss, 1e-9)
	assert.InDelta(t, 100, sig.TargetPrice, 1e-9)
}

func TestTechnicalScoreBoundaryIsHold(t *testing.T) {
	ag := NewTechnical(SizingConfig{}, nil)
	snap := flatSnapshot("NVDA", 60, 95)
	n := len(snap.Bars)

	// 只有均线多头排列：score = 0.25，不超过 0.3 阈值。
	snap.Indicators.SMA20[n-1] = 90
	snap.Indicators.SMA50[n-1] = 80
	snap.Indicators.BBLower[n-1] = 85

	sig, err := ag.Analyze(context.Background(), snap, decision.PortfolioSnapshot{})

	assert.NoError(t, err)
	assert.Equal(t, decision.ActionHold, sig.Action)
	assert.InDelta(t, 0.1, sig.Confidence, 1e-9)
}

type stubCommentator struct {
	text string
	err  error
}

func (s stubCommentator) Summarize(context.Context, string) (string, error) {
	return s.text, s.err
}

func TestTechnicalCommentaryAppended(t *testing.T) {
	ag := NewTechnical(SizingConfig{}, stubCommentator{text: "looks fine"})
	snap := flatSnapshot("AAPL", 60, 100)

	sig, err := ag.Analyze(context.Background(), snap, decision.PortfolioSnapshot{})

	assert.NoError(t, err)
	assert.Contains(t, sig.Reasoning, "AI Analysis: looks fine")
}

func TestHistoryEviction(t *testing.T) {
	ag := NewTechnical(SizingConfig{}, nil)
	for i := 0; i < 105; i++ {
		ag.Record(decision.TradingSignal{
			Symbol:     "AAPL",
			Action:     decision.ActionHold,
			Confidence: 0.5,
			CreatedAt:  time.Unix(int64(i), 0),
		})
	}
	history := ag.History()
	assert.Len(t, history, 100)
	// 最旧的 5 条被淘汰。
	assert.Equal(t, time.Unix(5, 0), history[0].Timestamp)
	m := ag.Metrics()
	assert.Equal(t, 105, m.TotalSignals)
	assert.Equal(t, 100, m.RecentSignals)
	assert.InDelta(t, 0.5, m.AvgConfidence, 1e-9)
}
