package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketmind/internal/decision"
	"marketmind/internal/market"
)

// minDataPoints 技术面打分需要的最小K线数量，不足时降级为 hold/0。
const minDataPoints = 50

// 技术子信号权重，未乘成交量放大系数前合计 1.0。
var technicalWeights = struct {
	RSI, MACD, MA, Bollinger, Stochastic float64
}{
	RSI:        0.20,
	MACD:       0.25,
	MA:         0.25,
	Bollinger:  0.15,
	Stochastic: 0.15,
}

// Technical 技术指标 agent：把最新两根K线上的指标状态映射为
// 一组 -1/0/+1 子信号，再加权合成。
type Technical struct {
	Base
}

func NewTechnical(sizing SizingConfig, commentator Commentator) *Technical {
	return &Technical{Base: newBase("technical", sizing, commentator)}
}

// technicalSubSignals 每项取 -1/0/+1；VolumeMultiplier 只放大合成分数，不单独投票。
type technicalSubSignals struct {
	RSI              float64
	MACD             float64
	MA               float64
	Bollinger        float64
	Stochastic       float64
	VolumeMultiplier float64
}

func (a *Technical) Analyze(ctx context.Context, snap market.Snapshot, _ decision.PortfolioSnapshot) (decision.TradingSignal, error) {
	if len(snap.Bars) < minDataPoints || snap.Indicators == nil {
		return decision.TradingSignal{
			Symbol:    snap.Symbol,
			Action:    decision.ActionHold,
			Reasoning: "Insufficient data for technical analysis",
			CreatedAt: time.Now(),
		}, nil
	}

	currentPrice := snap.LastPrice()
	signals := a.subSignals(snap)
	score := a.weightedScore(signals)
	action, confidence := scoreAction(score, 1.0, 0.1)
	reasoning := a.reasoning(signals)

	prompt := fmt.Sprintf(`Analyze %s technical indicators:
Current Price: $%.2f
RSI: %.2f
MACD: %.4f
Signal: %.4f
SMA 20: $%.2f
SMA 50: $%.2f

Technical Score: %.2f
Suggested Action: %s

Provide a brief technical analysis and confirm or adjust the trading recommendation.`,
		snap.Symbol, currentPrice,
		last(snap.Indicators.RSI), last(snap.Indicators.MACD), last(snap.Indicators.MACDSignal),
		last(snap.Indicators.SMA20), last(snap.Indicators.SMA50),
		score, action)

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

func (a *Technical) subSignals(snap market.Snapshot) technicalSubSignals {
	ind := snap.Indicators
	i := len(snap.Bars) - 1
	prev := i - 1
	if prev < 0 {
		prev = i
	}
	price := snap.Bars[i].Close
	out := technicalSubSignals{VolumeMultiplier: 1.0}

	// RSI：超卖看多，超买看空。
	switch rsi := at(ind.RSI, i); {
	case rsi < 30:
		out.RSI = 1
	case rsi > 70:
		out.RSI = -1
	}

	// MACD：本根K线相对上一根发生穿越才算信号。
	macd, sig := at(ind.MACD, i), at(ind.MACDSignal, i)
	macdPrev, sigPrev := at(ind.MACD, prev), at(ind.MACDSignal, prev)
	switch {
	case macd > sig && macdPrev <= sigPrev:
		out.MACD = 1
	case macd < sig && macdPrev >= sigPrev:
		out.MACD = -1
	}

	// 均线排列：价格与快慢均线的多头/空头排列。
	sma20, sma50 := at(ind.SMA20, i), at(ind.SMA50, i)
	switch {
	case price > sma20 && sma20 > sma50:
		out.MA = 1
	case price < sma20 && sma20 < sma50:
		out.MA = -1
	}

	// 布林带：触下轨看多，触上轨看空。
	switch upper, lower := at(ind.BBUpper, i), at(ind.BBLower, i); {
	case lower > 0 && price <= lower:
		out.Bollinger = 1
	case upper > 0 && price >= upper:
		out.Bollinger = -1
	}

	// 随机指标：%K 与 %D 同时进入超卖/超买区。
	switch k, d := at(ind.StochK, i), at(ind.StochD, i); {
	case k < 20 && d < 20:
		out.Stochastic = 1
	case k > 80 && d > 80:
		out.Stochastic = -1
	}

	// 放量确认：仅放大合成分数。
	if volSMA := at(ind.VolumeSMA, i); volSMA > 0 && snap.Bars[i].Volume > volSMA*1.5 {
		out.VolumeMultiplier = 1.2
	}
	return out
}

func (a *Technical) weightedScore(s technicalSubSignals) float64 {
	score := s.RSI*technicalWeights.RSI +
		s.MACD*technicalWeights.MACD +
		s.MA*technicalWeights.MA +
		s.Bollinger*technicalWeights.Bollinger +
		s.Stochastic*technicalWeights.Stochastic
	return score * s.VolumeMultiplier
}

func (a *Technical) reasoning(s technicalSubSignals) string {
	var parts []string
	switch {
	case s.RSI > 0:
		parts = append(parts, "RSI indicates oversold conditions")
	case s.RSI < 0:
		parts = append(parts, "RSI indicates overbought conditions")
	}
	switch {
	case s.MACD > 0:
		parts = append(parts, "MACD bullish crossover detected")
	case s.MACD < 0:
		parts = append(parts, "MACD bearish crossover detected")
	}
	switch {
	case s.MA > 0:
		parts = append(parts, "Price above moving averages - bullish trend")
	case s.MA < 0:
		parts = append(parts, "Price below moving averages - bearish trend")
	}
	switch {
	case s.Bollinger > 0:
		parts = append(parts, "Price at lower Bollinger Band - potential bounce")
	case s.Bollinger < 0:
		parts = append(parts, "Price at upper Bollinger Band - potential reversal")
	}
	if s.VolumeMultiplier > 1.0 {
		parts = append(parts, "High volume confirms the signal")
	}
	if len(parts) == 0 {
		return "Mixed technical signals"
	}
	return strings.Join(parts, ". ")
}

// at 带边界保护的序列取值。
func at(series []float64, i int) float64 {
	if i < 0 || i >= len(series) {
		return 0
	}
	return series[i]
}

func last(series []float64) float64 {
	return at(series, len(series)-1)
}
