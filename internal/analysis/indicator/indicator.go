package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"marketmind/internal/market"
)

// 技术指标参数。上游数据源未附带指标列时由本包补齐，
// 各 agent 不自行计算指标。
const (
	smaFastPeriod   = 20
	smaSlowPeriod   = 50
	emaFastPeriod   = 12
	emaSlowPeriod   = 26
	macdFastPeriod  = 12
	macdSlowPeriod  = 26
	macdSignalSpan  = 9
	rsiPeriod       = 14
	bbandsPeriod    = 20
	bbandsDeviation = 2.0
	stochFastK      = 14
	stochSlowK      = 3
	stochSlowD      = 3
	volumeSMAPeriod = 20
)

// Enrich 基于K线序列计算全部指标列，输出与 bars 一一对齐。
func Enrich(bars []market.Bar) (*market.Indicators, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars")
	}
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	ind := &market.Indicators{
		SMA20:     sanitize(talib.Sma(closes, smaFastPeriod)),
		SMA50:     sanitize(talib.Sma(closes, smaSlowPeriod)),
		EMA12:     sanitize(talib.Ema(closes, emaFastPeriod)),
		EMA26:     sanitize(talib.Ema(closes, emaSlowPeriod)),
		RSI:       sanitize(talib.Rsi(closes, rsiPeriod)),
		VolumeSMA: sanitize(talib.Sma(volumes, volumeSMAPeriod)),
	}

	macd, signal, hist := talib.Macd(closes, macdFastPeriod, macdSlowPeriod, macdSignalSpan)
	ind.MACD = sanitize(macd)
	ind.MACDSignal = sanitize(signal)
	ind.MACDHist = sanitize(hist)

	upper, middle, lower := talib.BBands(closes, bbandsPeriod, bbandsDeviation, bbandsDeviation, talib.SMA)
	ind.BBUpper = sanitize(upper)
	ind.BBMiddle = sanitize(middle)
	ind.BBLower = sanitize(lower)

	k, d := talib.Stoch(highs, lows, closes, stochFastK, stochSlowK, talib.SMA, stochSlowD, talib.SMA)
	ind.StochK = sanitize(k)
	ind.StochD = sanitize(d)

	return ind, nil
}

// sanitize 将 NaN/Inf 归零，避免污染后续打分。
func sanitize(series []float64) []float64 {
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			series[i] = 0
		}
	}
	return series
}
