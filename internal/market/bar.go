package market

import "time"

// Bar 单根 OHLCV K线。序列按时间升序排列，最新一根在末尾。
type Bar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Quote 实时行情快照，与历史K线分开获取。
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Volume        float64   `json:"volume"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Timestamp     time.Time `json:"timestamp"`
}

// Indicators 与 Bars 一一对齐的指标列。前导若干元素可能为 0（窗口未满）。
type Indicators struct {
	SMA20      []float64 `json:"sma_20"`
	SMA50      []float64 `json:"sma_50"`
	EMA12      []float64 `json:"ema_12"`
	EMA26      []float64 `json:"ema_26"`
	MACD       []float64 `json:"macd"`
	MACDSignal []float64 `json:"macd_signal"`
	MACDHist   []float64 `json:"macd_hist"`
	RSI        []float64 `json:"rsi"`
	BBUpper    []float64 `json:"bb_upper"`
	BBMiddle   []float64 `json:"bb_middle"`
	BBLower    []float64 `json:"bb_lower"`
	StochK     []float64 `json:"stoch_k"`
	StochD     []float64 `json:"stoch_d"`
	VolumeSMA  []float64 `json:"volume_sma"`
}

// Snapshot 提供给各 agent 的完整市场视图。
// Invariant: 任何需要指标信号的 agent 在使用前 Indicators 必须已填充并与 Bars 对齐。
type Snapshot struct {
	Symbol     string
	Bars       []Bar
	Indicators *Indicators
	Quote      Quote
}

// LastBar 返回最新一根K线；序列为空时返回零值与 false。
func (s Snapshot) LastBar() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// PrevBar 返回倒数第二根K线；不足两根时回退到最新一根。
func (s Snapshot) PrevBar() (Bar, bool) {
	switch n := len(s.Bars); {
	case n >= 2:
		return s.Bars[n-2], true
	case n == 1:
		return s.Bars[0], true
	default:
		return Bar{}, false
	}
}

// LastPrice 返回最新收盘价；无K线时退回 Quote.Price。
func (s Snapshot) LastPrice() float64 {
	if bar, ok := s.LastBar(); ok {
		return bar.Close
	}
	return s.Quote.Price
}

// Closes 返回收盘价序列。
func (s Snapshot) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Returns 返回相邻收盘价的简单收益率序列（长度 = len(Bars)-1）。
// 前一收盘价为 0 的位置被跳过，避免除零。
func (s Snapshot) Returns() []float64 {
	if len(s.Bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(s.Bars)-1)
	for i := 1; i < len(s.Bars); i++ {
		prev := s.Bars[i-1].Close
		if prev == 0 {
			continue
		}
		out = append(out, (s.Bars[i].Close-prev)/prev)
	}
	return out
}
