package decision

import "time"

// 中文说明：
// 本文件定义信号与共识相关的通用数据结构，供各 agent 与聚合器使用。

// 交易动作取值。
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// TradingSignal 单个 agent 的一次分析输出。创建后不可变。
type TradingSignal struct {
	Symbol       string    `json:"symbol"`
	Action       string    `json:"action"`
	Confidence   float64   `json:"confidence"`
	Reasoning    string    `json:"reasoning"`
	TargetPrice  float64   `json:"target_price,omitempty"`
	StopLoss     float64   `json:"stop_loss,omitempty"`
	PositionSize float64   `json:"position_size,omitempty"` // 占组合总值的比例
	CreatedAt    time.Time `json:"created_at"`
}

// ConsensusResult 多 agent 加权共识。
// Agreement 基于原始动作的多数票比例，与加权胜者相互独立，两者可能不一致。
type ConsensusResult struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Agreement  float64 `json:"agreement"`
	BuyScore   float64 `json:"buy_score"`
	SellScore  float64 `json:"sell_score"`
	HoldScore  float64 `json:"hold_score"`
}

// PositionSnapshot 当前持仓的最小视图。
type PositionSnapshot struct {
	Symbol      string  `json:"symbol"`
	MarketValue float64 `json:"market_value"`
}

// PortfolioSnapshot 组合快照，由持仓服务提供。
type PortfolioSnapshot struct {
	TotalValue  float64            `json:"total_value"`
	CashBalance float64            `json:"cash_balance"`
	Positions   []PositionSnapshot `json:"positions"`
}

// AgentMetrics 单个 agent 的历史表现统计。
type AgentMetrics struct {
	TotalSignals   int       `json:"total_signals"`
	AvgConfidence  float64   `json:"avg_confidence"`
	RecentSignals  int       `json:"recent_signals"`
	LastSignalTime time.Time `json:"last_signal_time,omitzero"`
}

// AnalysisResult 单 symbol 一轮完整分析的产出。
type AnalysisResult struct {
	TraceID      string                   `json:"trace_id"`
	Symbol       string                   `json:"symbol"`
	CurrentPrice float64                  `json:"current_price"`
	Signals      map[string]TradingSignal `json:"signals"`
	Errors       map[string]string        `json:"errors,omitempty"`
	Consensus    ConsensusResult          `json:"consensus"`
	AnalyzedAt   time.Time                `json:"analyzed_at"`
}
