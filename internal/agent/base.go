package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketmind/internal/decision"
	"marketmind/internal/logger"
)

// 中文说明：
// Base 是所有 agent 的公共骨架：有界信号历史、表现统计、
// 仓位/止损/止盈计算，以及可选的 LLM 补充评述。

// historyLimit 每个 agent 只保留最近 100 条信号，旧的先淘汰。
const historyLimit = 100

// positionSizeCap 仓位比例硬上限。
const positionSizeCap = 0.2

// Commentator 可选的叙述性评述来源（LLM）。
// 失败只会降级为内联错误文本，绝不影响 action/confidence/position_size。
type Commentator interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// SizingConfig 仓位与风控价位的固定参数。
type SizingConfig struct {
	StopLossPct         float64 // 默认 0.05
	TakeProfitPct       float64 // 默认 0.15
	MaxPositionFraction float64 // 默认 0.10
}

func (c SizingConfig) withDefaults() SizingConfig {
	if c.StopLossPct <= 0 {
		c.StopLossPct = 0.05
	}
	if c.TakeProfitPct <= 0 {
		c.TakeProfitPct = 0.15
	}
	if c.MaxPositionFraction <= 0 {
		c.MaxPositionFraction = 0.10
	}
	return c
}

// SignalRecord 历史中的一条摘要记录。
type SignalRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"`
	Confidence float64   `json:"confidence"`
}

// Base 各 agent 内嵌的公共实现。历史追加用互斥锁保护，
// 支持多个 symbol 并发分析共用同一 agent 单例。
type Base struct {
	name        string
	sizing      SizingConfig
	commentator Commentator

	mu               sync.Mutex
	history          []SignalRecord
	signalsGenerated int
	totalConfidence  float64
}

func newBase(name string, sizing SizingConfig, commentator Commentator) Base {
	return Base{name: name, sizing: sizing.withDefaults(), commentator: commentator}
}

func (b *Base) Name() string { return b.name }

// Record 将一条完整构造好的信号追加进历史。超过上限时淘汰最旧一条。
func (b *Base) Record(sig decision.TradingSignal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signalsGenerated++
	b.totalConfidence += sig.Confidence
	b.history = append(b.history, SignalRecord{
		Timestamp:  sig.CreatedAt,
		Symbol:     sig.Symbol,
		Action:     sig.Action,
		Confidence: sig.Confidence,
	})
	if len(b.history) > historyLimit {
		b.history = append(b.history[:0], b.history[len(b.history)-historyLimit:]...)
	}
}

// Metrics 返回当前表现统计。
func (b *Base) Metrics() decision.AgentMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := decision.AgentMetrics{
		TotalSignals:  b.signalsGenerated,
		RecentSignals: len(b.history),
	}
	if b.signalsGenerated > 0 {
		m.AvgConfidence = b.totalConfidence / float64(b.signalsGenerated)
	}
	if len(b.history) > 0 {
		m.LastSignalTime = b.history[len(b.history)-1].Timestamp
	}
	return m
}

// History 返回历史记录的副本（时间升序）。
func (b *Base) History() []SignalRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]SignalRecord, len(b.history))
	copy(out, b.history)
	return out
}

// positionSize 基于置信度的仓位比例（占组合总值），带硬上限。
func (b *Base) positionSize(confidence float64) float64 {
	size := b.sizing.MaxPositionFraction * confidence
	if size < 0 {
		return 0
	}
	if size > positionSizeCap {
		return positionSizeCap
	}
	return size
}

// stopLossPrice 买入放在价格下方，卖出放在上方，hold 原价。
func (b *Base) stopLossPrice(price float64, action string) float64 {
	switch action {
	case decision.ActionBuy:
		return price * (1 - b.sizing.StopLossPct)
	case decision.ActionSell:
		return price * (1 + b.sizing.StopLossPct)
	default:
		return price
	}
}

func (b *Base) takeProfitPrice(price float64, action string) float64 {
	switch action {
	case decision.ActionBuy:
		return price * (1 + b.sizing.TakeProfitPct)
	case decision.ActionSell:
		return price * (1 - b.sizing.TakeProfitPct)
	default:
		return price
	}
}

// commentary 调用 LLM 生成补充评述。失败降级为内联错误文本。
func (b *Base) commentary(ctx context.Context, prompt string) string {
	if b.commentator == nil {
		return ""
	}
	text, err := b.commentator.Summarize(ctx, prompt)
	if err != nil {
		logger.Debugf("agent %s commentary failed: %v", b.name, err)
		return fmt.Sprintf("AI analysis error: %v", err)
	}
	return text
}

// withCommentary 拼接基础推理与 LLM 评述。
func (b *Base) withCommentary(ctx context.Context, reasoning, prompt string) string {
	comment := b.commentary(ctx, prompt)
	if comment == "" {
		return reasoning
	}
	return reasoning + "\n\nAI Analysis: " + comment
}

// scoreAction 共享的动作推导：|score| <= 0.3 一律 hold（边界取 hold）。
// confScale 用于缩放买卖方向的置信度，holdConfidence 为刻意压低的固定值。
func scoreAction(score, confScale, holdConfidence float64) (string, float64) {
	abs := score
	if abs < 0 {
		abs = -abs
	}
	confidence := abs * confScale
	if confidence > 0.9 {
		confidence = 0.9
	}
	switch {
	case score > 0.3:
		return decision.ActionBuy, confidence
	case score < -0.3:
		return decision.ActionSell, confidence
	default:
		return decision.ActionHold, holdConfidence
	}
}
