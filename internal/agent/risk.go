package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketmind/internal/decision"
	"marketmind/internal/market"
	"marketmind/internal/risk"
)

// riskBaseFraction 风险 agent 的基准仓位：组合总值的 5%，
// 再按各风险因子乘法叠加调整。
const riskBaseFraction = 0.05

// Risk 风险管理 agent：独立于技术/情绪路径，从组合与波动率
// 出发给出保守的风险调整动作与仓位。
type Risk struct {
	Base
	scorer *risk.Scorer
}

func NewRisk(sizing SizingConfig, scorer *risk.Scorer, commentator Commentator) *Risk {
	return &Risk{Base: newBase("risk", sizing, commentator), scorer: scorer}
}

func (a *Risk) Analyze(ctx context.Context, snap market.Snapshot, portfolio decision.PortfolioSnapshot) (decision.TradingSignal, error) {
	currentPrice := snap.LastPrice()
	metrics := a.scorer.Compute(snap.Symbol, snap, portfolio)
	action, confidence := riskAdjustedAction(metrics)
	reasoning := a.reasoning(metrics)

	prompt := fmt.Sprintf(`Risk analysis for %s:
Current Price: $%.2f
Portfolio Risk Score: %.2f
Position Risk: %.2f
Volatility: %.2f
Sector Concentration: %.2f
Cash Ratio: %.2f

Recommended Action: %s
Risk Level: %s

Provide risk management recommendations and position sizing guidance.`,
		snap.Symbol, currentPrice,
		metrics.PortfolioRisk, metrics.PositionRisk, metrics.Volatility,
		metrics.SectorRisk, metrics.CashRatio, action, metrics.OverallRiskLevel)

	sig := decision.TradingSignal{
		Symbol:       snap.Symbol,
		Action:       action,
		Confidence:   confidence,
		Reasoning:    a.withCommentary(ctx, reasoning, prompt),
		TargetPrice:  a.takeProfitPrice(currentPrice, action),
		StopLoss:     a.stopLossPrice(currentPrice, action),
		PositionSize: riskAdjustedPositionSize(metrics),
		CreatedAt:    time.Now(),
	}
	a.Record(sig)
	return sig, nil
}

// riskAdjustedAction 刻意保守的有序判定。
func riskAdjustedAction(m risk.Metrics) (string, float64) {
	switch {
	case m.PortfolioRisk > 0.8:
		// 风险过高只允许减仓。
		return decision.ActionSell, 0.8
	case m.PortfolioRisk > 0.6:
		if m.CashRatio < 0.2 {
			return decision.ActionSell, 0.6
		}
		return decision.ActionHold, 0.4
	case m.PortfolioRisk < 0.3 && m.PositionRisk < 0.4:
		return decision.ActionBuy, 0.5
	default:
		return decision.ActionHold, 0.3
	}
}

// riskAdjustedPositionSize 基准 5% 仓位按风险因子乘法叠加，带硬上限。
func riskAdjustedPositionSize(m risk.Metrics) float64 {
	size := riskBaseFraction
	switch {
	case m.PortfolioRisk > 0.6:
		size *= 0.5
	case m.PortfolioRisk < 0.3:
		size *= 1.2
	}
	if m.PositionRisk > 0.6 {
		size *= 0.7
	}
	switch {
	case m.CashRatio < 0.1:
		size *= 0.3
	case m.CashRatio > 0.5:
		size *= 1.1
	}
	if size > positionSizeCap {
		size = positionSizeCap
	}
	return size
}

func (a *Risk) reasoning(m risk.Metrics) string {
	parts := []string{fmt.Sprintf("Overall portfolio risk: %s (%.2f)", m.OverallRiskLevel, m.PortfolioRisk)}
	switch {
	case m.ConcentrationRisk > 0.7:
		parts = append(parts, "High portfolio concentration detected")
	case m.ConcentrationRisk < 0.3:
		parts = append(parts, "Portfolio well diversified")
	}
	if m.SectorRisk > 0.7 {
		parts = append(parts, "High sector concentration risk")
	}
	switch {
	case m.Volatility > 0.7:
		parts = append(parts, fmt.Sprintf("High volatility asset (%.2f)", m.Volatility))
	case m.Volatility < 0.3:
		parts = append(parts, "Low volatility asset")
	}
	switch {
	case m.CashRatio < 0.1:
		parts = append(parts, "Low cash reserves - consider reducing exposure")
	case m.CashRatio > 0.5:
		parts = append(parts, "High cash reserves - opportunity for deployment")
	}
	return strings.Join(parts, ". ")
}
