package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketmind/internal/decision"
	"marketmind/internal/market"
	"marketmind/internal/risk"
)

func TestRiskAdjustedAction(t *testing.T) {
	cases := []struct {
		name       string
		metrics    risk.Metrics
		action     string
		confidence float64
	}{
		{"very high risk forces sell", risk.Metrics{PortfolioRisk: 0.85}, decision.ActionSell, 0.8},
		{"high risk low cash sells", risk.Metrics{PortfolioRisk: 0.7, CashRatio: 0.1}, decision.ActionSell, 0.6},
		{"high risk with cash holds", risk.Metrics{PortfolioRisk: 0.7, CashRatio: 0.3}, decision.ActionHold, 0.4},
		{"low risk allows buy", risk.Metrics{PortfolioRisk: 0.2, PositionRisk: 0.3}, decision.ActionBuy, 0.5},
		{"low portfolio but risky asset holds", risk.Metrics{PortfolioRisk: 0.2, PositionRisk: 0.5}, decision.ActionHold, 0.3},
		{"medium risk holds", risk.Metrics{PortfolioRisk: 0.45}, decision.ActionHold, 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, confidence := riskAdjustedAction(tc.metrics)
			assert.Equal(t, tc.action, action)
			assert.InDelta(t, tc.confidence, confidence, 1e-9)
		})
	}
}

func TestRiskAdjustedPositionSize(t *testing.T) {
	t.Run("multiplicative dampening", func(t *testing.T) {
		size := riskAdjustedPositionSize(risk.Metrics{
			PortfolioRisk: 0.7,
			PositionRisk:  0.7,
			CashRatio:     0.05,
		})
		// 0.05 × 0.5 × 0.7 × 0.3
		assert.InDelta(t, 0.00525, size, 1e-9)
	})
	t.Run("scaling up stays capped", func(t *testing.T) {
		size := riskAdjustedPositionSize(risk.Metrics{
			PortfolioRisk: 0.1,
			PositionRisk:  0.2,
			CashRatio:     0.8,
		})
		// 0.05 × 1.2 × 1.1
		assert.InDelta(t, 0.066, size, 1e-9)
	})
}

type stubSectors map[string]string

func (s stubSectors) SectorOf(symbol string) string { return s[symbol] }

type stubPairs [][2]string

func (s stubPairs) CorrelatedPairs() [][2]string { return s }

func TestRiskAnalyzeEmptyPortfolio(t *testing.T) {
	scorer := risk.NewScorer(stubSectors{}, stubPairs{}, 0.3)
	ag := NewRisk(SizingConfig{}, scorer, nil)

	sig, err := ag.Analyze(context.Background(), market.Snapshot{Symbol: "AAPL"}, decision.PortfolioSnapshot{})

	assert.NoError(t, err)
	// 空组合视为全现金，组合风险被现金折减压低到 hold 区间。
	assert.Equal(t, decision.ActionHold, sig.Action)
	assert.Contains(t, sig.Reasoning, "Overall portfolio risk")
	assert.Contains(t, sig.Reasoning, "High cash reserves")
	assert.Equal(t, 1, ag.Metrics().TotalSignals)
}
