package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateEmptySignals(t *testing.T) {
	agg := NewAggregator(nil, 0)
	res := agg.Aggregate(nil)
	assert.Equal(t, ActionHold, res.Action)
	assert.Zero(t, res.Confidence)
	assert.Zero(t, res.Agreement)
}

func TestAggregateSingleAgent(t *testing.T) {
	agg := NewAggregator(map[string]float64{"technical": 1.0}, 0.5)
	res := agg.Aggregate(map[string]TradingSignal{
		"technical": {Action: ActionBuy, Confidence: 0.8},
	})
	assert.Equal(t, ActionBuy, res.Action)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.InDelta(t, 1.0, res.Agreement, 1e-9)
}

func TestAggregateWeightedWinner(t *testing.T) {
	agg := NewAggregator(map[string]float64{
		"technical": 2.0,
		"sentiment": 1.0,
		"risk":      1.0,
	}, 0.5)
	res := agg.Aggregate(map[string]TradingSignal{
		"technical": {Action: ActionBuy, Confidence: 0.9},
		"sentiment": {Action: ActionSell, Confidence: 0.6},
		"risk":      {Action: ActionHold, Confidence: 0.3},
	})
	// buy: 2*0.9/4=0.45, sell: 1*0.6/4=0.15, hold: 1*0.3/4=0.075
	assert.Equal(t, ActionBuy, res.Action)
	assert.InDelta(t, 0.45, res.Confidence, 1e-9)
	assert.InDelta(t, 0.45, res.BuyScore, 1e-9)
	assert.InDelta(t, 0.15, res.SellScore, 1e-9)
	assert.InDelta(t, 0.075, res.HoldScore, 1e-9)
	// 三个动作各一票，多数票比例 1/3。
	assert.InDelta(t, 1.0/3.0, res.Agreement, 1e-9)
}

func TestAggregateTieFallsToHold(t *testing.T) {
	agg := NewAggregator(nil, 1.0)
	res := agg.Aggregate(map[string]TradingSignal{
		"a": {Action: ActionBuy, Confidence: 0.5},
		"b": {Action: ActionSell, Confidence: 0.5},
	})
	assert.Equal(t, ActionHold, res.Action)
	assert.Zero(t, res.Confidence)
	assert.InDelta(t, 0.5, res.Agreement, 1e-9)
}

func TestAggregateDefaultWeightForUnknownAgent(t *testing.T) {
	agg := NewAggregator(map[string]float64{"technical": 1.0}, 0.5)
	res := agg.Aggregate(map[string]TradingSignal{
		"technical": {Action: ActionBuy, Confidence: 0.4},
		"mystery":   {Action: ActionSell, Confidence: 0.9},
	})
	// buy: 1*0.4/1.5 ≈ 0.267, sell: 0.5*0.9/1.5 = 0.3
	assert.Equal(t, ActionSell, res.Action)
	assert.InDelta(t, 0.3, res.Confidence, 1e-9)
}

func TestAggregateAgreementIndependentOfWeights(t *testing.T) {
	// 多数票 sell，但加权胜者 buy：两个口径允许不一致。
	agg := NewAggregator(map[string]float64{
		"a": 10.0,
		"b": 0.1,
		"c": 0.1,
	}, 0.5)
	res := agg.Aggregate(map[string]TradingSignal{
		"a": {Action: ActionBuy, Confidence: 0.9},
		"b": {Action: ActionSell, Confidence: 0.9},
		"c": {Action: ActionSell, Confidence: 0.9},
	})
	assert.Equal(t, ActionBuy, res.Action)
	assert.InDelta(t, 2.0/3.0, res.Agreement, 1e-9)
}
