package decision

// Aggregator 将多个 agent 的信号按权重合成一个共识结论。
// 无状态：输出只取决于输入信号与配置权重。
type Aggregator struct {
	weights       map[string]float64
	defaultWeight float64
}

// NewAggregator 构建聚合器。weights 按 agent 名称配置；
// 未列出的 agent 使用 defaultWeight（<=0 时取 0.5）。
func NewAggregator(weights map[string]float64, defaultWeight float64) *Aggregator {
	if defaultWeight <= 0 {
		defaultWeight = 0.5
	}
	w := make(map[string]float64, len(weights))
	for name, v := range weights {
		if v > 0 {
			w[name] = v
		}
	}
	return &Aggregator{weights: w, defaultWeight: defaultWeight}
}

// Aggregate 计算加权共识。约定：
//   - 输入为空（全部 agent 出错）时返回 hold/0/0；
//   - 加权胜者需要严格大于其余两个分数，并列时落到 hold；
//   - Agreement 由原始动作的多数票独立计算，可能与加权胜者不一致。
func (a *Aggregator) Aggregate(signals map[string]TradingSignal) ConsensusResult {
	if len(signals) == 0 {
		return ConsensusResult{Action: ActionHold}
	}

	var buyScore, sellScore, holdScore, totalWeight float64
	actionCounts := make(map[string]int, 3)
	for name, sig := range signals {
		weight, ok := a.weights[name]
		if !ok {
			weight = a.defaultWeight
		}
		switch sig.Action {
		case ActionBuy:
			buyScore += weight * sig.Confidence
		case ActionSell:
			sellScore += weight * sig.Confidence
		default:
			holdScore += weight * sig.Confidence
		}
		totalWeight += weight
		actionCounts[normalizeAction(sig.Action)]++
	}
	if totalWeight > 0 {
		buyScore /= totalWeight
		sellScore /= totalWeight
		holdScore /= totalWeight
	}

	action, confidence := ActionHold, holdScore
	switch {
	case buyScore > sellScore && buyScore > holdScore:
		action, confidence = ActionBuy, buyScore
	case sellScore > buyScore && sellScore > holdScore:
		action, confidence = ActionSell, sellScore
	}

	majority := 0
	for _, n := range actionCounts {
		if n > majority {
			majority = n
		}
	}

	return ConsensusResult{
		Action:     action,
		Confidence: confidence,
		Agreement:  float64(majority) / float64(len(signals)),
		BuyScore:   buyScore,
		SellScore:  sellScore,
		HoldScore:  holdScore,
	}
}

func normalizeAction(action string) string {
	switch action {
	case ActionBuy, ActionSell:
		return action
	default:
		return ActionHold
	}
}
