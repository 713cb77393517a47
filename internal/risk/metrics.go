package risk

import (
	"math"

	"marketmind/internal/decision"
	"marketmind/internal/market"
)

// 中文说明：
// 风险度量与组合风险评分。全部输出限定在 [0,1]，
// 行业与相关性信息通过可插拔查表接口注入。

// 风险等级阈值与归一化上限。
const (
	tradingDaysPerYear = 252

	positionVolCeiling   = 0.5 // 年化波动率 50% 记为满格仓位风险
	volatilityVolCeiling = 0.6 // 年化波动率 60% 记为满格波动风险
	atrPeriod            = 14

	correlatedPairPenalty = 0.2

	cashRiskDiscount = 0.3 // 现金比例对组合风险的最大折减

	levelLowMax    = 0.3
	levelMediumMax = 0.6
	levelHighMax   = 0.8
)

// 组合风险合成权重。
var compositeWeights = map[string]float64{
	"concentration": 0.25,
	"sector":        0.20,
	"position":      0.20,
	"volatility":    0.20,
	"correlation":   0.15,
}

// SectorLookup 返回 symbol 所属行业。
type SectorLookup interface {
	SectorOf(symbol string) string
}

// CorrelationLookup 返回已知高相关的 symbol 对。
type CorrelationLookup interface {
	CorrelatedPairs() [][2]string
}

// Metrics 一次风险评估的全部度量。每次分析现算，引擎自身不持久化。
type Metrics struct {
	CashRatio         float64 `json:"cash_ratio"`
	ConcentrationRisk float64 `json:"concentration_risk"`
	SectorRisk        float64 `json:"sector_risk"`
	PositionRisk      float64 `json:"position_risk"`
	Volatility        float64 `json:"volatility"`
	CorrelationRisk   float64 `json:"correlation_risk"`
	PortfolioRisk     float64 `json:"portfolio_risk"`
	OverallRiskLevel  string  `json:"overall_risk_level"`
}

// Scorer 计算组合与单标的的风险度量。
type Scorer struct {
	sectors             SectorLookup
	correlations        CorrelationLookup
	maxSectorAllocation float64
}

func NewScorer(sectors SectorLookup, correlations CorrelationLookup, maxSectorAllocation float64) *Scorer {
	if maxSectorAllocation <= 0 {
		maxSectorAllocation = 0.3
	}
	return &Scorer{
		sectors:             sectors,
		correlations:        correlations,
		maxSectorAllocation: maxSectorAllocation,
	}
}

// Compute 针对候选 symbol 计算全套风险度量。
func (s *Scorer) Compute(symbol string, snap market.Snapshot, portfolio decision.PortfolioSnapshot) Metrics {
	m := Metrics{}
	if portfolio.TotalValue > 0 {
		m.CashRatio = portfolio.CashBalance / portfolio.TotalValue
	} else {
		m.CashRatio = 1.0
	}
	m.ConcentrationRisk = ConcentrationRisk(portfolio.Positions, portfolio.TotalValue)
	m.SectorRisk = s.sectorRisk(portfolio.Positions)
	m.PositionRisk = positionRisk(snap)
	m.Volatility = volatilityRisk(snap)
	m.CorrelationRisk = s.correlationRisk(symbol, portfolio.Positions)
	m.PortfolioRisk = compositeRisk(m)
	m.OverallRiskLevel = ClassifyLevel(m.PortfolioRisk)
	return m
}

// ConcentrationRisk 归一化 Herfindahl 指数：单一持仓=1，均匀分散趋近 0。
func ConcentrationRisk(positions []decision.PositionSnapshot, totalValue float64) float64 {
	if len(positions) == 0 || totalValue <= 0 {
		return 0
	}
	var sum float64
	for _, pos := range positions {
		w := pos.MarketValue / totalValue
		sum += w * w
	}
	minConcentration := 1.0 / float64(len(positions))
	if minConcentration >= 1.0 {
		return 1.0
	}
	return clamp01((sum - minConcentration) / (1.0 - minConcentration))
}

// sectorRisk 最大单一行业占比相对配置上限的比例。
func (s *Scorer) sectorRisk(positions []decision.PositionSnapshot) float64 {
	if len(positions) == 0 {
		return 0
	}
	var total float64
	for _, pos := range positions {
		total += pos.MarketValue
	}
	if total <= 0 {
		return 0
	}
	allocation := make(map[string]float64)
	for _, pos := range positions {
		sector := "Other"
		if s.sectors != nil {
			if v := s.sectors.SectorOf(pos.Symbol); v != "" {
				sector = v
			}
		}
		allocation[sector] += pos.MarketValue / total
	}
	var maxShare float64
	for _, share := range allocation {
		if share > maxShare {
			maxShare = share
		}
	}
	return math.Min(1.0, maxShare/s.maxSectorAllocation)
}

// positionRisk 基于年化收益波动率；数据不足视为高风险。
func positionRisk(snap market.Snapshot) float64 {
	returns := snap.Returns()
	if len(returns) < 2 {
		return 1.0
	}
	annualized := sampleStd(returns) * math.Sqrt(tradingDaysPerYear)
	return math.Min(1.0, annualized/positionVolCeiling)
}

// volatilityRisk 标准差与 ATR 两种口径的简单平均；不足 20 根K线时给中性值。
func volatilityRisk(snap market.Snapshot) float64 {
	if len(snap.Bars) < 20 {
		return 0.5
	}
	returns := snap.Returns()
	if len(returns) < 2 {
		return 0.5
	}
	stdVol := sampleStd(returns) * math.Sqrt(tradingDaysPerYear)
	atrVol := atrVolatility(snap.Bars)
	if atrVol == 0 {
		atrVol = stdVol
	}
	combined := (stdVol + atrVol) / 2
	return math.Min(1.0, combined/volatilityVolCeiling)
}

// atrVolatility 最近 14 根真实波幅均值除以最新收盘价。
func atrVolatility(bars []market.Bar) float64 {
	if len(bars) < atrPeriod+1 {
		return 0
	}
	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		trs = append(trs, math.Max(hl, math.Max(hc, lc)))
	}
	var sum float64
	for _, tr := range trs[len(trs)-atrPeriod:] {
		sum += tr
	}
	atr := sum / atrPeriod
	lastClose := bars[len(bars)-1].Close
	if lastClose <= 0 {
		return 0
	}
	return atr / lastClose
}

// correlationRisk 候选 symbol 与现有持仓命中已知高相关对时累加惩罚。
func (s *Scorer) correlationRisk(symbol string, positions []decision.PositionSnapshot) float64 {
	if len(positions) == 0 || s.correlations == nil {
		return 0
	}
	held := make(map[string]bool, len(positions))
	for _, pos := range positions {
		held[pos.Symbol] = true
	}
	var total float64
	for _, pair := range s.correlations.CorrelatedPairs() {
		if (pair[0] == symbol && held[pair[1]]) || (pair[1] == symbol && held[pair[0]]) {
			total += correlatedPairPenalty
		}
	}
	return math.Min(1.0, total)
}

// compositeRisk 加权合成后按现金比例折减，结果限定在 [0,1]。
func compositeRisk(m Metrics) float64 {
	score := m.ConcentrationRisk*compositeWeights["concentration"] +
		m.SectorRisk*compositeWeights["sector"] +
		m.PositionRisk*compositeWeights["position"] +
		m.Volatility*compositeWeights["volatility"] +
		m.CorrelationRisk*compositeWeights["correlation"]
	adjusted := score * (1.0 - m.CashRatio*cashRiskDiscount)
	return clamp01(adjusted)
}

// ClassifyLevel 固定阈值的风险分级。
func ClassifyLevel(score float64) string {
	switch {
	case score < levelLowMax:
		return "Low"
	case score < levelMediumMax:
		return "Medium"
	case score < levelHighMax:
		return "High"
	default:
		return "Very High"
	}
}

// sampleStd 样本标准差（n-1）。
func sampleStd(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= n
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / (n - 1))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
