package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"marketmind/internal/analysis/indicator"
	"marketmind/internal/logger"
	"marketmind/internal/market"
)

// Agent 统一的分析器契约：一次调用产出一个完整信号。
// 打分过程必须是纯同步计算，外部抓取（新闻、LLM）自带超时。
type Agent interface {
	Name() string
	Analyze(ctx context.Context, snap market.Snapshot, portfolio PortfolioSnapshot) (TradingSignal, error)
	Metrics() AgentMetrics
}

// PortfolioProvider 提供组合快照。
type PortfolioProvider interface {
	Snapshot(ctx context.Context) (PortfolioSnapshot, error)
}

// Recorder 持久化一轮分析结果（尽力而为，失败不影响返回）。
type Recorder interface {
	RecordAnalysis(ctx context.Context, result AnalysisResult) error
}

// EngineConfig 控制数据窗口与并发度。
type EngineConfig struct {
	Interval       string
	SeriesLimit    int
	MaxConcurrency int
	FetchTimeout   time.Duration
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Interval == "" {
		c.Interval = "1h"
	}
	if c.SeriesLimit <= 0 {
		c.SeriesLimit = 120
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	return c
}

// Engine 编排一个 symbol 的完整分析：行情 → 各 agent → 共识。
// agent 打分相互独立，单个 agent 出错只会从共识中剔除，不中断其余 agent。
type Engine struct {
	source     market.Source
	portfolio  PortfolioProvider
	agents     []Agent
	aggregator *Aggregator
	recorder   Recorder
	cfg        EngineConfig
}

func NewEngine(source market.Source, portfolio PortfolioProvider, agents []Agent, aggregator *Aggregator, recorder Recorder, cfg EngineConfig) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("market source is required")
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("at least one agent is required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	return &Engine{
		source:     source,
		portfolio:  portfolio,
		agents:     agents,
		aggregator: aggregator,
		recorder:   recorder,
		cfg:        cfg.withDefaults(),
	}, nil
}

// Analyze 对单个 symbol 执行一轮分析。
// 行情为空不视为致命错误：各 agent 自行降级为 hold/0。
func (e *Engine) Analyze(ctx context.Context, symbol string) (AnalysisResult, error) {
	if symbol == "" {
		return AnalysisResult{}, fmt.Errorf("symbol is required")
	}
	traceID := uuid.NewString()

	snap, err := e.fetchSnapshot(ctx, symbol)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("fetching market data for %s: %w", symbol, err)
	}

	portfolio := PortfolioSnapshot{}
	if e.portfolio != nil {
		if portfolio, err = e.portfolio.Snapshot(ctx); err != nil {
			logger.Warnf("portfolio snapshot unavailable, using empty: %v", err)
			portfolio = PortfolioSnapshot{}
		}
	}

	result := AnalysisResult{
		TraceID:      traceID,
		Symbol:       symbol,
		CurrentPrice: snap.LastPrice(),
		Signals:      make(map[string]TradingSignal, len(e.agents)),
		Errors:       make(map[string]string),
		AnalyzedAt:   time.Now(),
	}
	for _, ag := range e.agents {
		sig, err := ag.Analyze(ctx, snap, portfolio)
		if err != nil {
			logger.Warnf("[%s] agent %s failed: %v", traceID, ag.Name(), err)
			result.Errors[ag.Name()] = err.Error()
			continue
		}
		result.Signals[ag.Name()] = sig
	}
	result.Consensus = e.aggregator.Aggregate(result.Signals)

	if e.recorder != nil {
		if err := e.recorder.RecordAnalysis(ctx, result); err != nil {
			logger.Warnf("[%s] recording analysis failed: %v", traceID, err)
		}
	}
	logger.Infof("[%s] %s consensus=%s confidence=%.2f agreement=%.2f",
		traceID, symbol, result.Consensus.Action, result.Consensus.Confidence, result.Consensus.Agreement)
	return result, nil
}

// AnalyzeAll 并发分析多个 symbol。symbol 之间无共享可变状态，
// 各 agent 的历史追加由 agent 自身互斥保护。
func (e *Engine) AnalyzeAll(ctx context.Context, symbols []string) ([]AnalysisResult, error) {
	results := make([]AnalysisResult, len(symbols))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.MaxConcurrency)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		group.Go(func() error {
			res, err := e.Analyze(ctx, symbol)
			if err != nil {
				// 单个 symbol 失败不终止整批，返回空结果占位。
				logger.Errorf("analysis failed for %s: %v", symbol, err)
				res = AnalysisResult{Symbol: symbol, Errors: map[string]string{"engine": err.Error()}}
				res.Consensus = ConsensusResult{Action: ActionHold}
			}
			results[i] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// AgentMetrics 汇总所有 agent 的表现统计。
func (e *Engine) AgentMetrics() map[string]AgentMetrics {
	out := make(map[string]AgentMetrics, len(e.agents))
	for _, ag := range e.agents {
		out[ag.Name()] = ag.Metrics()
	}
	return out
}

func (e *Engine) fetchSnapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	bars, err := e.source.FetchSeries(fetchCtx, symbol, e.cfg.Interval, e.cfg.SeriesLimit)
	if err != nil {
		return market.Snapshot{}, err
	}
	snap := market.Snapshot{Symbol: symbol, Bars: bars}
	if len(bars) > 0 {
		ind, err := indicator.Enrich(bars)
		if err != nil {
			return market.Snapshot{}, fmt.Errorf("computing indicators: %w", err)
		}
		snap.Indicators = ind
	}
	quote, err := e.source.FetchQuote(fetchCtx, symbol)
	if err != nil {
		// 实时行情缺失可以用最后收盘价兜底，不算失败。
		logger.Debugf("quote unavailable for %s: %v", symbol, err)
	} else {
		snap.Quote = quote
	}
	return snap, nil
}
