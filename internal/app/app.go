package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"marketmind/internal/config"
	"marketmind/internal/decision"
	"marketmind/internal/logger"
	"marketmind/internal/portfolio"
	"marketmind/internal/refdata"
	"marketmind/internal/scheduler"
	"marketmind/internal/store/signallog"
	"marketmind/internal/store/sqlite"
	apihttp "marketmind/internal/transport/http"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与调度服务。
type App struct {
	cfg       *config.Config
	engine    *decision.Engine
	portfolio *portfolio.Service
	refdata   *refdata.Table
	store     *sqlite.Store
	signals   *signallog.Store
	server    *apihttp.Server
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return NewAppBuilder(cfg).Build()
}

// Engine 暴露决策引擎（测试与回放用）。
func (a *App) Engine() *decision.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Run 启动 HTTP 服务、参考数据热加载与周期分析，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infof("HTTP API listening on %s", a.server.Addr())
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return a.refdata.Watch(ctx)
	})

	if a.cfg.Scheduler.Enabled {
		sched := scheduler.New()
		if err := sched.Register(a.cfg.Scheduler.Cron, a.watchlistTask(ctx)); err != nil {
			return err
		}
		logger.Infof("✓ watchlist analysis scheduled (%s): %v", a.cfg.Scheduler.Cron, a.cfg.Scheduler.Watchlist)
		group.Go(func() error {
			return sched.Run(ctx)
		})
	}

	return group.Wait()
}

// watchlistTask 周期性分析关注列表；开启 auto_execute 时按共识下纸面单。
func (a *App) watchlistTask(ctx context.Context) func() {
	return func() {
		results, err := a.engine.AnalyzeAll(ctx, a.cfg.Scheduler.Watchlist)
		if err != nil {
			logger.Errorf("watchlist analysis failed: %v", err)
			return
		}
		for _, result := range results {
			if result.Consensus.Action == decision.ActionHold || result.Consensus.Action == "" {
				continue
			}
			logger.Infof("consensus %s %s confidence=%.2f agreement=%.2f",
				result.Symbol, result.Consensus.Action, result.Consensus.Confidence, result.Consensus.Agreement)
			if a.cfg.Trading.AutoExecute {
				a.executeConsensus(ctx, result)
			}
		}
	}
}

func (a *App) executeConsensus(ctx context.Context, result decision.AnalysisResult) {
	if result.CurrentPrice <= 0 {
		return
	}
	snap, err := a.portfolio.Snapshot(ctx)
	if err != nil {
		logger.Warnf("portfolio snapshot for auto-trade failed: %v", err)
		return
	}
	// 按共识置信度占组合的比例换算股数，至少 1 股。
	budget := snap.TotalValue * a.cfg.Trading.MaxPositionFraction * result.Consensus.Confidence
	quantity := int64(budget / result.CurrentPrice)
	if quantity < 1 {
		return
	}
	trade, err := a.portfolio.ExecuteTrade(ctx, portfolio.TradeRequest{
		Symbol:     result.Symbol,
		Action:     result.Consensus.Action,
		Quantity:   quantity,
		Strategy:   "consensus",
		Confidence: result.Consensus.Confidence,
	})
	if err != nil {
		logger.Warnf("auto-trade %s %s skipped: %v", result.Consensus.Action, result.Symbol, err)
		return
	}
	logger.Infof("auto-trade executed: %s %d %s @ %.2f", trade.Action, trade.Quantity, trade.Symbol, trade.Price)
}

func (a *App) close() {
	if a.signals != nil {
		if err := a.signals.Close(); err != nil {
			logger.Warnf("closing signal log: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warnf("closing portfolio store: %v", err)
		}
	}
}
