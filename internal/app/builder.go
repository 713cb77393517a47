package app

import (
	"fmt"
	"strings"
	"time"

	"marketmind/internal/agent"
	"marketmind/internal/ai"
	"marketmind/internal/config"
	"marketmind/internal/decision"
	"marketmind/internal/gateway/news"
	"marketmind/internal/gateway/twelvedata"
	"marketmind/internal/logger"
	"marketmind/internal/market"
	"marketmind/internal/portfolio"
	"marketmind/internal/refdata"
	"marketmind/internal/risk"
	"marketmind/internal/store/signallog"
	"marketmind/internal/store/sqlite"
	apihttp "marketmind/internal/transport/http"
)

// AppBuilder 负责把配置展开为一棵可运行的依赖树。
// 各个构造函数可被测试替换。
type AppBuilder struct {
	cfg *config.Config

	marketSourceFn func(config.MarketConfig) (market.Source, error)
	newsSourceFn   func(config.NewsConfig) news.Source
	commentatorFn  func(config.AIConfig) (agent.Commentator, error)
}

type AppBuilderOption func(*AppBuilder)

// WithMarketSource 覆盖行情源构造（测试用）。
func WithMarketSource(fn func(config.MarketConfig) (market.Source, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.marketSourceFn = fn }
}

// WithNewsSource 覆盖新闻源构造（测试用）。
func WithNewsSource(fn func(config.NewsConfig) news.Source) AppBuilderOption {
	return func(b *AppBuilder) { b.newsSourceFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		marketSourceFn: buildMarketSource,
		newsSourceFn:   buildNewsSource,
		commentatorFn:  buildCommentator,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Build 构建应用对象（不启动）。
func (b *AppBuilder) Build() (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	source, err := b.marketSourceFn(cfg.Market)
	if err != nil {
		return nil, fmt.Errorf("building market source: %w", err)
	}

	newsSource := b.newsSourceFn(cfg.News)

	commentator, err := b.commentatorFn(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("building ai commentator: %w", err)
	}
	if commentator != nil {
		logger.Infof("✓ AI commentary enabled (model=%s)", cfg.AI.Model)
	}

	refTable, err := refdata.Load(cfg.Risk.RefdataPath)
	if err != nil {
		return nil, fmt.Errorf("loading reference data: %w", err)
	}

	store, err := sqlite.New(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening portfolio store: %w", err)
	}
	signals, err := signallog.New(cfg.Storage.SignalLogPath)
	if err != nil {
		return nil, fmt.Errorf("opening signal log: %w", err)
	}

	portfolioSvc, err := portfolio.NewService(store, source, cfg.Trading.PortfolioName, cfg.Trading.InitialBalance)
	if err != nil {
		return nil, fmt.Errorf("building portfolio service: %w", err)
	}

	sizing := agent.SizingConfig{
		StopLossPct:         cfg.Trading.StopLossPct,
		TakeProfitPct:       cfg.Trading.TakeProfitPct,
		MaxPositionFraction: cfg.Trading.MaxPositionFraction,
	}
	scorer := risk.NewScorer(refTable, refTable, cfg.Risk.MaxSectorAllocation)
	agents := []decision.Agent{
		agent.NewTechnical(sizing, commentator),
		agent.NewSentiment(sizing, newsSource, commentator),
		agent.NewRisk(sizing, scorer, commentator),
	}
	logger.Infof("✓ %d agents registered", len(agents))

	aggregator := decision.NewAggregator(cfg.Consensus.Weights, cfg.Consensus.DefaultWeight)
	engine, err := decision.NewEngine(source, portfolioSvc, agents, aggregator, signals, decision.EngineConfig{
		Interval:       cfg.Market.Interval,
		SeriesLimit:    cfg.Market.SeriesLimit,
		MaxConcurrency: cfg.Scheduler.MaxConcurrency,
		FetchTimeout:   time.Duration(cfg.Market.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("building decision engine: %w", err)
	}

	server, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:   cfg.App.HTTPAddr,
		Router: apihttp.NewRouter(engine, portfolioSvc, signals),
	})
	if err != nil {
		return nil, fmt.Errorf("building http server: %w", err)
	}

	return &App{
		cfg:       cfg,
		engine:    engine,
		portfolio: portfolioSvc,
		refdata:   refTable,
		store:     store,
		signals:   signals,
		server:    server,
	}, nil
}

func buildMarketSource(cfg config.MarketConfig) (market.Source, error) {
	return twelvedata.New(twelvedata.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
}

func buildNewsSource(cfg config.NewsConfig) news.Source {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		logger.Infof("news.base_url not set, using built-in fallback sentiment")
		return news.Static{}
	}
	return news.NewKeywordClient(cfg.BaseURL, time.Duration(cfg.TimeoutSeconds)*time.Second)
}

func buildCommentator(cfg config.AIConfig) (agent.Commentator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := ai.New(ai.Config{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.APIURL,
		Model:     cfg.Model,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
