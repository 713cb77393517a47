package config

import "strings"

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":9980"
	defaultAppLogPath        = "data/logs/marketmind.log"
	defaultAppLLMLogPath     = "data/logs/marketmind-llm.log"
	defaultMarketBaseURL     = "https://api.twelvedata.com"
	defaultMarketTimeout     = 15
	defaultMarketInterval    = "1h"
	defaultMarketSeriesLimit = 120
	defaultNewsTimeout       = 10
	defaultAIModel           = "gpt-3.5-turbo"
	defaultAITimeout         = 30
	defaultAIMaxTokens       = 512
	defaultPortfolioName     = "Main Portfolio"
	defaultInitialBalance    = 100000
	defaultStopLossPct       = 0.05
	defaultTakeProfitPct     = 0.15
	defaultMaxPositionFrac   = 0.10
	defaultMaxSectorAlloc    = 0.3
	defaultRefdataPath       = "configs/refdata.yaml"
	defaultConsensusWeight   = 0.5
	defaultDatabasePath      = "data/db/marketmind.db"
	defaultSignalLogPath     = "data/db/signals.db"
	defaultSchedulerCron     = "0 * * * *"
	defaultSchedulerMaxConc  = 4
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.News.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Consensus.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
	c.Scheduler.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLogPath),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.base_url", &m.BaseURL, defaultMarketBaseURL),
		stringFieldDefault("market.interval", &m.Interval, defaultMarketInterval),
		fieldDefault{
			key:   "market.timeout_seconds",
			need:  func() bool { return m.TimeoutSeconds <= 0 },
			apply: func() { m.TimeoutSeconds = defaultMarketTimeout },
		},
		fieldDefault{
			key:   "market.series_limit",
			need:  func() bool { return m.SeriesLimit <= 0 },
			apply: func() { m.SeriesLimit = defaultMarketSeriesLimit },
		},
	)
}

func (n *NewsConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "news.timeout_seconds",
			need:  func() bool { return n.TimeoutSeconds <= 0 },
			apply: func() { n.TimeoutSeconds = defaultNewsTimeout },
		},
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ai.model", &a.Model, defaultAIModel),
		fieldDefault{
			key:   "ai.timeout_seconds",
			need:  func() bool { return a.TimeoutSeconds <= 0 },
			apply: func() { a.TimeoutSeconds = defaultAITimeout },
		},
		fieldDefault{
			key:   "ai.max_tokens",
			need:  func() bool { return a.MaxTokens <= 0 },
			apply: func() { a.MaxTokens = defaultAIMaxTokens },
		},
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("trading.portfolio_name", &t.PortfolioName, defaultPortfolioName),
		fieldDefault{
			key:   "trading.initial_balance",
			need:  func() bool { return t.InitialBalance <= 0 },
			apply: func() { t.InitialBalance = defaultInitialBalance },
		},
		fieldDefault{
			key:   "trading.stop_loss_pct",
			need:  func() bool { return t.StopLossPct <= 0 },
			apply: func() { t.StopLossPct = defaultStopLossPct },
		},
		fieldDefault{
			key:   "trading.take_profit_pct",
			need:  func() bool { return t.TakeProfitPct <= 0 },
			apply: func() { t.TakeProfitPct = defaultTakeProfitPct },
		},
		fieldDefault{
			key:   "trading.max_position_fraction",
			need:  func() bool { return t.MaxPositionFraction <= 0 },
			apply: func() { t.MaxPositionFraction = defaultMaxPositionFrac },
		},
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("risk.refdata_path", &r.RefdataPath, defaultRefdataPath),
		fieldDefault{
			key:   "risk.max_sector_allocation",
			need:  func() bool { return r.MaxSectorAllocation <= 0 },
			apply: func() { r.MaxSectorAllocation = defaultMaxSectorAlloc },
		},
	)
}

func (c *ConsensusConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "consensus.default_weight",
			need:  func() bool { return c.DefaultWeight <= 0 },
			apply: func() { c.DefaultWeight = defaultConsensusWeight },
		},
		fieldDefault{
			key:  "consensus.weights",
			need: func() bool { return len(c.Weights) == 0 },
			apply: func() {
				c.Weights = map[string]float64{
					"technical": 1.0,
					"sentiment": 1.0,
					"risk":      1.0,
				}
			},
		},
	)
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("storage.database_path", &s.DatabasePath, defaultDatabasePath),
		stringFieldDefault("storage.signal_log_path", &s.SignalLogPath, defaultSignalLogPath),
	)
}

func (s *SchedulerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("scheduler.cron", &s.Cron, defaultSchedulerCron),
		fieldDefault{
			key:   "scheduler.max_concurrency",
			need:  func() bool { return s.MaxConcurrency <= 0 },
			apply: func() { s.MaxConcurrency = defaultSchedulerMaxConc },
		},
	)
	s.Watchlist = normalizeWatchlist(s.Watchlist)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

// normalizeWatchlist 去重并统一为大写代码。
func normalizeWatchlist(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
