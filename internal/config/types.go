package config

import "strings"

// Config 是 MarketMind 的主配置载体。
type Config struct {
	App       AppConfig       `yaml:"app"`
	Market    MarketConfig    `yaml:"market"`
	News      NewsConfig      `yaml:"news"`
	AI        AIConfig        `yaml:"ai"`
	Trading   TradingConfig   `yaml:"trading"`
	Risk      RiskConfig      `yaml:"risk"`
	Consensus ConsensusConfig `yaml:"consensus"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`
	LogPath  string `yaml:"log_path"`
	LLMLog   string `yaml:"llm_log_path"`
}

// MarketConfig 行情数据源（twelvedata）接入配置。
type MarketConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Interval       string `yaml:"interval"`
	SeriesLimit    int    `yaml:"series_limit"`
}

// NewsConfig 新闻情绪源。base_url 为空时使用内置的确定性回退源。
type NewsConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AIConfig LLM 点评相关设置。未启用时各 agent 只产出规则推理。
type AIConfig struct {
	Enabled        bool   `yaml:"enabled"`
	APIURL         string `yaml:"api_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxTokens      int    `yaml:"max_tokens"`
}

// TradingConfig 纸面交易与仓位策略。
type TradingConfig struct {
	PortfolioName       string  `yaml:"portfolio_name"`
	InitialBalance      float64 `yaml:"initial_balance"`
	StopLossPct         float64 `yaml:"stop_loss_pct"`
	TakeProfitPct       float64 `yaml:"take_profit_pct"`
	MaxPositionFraction float64 `yaml:"max_position_fraction"`
	AutoExecute         bool    `yaml:"auto_execute"` // 共识达成后自动下纸面单
}

type RiskConfig struct {
	MaxSectorAllocation float64 `yaml:"max_sector_allocation"`
	RefdataPath         string  `yaml:"refdata_path"`
}

// ConsensusConfig 各 agent 在共识聚合中的权重。
type ConsensusConfig struct {
	Weights       map[string]float64 `yaml:"weights"`
	DefaultWeight float64            `yaml:"default_weight"`
}

type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	SignalLogPath string `yaml:"signal_log_path"`
}

// SchedulerConfig 周期性批量分析。
type SchedulerConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Cron           string   `yaml:"cron"`
	Watchlist      []string `yaml:"watchlist"`
	MaxConcurrency int      `yaml:"max_concurrency"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
