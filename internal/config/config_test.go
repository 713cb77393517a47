package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
market:
  api_key: test-key
`)
	cfg, err := Load(path)
	assert.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, ":9980", cfg.App.HTTPAddr)
	assert.Equal(t, "https://api.twelvedata.com", cfg.Market.BaseURL)
	assert.Equal(t, "1h", cfg.Market.Interval)
	assert.Equal(t, 120, cfg.Market.SeriesLimit)
	assert.InDelta(t, 100000, cfg.Trading.InitialBalance, 1e-9)
	assert.InDelta(t, 0.05, cfg.Trading.StopLossPct, 1e-9)
	assert.InDelta(t, 0.5, cfg.Consensus.DefaultWeight, 1e-9)
	assert.InDelta(t, 1.0, cfg.Consensus.Weights["technical"], 1e-9)
	assert.Equal(t, "0 * * * *", cfg.Scheduler.Cron)
}

func TestLoadExplicitValuesKept(t *testing.T) {
	path := writeConfig(t, `
app:
  http_addr: ":8080"
  log_level: debug
market:
  api_key: test-key
  interval: 1day
  series_limit: 250
consensus:
  weights:
    technical: 2.0
scheduler:
  enabled: true
  watchlist: [aapl, msft, aapl, " "]
`)
	cfg, err := Load(path)
	assert.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, "1day", cfg.Market.Interval)
	assert.Equal(t, 250, cfg.Market.SeriesLimit)
	// 显式给出的权重表不再补默认条目。
	assert.Len(t, cfg.Consensus.Weights, 1)
	// watchlist 统一大写并去重。
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Scheduler.Watchlist)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	path := writeConfig(t, "app:\n  env: dev\n")
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "market.api_key")
}

func TestEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("TWELVEDATA_API_KEY", "env-key")
	path := writeConfig(t, "market:\n  api_key: file-key\n")

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Market.APIKey)
}

func TestAIValidationWhenEnabled(t *testing.T) {
	path := writeConfig(t, `
market:
  api_key: test-key
ai:
  enabled: true
`)
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ai.api_key")
}

func TestSchedulerValidation(t *testing.T) {
	path := writeConfig(t, `
market:
  api_key: test-key
scheduler:
  enabled: true
`)
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.watchlist")
}

func TestTradingValidation(t *testing.T) {
	path := writeConfig(t, `
market:
  api_key: test-key
trading:
  stop_loss_pct: 1.5
`)
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "trading.stop_loss_pct")
}
