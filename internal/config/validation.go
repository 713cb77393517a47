package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Consensus.validate(); err != nil {
		return err
	}
	if err := c.Scheduler.validate(); err != nil {
		return err
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if strings.TrimSpace(m.APIKey) == "" {
		return fmt.Errorf("market.api_key is required")
	}
	if m.SeriesLimit > 5000 {
		return fmt.Errorf("market.series_limit must be <= 5000")
	}
	return nil
}

func (a *AIConfig) validate() error {
	if !a.Enabled {
		return nil
	}
	if strings.TrimSpace(a.APIKey) == "" {
		return fmt.Errorf("ai.api_key is required when ai.enabled is true")
	}
	if strings.TrimSpace(a.Model) == "" {
		return fmt.Errorf("ai.model cannot be empty")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.StopLossPct <= 0 || t.StopLossPct >= 1 {
		return fmt.Errorf("trading.stop_loss_pct must be in (0, 1)")
	}
	if t.TakeProfitPct <= 0 || t.TakeProfitPct >= 1 {
		return fmt.Errorf("trading.take_profit_pct must be in (0, 1)")
	}
	if t.MaxPositionFraction <= 0 || t.MaxPositionFraction > 1 {
		return fmt.Errorf("trading.max_position_fraction must be in (0, 1]")
	}
	return nil
}

func (c *ConsensusConfig) validate() error {
	for name, weight := range c.Weights {
		if weight <= 0 {
			return fmt.Errorf("consensus.weights.%s must be > 0", name)
		}
	}
	return nil
}

func (s *SchedulerConfig) validate() error {
	if !s.Enabled {
		return nil
	}
	if len(s.Watchlist) == 0 {
		return fmt.Errorf("scheduler.watchlist cannot be empty when scheduler is enabled")
	}
	if strings.TrimSpace(s.Cron) == "" {
		return fmt.Errorf("scheduler.cron cannot be empty")
	}
	return nil
}
