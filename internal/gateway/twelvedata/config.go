package twelvedata

import (
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.twelvedata.com"
	defaultTimeout = 15 * time.Second
	maxOutputSize  = 5000
)

// Config 数据源接入配置。
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}
