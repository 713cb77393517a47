package refdata

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"marketmind/internal/logger"
)

// 中文说明：
// 行业归属与高相关对的静态参考表。默认内置一份常用美股映射，
// 可用 YAML 文件覆盖，并支持文件变更热加载。

type fileSchema struct {
	Sectors         map[string]string `yaml:"sectors"`
	CorrelatedPairs [][]string        `yaml:"correlated_pairs"`
}

// Table 实现 risk.SectorLookup 与 risk.CorrelationLookup。
type Table struct {
	mu      sync.RWMutex
	path    string
	sectors map[string]string
	pairs   [][2]string
}

// NewTable 返回只含内置默认数据的表。
func NewTable() *Table {
	t := &Table{}
	t.applyDefaults()
	return t
}

// Load 从 YAML 文件加载参考表；文件缺失时退回内置默认。
func Load(path string) (*Table, error) {
	t := NewTable()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	t.path = path
	if err := t.Reload(); err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("refdata file %s missing, using built-in defaults", path)
			return t, nil
		}
		return nil, err
	}
	return t, nil
}

// Reload 重新读取文件并原子替换内容。
func (t *Table) Reload() error {
	if t.path == "" {
		return nil
	}
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return err
	}
	var doc fileSchema
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing refdata %s: %w", t.path, err)
	}
	sectors := make(map[string]string, len(doc.Sectors))
	for symbol, sector := range doc.Sectors {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || strings.TrimSpace(sector) == "" {
			continue
		}
		sectors[symbol] = strings.TrimSpace(sector)
	}
	pairs := make([][2]string, 0, len(doc.CorrelatedPairs))
	for _, pair := range doc.CorrelatedPairs {
		if len(pair) != 2 {
			continue
		}
		a := strings.ToUpper(strings.TrimSpace(pair[0]))
		b := strings.ToUpper(strings.TrimSpace(pair[1]))
		if a == "" || b == "" || a == b {
			continue
		}
		pairs = append(pairs, [2]string{a, b})
	}

	t.mu.Lock()
	t.sectors = sectors
	t.pairs = pairs
	t.mu.Unlock()
	logger.Infof("refdata loaded: %d sectors, %d correlated pairs (%s)", len(sectors), len(pairs), t.path)
	return nil
}

// SectorOf 返回 symbol 所属行业，未知返回空串。
func (t *Table) SectorOf(symbol string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sectors[strings.ToUpper(strings.TrimSpace(symbol))]
}

// CorrelatedPairs 返回已知高相关对的副本。
func (t *Table) CorrelatedPairs() [][2]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([][2]string, len(t.pairs))
	copy(out, t.pairs)
	return out
}

func (t *Table) applyDefaults() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sectors = map[string]string{
		"AAPL":  "Technology",
		"GOOGL": "Technology",
		"MSFT":  "Technology",
		"NVDA":  "Technology",
		"META":  "Technology",
		"TSLA":  "Automotive",
		"AMZN":  "E-commerce",
		"NFLX":  "Entertainment",
	}
	t.pairs = [][2]string{
		{"AAPL", "MSFT"},
		{"GOOGL", "META"},
		{"NVDA", "AAPL"},
		{"TSLA", "AAPL"},
		{"AMZN", "GOOGL"},
	}
}
