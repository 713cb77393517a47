package signallog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"marketmind/internal/decision"

	_ "modernc.org/sqlite"
)

// Store 落盘每轮分析的信号与共识，方便事后排查与回看。
// 与组合库分开：这里是只追加的日志，不参与资金结算。
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trace_id TEXT NOT NULL,
    ts INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    current_price REAL NOT NULL,
    consensus_action TEXT NOT NULL,
    consensus_confidence REAL NOT NULL,
    agreement REAL NOT NULL,
    signals_json TEXT NOT NULL,
    errors_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_analysis_log_symbol_ts ON analysis_log(symbol, ts);
`

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("signal log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordAnalysis 实现 decision.Recorder。
func (s *Store) RecordAnalysis(ctx context.Context, result decision.AnalysisResult) error {
	signalsJSON, err := json.Marshal(result.Signals)
	if err != nil {
		return err
	}
	var errorsJSON []byte
	if len(result.Errors) > 0 {
		if errorsJSON, err = json.Marshal(result.Errors); err != nil {
			return err
		}
	}
	ts := result.AnalyzedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO analysis_log (trace_id, ts, symbol, current_price, consensus_action, consensus_confidence, agreement, signals_json, errors_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.TraceID, ts.Unix(), result.Symbol, result.CurrentPrice,
		result.Consensus.Action, result.Consensus.Confidence, result.Consensus.Agreement,
		string(signalsJSON), nullableString(errorsJSON))
	return err
}

// Entry 一条历史记录的回读视图。
type Entry struct {
	ID         int64                             `json:"id"`
	TraceID    string                            `json:"trace_id"`
	Timestamp  int64                             `json:"ts"`
	Symbol     string                            `json:"symbol"`
	Price      float64                           `json:"current_price"`
	Action     string                            `json:"consensus_action"`
	Confidence float64                           `json:"consensus_confidence"`
	Agreement  float64                           `json:"agreement"`
	Signals    map[string]decision.TradingSignal `json:"signals"`
	Errors     map[string]string                 `json:"errors,omitempty"`
}

// Recent 返回某 symbol 最近的若干条记录（新到旧）。symbol 为空时不过滤。
func (s *Store) Recent(ctx context.Context, symbol string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, trace_id, ts, symbol, current_price, consensus_action, consensus_confidence, agreement, signals_json, errors_json
FROM analysis_log`
	args := []any{}
	if symbol = strings.TrimSpace(symbol); symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY ts DESC, id DESC LIMIT ?"
	args = append(args, limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var signalsJSON string
		var errorsJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.TraceID, &e.Timestamp, &e.Symbol, &e.Price,
			&e.Action, &e.Confidence, &e.Agreement, &signalsJSON, &errorsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(signalsJSON), &e.Signals); err != nil {
			return nil, fmt.Errorf("corrupt signals row %d: %w", e.ID, err)
		}
		if errorsJSON.Valid && errorsJSON.String != "" {
			if err := json.Unmarshal([]byte(errorsJSON.String), &e.Errors); err != nil {
				return nil, fmt.Errorf("corrupt errors row %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
