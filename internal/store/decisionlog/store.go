package decisionlog

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

	"github.com/kaiitheguy/stock-fantasy-api/internal/decision"

	_ "modernc.org/sqlite"
)

// Store 管理 AI 决策日志，持久化每次模型请求的完整输入/输出，方便排查。
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Record 代表一条日志记录。
type Record struct {
	ID         int64              `json:"id"`
	TraceID    string             `json:"trace_id"`
	Timestamp  int64              `json:"ts"`
	AgentID    int                `json:"agent_id"`
	ProviderID string             `json:"provider_id"`
	System     string             `json:"system_prompt"`
	User       string             `json:"user_prompt"`
	RawOutput  string             `json:"raw_output"`
	Decision   *decision.Decision `json:"decision,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Query 用于筛选日志。
type Query struct {
	AgentID  int // 0 表示不过滤
	Provider string
	TraceID  string
	Limit    int
	Offset   int
}

// NewStore 初始化 SQLite 存储。
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("decision log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS decision_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    trace_id TEXT NOT NULL,
    ts INTEGER NOT NULL,
    agent_id INTEGER NOT NULL,
    provider_id TEXT NOT NULL,
    system_prompt TEXT,
    user_prompt TEXT,
    raw_output TEXT,
    decision_json TEXT,
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_decision_logs_agent ON decision_logs(agent_id, ts);
CREATE INDEX IF NOT EXISTS idx_decision_logs_trace ON decision_logs(trace_id);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close 关闭底层连接。
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Append 写入一条日志。
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("decision log store 已关闭")
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	var decisionJSON []byte
	if rec.Decision != nil {
		b, err := json.Marshal(rec.Decision)
		if err != nil {
			return fmt.Errorf("marshal decision: %w", err)
		}
		decisionJSON = b
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO decision_logs (trace_id, ts, agent_id, provider_id, system_prompt, user_prompt, raw_output, decision_json, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID, rec.Timestamp, rec.AgentID, rec.ProviderID,
		rec.System, rec.User, rec.RawOutput, string(decisionJSON), rec.Error)
	return err
}

// Recent 返回最近的日志记录（降序）。
func (s *Store) Recent(ctx context.Context, q Query) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("decision log store 已关闭")
	}

	where := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if q.AgentID > 0 {
		where = append(where, "agent_id = ?")
		args = append(args, q.AgentID)
	}
	if q.Provider != "" {
		where = append(where, "provider_id = ?")
		args = append(args, q.Provider)
	}
	if q.TraceID != "" {
		where = append(where, "trace_id = ?")
		args = append(args, q.TraceID)
	}

	query := "SELECT id, trace_id, ts, agent_id, provider_id, system_prompt, user_prompt, raw_output, decision_json, error FROM decision_logs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC"
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if q.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var decisionJSON sql.NullString
		var system, user, raw, errText sql.NullString
		if err := rows.Scan(&rec.ID, &rec.TraceID, &rec.Timestamp, &rec.AgentID, &rec.ProviderID,
			&system, &user, &raw, &decisionJSON, &errText); err != nil {
			return nil, err
		}
		rec.System = system.String
		rec.User = user.String
		rec.RawOutput = raw.String
		rec.Error = errText.String
		if decisionJSON.Valid && decisionJSON.String != "" {
			var d decision.Decision
			if err := json.Unmarshal([]byte(decisionJSON.String), &d); err == nil {
				rec.Decision = &d
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
