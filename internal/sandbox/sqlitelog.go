package sandbox

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteLog is an optional durable ToolCallLog backend, for hosts that
// want tool-use audit history to survive process restarts. Grounded on
// tool_guard.go's SQLiteAuditLogger — a second backend behind the same
// interface as the in-memory default, not a replacement for it.
type sqliteLog struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteToolCallLog opens (creating if needed) a SQLite-backed
// ToolCallLog at path.
func NewSQLiteToolCallLog(path string, logger *slog.Logger) (ToolCallLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open tool call log: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tool_calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			tool TEXT NOT NULL,
			args_preview TEXT NOT NULL,
			result_preview TEXT NOT NULL,
			success INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create tool_calls table: %w", err)
	}
	return &sqliteLog{db: db, logger: logger.With("component", "sandbox.sqlitelog")}, nil
}

func (l *sqliteLog) Append(entry LogEntry) {
	_, err := l.db.Exec(`
		INSERT INTO tool_calls (ts, agent_id, tool, args_preview, result_preview, success, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339Nano), entry.AgentID, entry.Tool,
		entry.ArgsPreview, entry.ResultPreview, entry.Success, entry.Duration.Nanoseconds(),
	)
	if err != nil {
		l.logger.Warn("failed to persist tool call log entry", "error", err)
	}
}

func (l *sqliteLog) Entries() []LogEntry {
	rows, err := l.db.Query(`
		SELECT ts, agent_id, tool, args_preview, result_preview, success, duration_ns
		FROM tool_calls ORDER BY id ASC`)
	if err != nil {
		l.logger.Warn("failed to read tool call log", "error", err)
		return nil
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var tsStr string
		var durNs int64
		if err := rows.Scan(&tsStr, &e.AgentID, &e.Tool, &e.ArgsPreview, &e.ResultPreview, &e.Success, &durNs); err != nil {
			continue
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
		e.Duration = time.Duration(durNs)
		out = append(out, e)
	}
	return out
}

func (l *sqliteLog) Stats() []Stats {
	return computeStats(l.Entries())
}

// Close releases the underlying database handle.
func (l *sqliteLog) Close() error {
	return l.db.Close()
}
