// Package journal keeps a SQLite log of the commands the device has
// dispatched.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marcus/macropad/internal/protocol"
	_ "modernc.org/sqlite"
)

// SchemaVersion is the current journal schema version
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS commands (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp DATETIME NOT NULL,
    code INTEGER NOT NULL,
    operation TEXT NOT NULL,
    ok INTEGER NOT NULL,
    error_kind TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT '',
    duration_us INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_commands_timestamp ON commands(timestamp);
`

// Entry is one journaled command.
type Entry struct {
	ID        int64         `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Code      int           `json:"code"`
	Operation string        `json:"operation"`
	OK        bool          `json:"ok"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Journal wraps the journal database connection
type Journal struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := conn.Exec(`INSERT OR IGNORE INTO schema_info (key, value) VALUES ('version', ?)`, SchemaVersion); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set schema version: %w", err)
	}

	return &Journal{conn: conn, path: path}, nil
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

// Close checkpoints the WAL and closes the database.
func (j *Journal) Close() error {
	j.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return j.conn.Close()
}

// Record stores one protocol entry. It satisfies protocol.Recorder.
func (j *Journal) Record(e protocol.Entry) error {
	ok := 0
	if e.OK {
		ok = 1
	}
	_, err := j.conn.Exec(`
		INSERT INTO commands (timestamp, code, operation, ok, error_kind, detail, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UTC(), int(e.Code), e.Code.String(), ok, e.Kind, e.Detail, e.Duration.Microseconds())
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return nil
}

// Filter narrows Recent.
type Filter struct {
	Since      time.Time
	FailedOnly bool
	Limit      int
}

// Recent returns the newest entries first.
func (j *Journal) Recent(f Filter) ([]Entry, error) {
	query := `SELECT id, timestamp, code, operation, ok, error_kind, detail, duration_us FROM commands WHERE 1=1`
	var args []any
	if !f.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, f.Since.UTC())
	}
	if f.FailedOnly {
		query += ` AND ok = 0`
	}
	query += ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := j.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ok int
		var durUS int64
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Code, &e.Operation, &ok, &e.ErrorKind, &e.Detail, &durUS); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		e.OK = ok == 1
		e.Duration = time.Duration(durUS) * time.Microsecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of journaled commands.
func (j *Journal) Count() (int, error) {
	var n int
	if err := j.conn.QueryRow(`SELECT COUNT(*) FROM commands`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count commands: %w", err)
	}
	return n, nil
}

// Prune deletes entries older than cutoff and reports how many went.
func (j *Journal) Prune(cutoff time.Time) (int64, error) {
	res, err := j.conn.Exec(`DELETE FROM commands WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune commands: %w", err)
	}
	return res.RowsAffected()
}
