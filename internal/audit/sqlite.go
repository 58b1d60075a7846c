package audit

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS audit_event (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type  TEXT NOT NULL,
	actor       TEXT NOT NULL,
	description TEXT NOT NULL,
	status      TEXT NOT NULL,
	ts_millis   INTEGER NOT NULL
)`

// SQLiteSink persiste eventos en un archivo SQLite.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite abre (o crea) la base en path y asegura el schema.
func OpenSQLite(path string) (*SQLiteSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("audit: sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Append(ctx context.Context, ev repository.AuditEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (event_type, actor, description, status, ts_millis) VALUES (?, ?, ?, ?, ?)`,
		ev.Kind, ev.Actor, ev.Description, ev.Status, ev.Timestamp.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]repository.AuditEvent, error) {
	if limit <= 0 {
		limit = DefaultCapacity
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_type, actor, description, status, ts_millis FROM audit_event ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.AuditEvent
	for rows.Next() {
		var ev repository.AuditEvent
		var ms int64
		if err := rows.Scan(&ev.Kind, &ev.Actor, &ev.Description, &ev.Status, &ms); err != nil {
			return nil, err
		}
		ev.Timestamp = time.UnixMilli(ms).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
