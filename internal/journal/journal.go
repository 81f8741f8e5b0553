// Package journal persists a workspace's history events into SQLite for
// later inspection. The journal is observational only: it is written
// after a session completes and never feeds back into engine state, so
// the single-writer filesystem model of the workspace is unchanged.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/prism/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (events table, per-session unique seq)
const currentSchemaVersion = 1

// Journal provides durable storage for session histories.
// Uses SQLite with WAL mode for concurrent read access.
type Journal struct {
	db *sql.DB
}

// Record is a single journaled event row.
type Record struct {
	SessionID  string
	Seq        int
	Type       string
	Payload    string // canonical JSON of the event
	RecordedAt string // UTC RFC3339
}

// Open creates or opens a journal database at the given path, applying
// pragmas and schema. Idempotent: safe to call on an existing journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// AppendHistory journals every event of a session's history. Re-running
// the same session is a no-op for rows already present (the history is
// append-only, so a seq never changes meaning within a session).
func (j *Journal) AppendHistory(ctx context.Context, sessionID string, history []ir.Event) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (session_id, seq, type, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	defer stmt.Close()

	recordedAt := time.Now().UTC().Format(time.RFC3339)
	for seq, ev := range history {
		payload, err := ir.MarshalCanonical(ev.CanonicalMap())
		if err != nil {
			return fmt.Errorf("journal append: event %d: %w", seq, err)
		}
		if _, err := stmt.ExecContext(ctx, sessionID, seq, string(ev.Type), string(payload), recordedAt); err != nil {
			return fmt.Errorf("journal append: event %d: %w", seq, err)
		}
	}
	return tx.Commit()
}

// Recent returns the most recently journaled rows, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, seq, type, payload, recorded_at
		FROM events ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal recent: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// BySession returns a session's rows in history order.
func (j *Journal) BySession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, seq, type, payload, recorded_at
		FROM events WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("journal by session: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.SessionID, &r.Seq, &r.Type, &r.Payload, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and stamps the schema
// version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
