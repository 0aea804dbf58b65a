// Package runlog records export results in PostgreSQL so past runs can be
// audited. It is optional and only used when a DSN is configured.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"
)

// TableName is the table export results are written to.
const TableName = "ffdl_export_runs"

const schema = `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	id            BIGSERIAL PRIMARY KEY,
	run_id        TEXT        NOT NULL,
	transcript_id TEXT        NOT NULL,
	title         TEXT        NOT NULL,
	base_path     TEXT,
	artifacts     TEXT[]      NOT NULL DEFAULT '{}',
	skipped       TEXT[]      NOT NULL DEFAULT '{}',
	stage         TEXT        NOT NULL,
	success       BOOLEAN     NOT NULL,
	error_code    TEXT,
	error_message TEXT,
	duration_ms   BIGINT      NOT NULL,
	hostname      TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertEntry = `INSERT INTO ` + TableName + `
	(run_id, transcript_id, title, base_path, artifacts, skipped, stage, success, error_code, error_message, duration_ms, hostname)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// maxErrorLen bounds stored error messages.
const maxErrorLen = 500

// Entry is one transcript result.
type Entry struct {
	RunID        string
	TranscriptID string
	Title        string
	BasePath     string
	Artifacts    []string
	Skipped      []string
	Stage        string
	Success      bool
	ErrorCode    string
	ErrorMessage string
	Duration     time.Duration
	Hostname     string
}

// execer is the subset of *sql.DB the store needs.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Store writes entries to PostgreSQL.
type Store struct {
	db execer
}

// Open connects to the database at dsn, verifies the connection and creates
// the table if it is missing.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("runlog not configured")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One process, one writer.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating %s: %w", TableName, err)
	}
	return nil
}

// Record inserts one entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	hostname := e.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	_, err := s.db.ExecContext(ctx, insertEntry,
		e.RunID,
		e.TranscriptID,
		e.Title,
		nullIfEmpty(e.BasePath),
		pq.Array(nonNil(e.Artifacts)),
		pq.Array(nonNil(e.Skipped)),
		e.Stage,
		e.Success,
		nullIfEmpty(e.ErrorCode),
		nullIfEmpty(truncate(e.ErrorMessage, maxErrorLen)),
		e.Duration.Milliseconds(),
		nullIfEmpty(hostname),
	)
	if err != nil {
		return fmt.Errorf("recording export result: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
