package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no run matches a lookup.
var ErrNotFound = errors.New("ledger: run not found")

// Run is one recorded reflow of an input file.
type Run struct {
	ID               int64
	RunID            string
	InputPath        string
	OutputPath       string
	ContentHash      string
	Settings         string
	SourceCues       int
	OutputCues       int
	IntegrityOK      bool
	IntegritySummary string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Ledger is the SQLite-backed run history.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open creates or opens the ledger database at path and applies migrations.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	l := &Ledger{db: db, path: path}
	if err := l.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) Path() string { return l.path }

// Record inserts run, or updates the row with the same content hash and
// settings. The stored row is returned.
func (l *Ledger) Record(ctx context.Context, run Run) (*Run, error) {
	if run.ContentHash == "" {
		return nil, errors.New("ledger: content hash is required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (
            run_id, input_path, output_path, content_hash, settings,
            source_cues, output_cues, integrity_ok, integrity_summary, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (content_hash, settings) DO UPDATE SET
            run_id = excluded.run_id,
            input_path = excluded.input_path,
            output_path = excluded.output_path,
            source_cues = excluded.source_cues,
            output_cues = excluded.output_cues,
            integrity_ok = excluded.integrity_ok,
            integrity_summary = excluded.integrity_summary,
            updated_at = excluded.updated_at`,
		run.RunID,
		run.InputPath,
		run.OutputPath,
		run.ContentHash,
		run.Settings,
		run.SourceCues,
		run.OutputCues,
		boolToInt(run.IntegrityOK),
		nullableString(run.IntegritySummary),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return l.Lookup(ctx, run.ContentHash, run.Settings)
}

// Lookup returns the run for a content hash and settings fingerprint.
func (l *Ledger) Lookup(ctx context.Context, contentHash, settings string) (*Run, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE content_hash = ? AND settings = ?`,
		contentHash, settings,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// Recent returns up to limit runs, most recently updated first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY updated_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

const runColumns = `id, run_id, input_path, output_path, content_hash, settings,
    source_cues, output_cues, integrity_ok, integrity_summary, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run       Run
		ok        int
		summary   sql.NullString
		createdAt string
		updatedAt string
	)
	if err := s.Scan(
		&run.ID, &run.RunID, &run.InputPath, &run.OutputPath, &run.ContentHash, &run.Settings,
		&run.SourceCues, &run.OutputCues, &ok, &summary, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.IntegrityOK = ok != 0
	run.IntegritySummary = summary.String
	run.CreatedAt = parseTime(createdAt)
	run.UpdatedAt = parseTime(updatedAt)
	return &run, nil
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer file.Close()
	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
