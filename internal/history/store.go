// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a SQLite ledger of merge runs and the outcome of
// every input file, so earlier runs can be listed, inspected and exported.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/docx-merge/pkg/types"
)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrRunNotFound is returned when no run matches an id.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRun is returned when an id prefix matches several runs.
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// Store manages the history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating its parent
// directory and the schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			input_dir TEXT NOT NULL,
			output_path TEXT NOT NULL,
			output_size INTEGER,
			page_breaks INTEGER NOT NULL,
			order_mode TEXT NOT NULL,
			merged INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			pdf_path TEXT,
			conversion_error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS run_files (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			blocks INTEGER,
			checksum TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_files_checksum ON run_files(checksum)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and its file outcomes in one transaction. Recording
// the same run again replaces the earlier record.
func (s *Store) Record(ctx context.Context, r *types.MergeReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_files WHERE run_id = ?`, r.RunID); err != nil {
		return fmt.Errorf("deleting old outcomes: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, input_dir, output_path, output_size,
			page_breaks, order_mode, merged, failed, pdf_path, conversion_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			started_at=excluded.started_at, finished_at=excluded.finished_at,
			input_dir=excluded.input_dir, output_path=excluded.output_path,
			output_size=excluded.output_size, page_breaks=excluded.page_breaks,
			order_mode=excluded.order_mode, merged=excluded.merged, failed=excluded.failed,
			pdf_path=excluded.pdf_path, conversion_error=excluded.conversion_error`,
		r.RunID, formatTime(r.StartedAt), formatTime(r.FinishedAt), r.InputDir, r.OutputPath,
		r.OutputSize, r.PageBreaks, string(r.Order), r.Merged(), r.Failed(),
		r.PDFPath, r.ConversionError,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_files (run_id, position, name, path, status, reason, blocks, checksum)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range r.Outcomes {
		_, err := stmt.ExecContext(ctx,
			r.RunID, i, o.Name, o.Path, string(o.Status), o.Reason, o.Blocks, o.Checksum,
		)
		if err != nil {
			return fmt.Errorf("inserting outcome %s: %w", o.Name, err)
		}
	}

	return tx.Commit()
}

// Run is one row of the run listing.
type Run struct {
	ID         string          `json:"id" yaml:"id"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
	InputDir   string          `json:"input_dir" yaml:"input_dir"`
	OutputPath string          `json:"output_path" yaml:"output_path"`
	OutputSize int64           `json:"output_size" yaml:"output_size"`
	Order      types.OrderMode `json:"order" yaml:"order"`
	Merged     int             `json:"merged" yaml:"merged"`
	Failed     int             `json:"failed" yaml:"failed"`
	PDFPath    string          `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`
}

const runColumns = `id, started_at, finished_at, input_dir, output_path, output_size,
	page_breaks, order_mode, merged, failed, pdf_path, conversion_error`

// Recent returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	reports, err := s.queryReports(ctx, limit)
	if err != nil {
		return nil, err
	}
	runs := make([]Run, len(reports))
	for i, r := range reports {
		runs[i] = Run{
			ID:         r.RunID,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			InputDir:   r.InputDir,
			OutputPath: r.OutputPath,
			OutputSize: r.OutputSize,
			Order:      r.Order,
			Merged:     r.merged,
			Failed:     r.failed,
			PDFPath:    r.PDFPath,
		}
	}
	return runs, nil
}

// Get returns the full report of the run whose id is, or starts with, id.
func (s *Store) Get(ctx context.Context, id string) (*types.MergeReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? || '%' ORDER BY id = ? DESC LIMIT 2`,
		id, id, id)
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}
	defer rows.Close()

	var matches []storedRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading run %s: %w", id, err)
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) > 1 && matches[0].RunID != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}

	report := matches[0].MergeReport
	if report.Outcomes, err = s.Files(ctx, report.RunID); err != nil {
		return nil, err
	}
	return &report, nil
}

// Files returns the file outcomes of a run in merge order.
func (s *Store) Files(ctx context.Context, runID string) ([]types.FileOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, path, status, reason, blocks, checksum
		 FROM run_files WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []types.FileOutcome
	for rows.Next() {
		var (
			o                types.FileOutcome
			status           string
			reason, checksum sql.NullString
			blocks           sql.NullInt64
		)
		if err := rows.Scan(&o.Name, &o.Path, &status, &reason, &blocks, &checksum); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Status = types.OutcomeStatus(status)
		o.Reason = reason.String
		o.Blocks = int(blocks.Int64)
		o.Checksum = checksum.String
		out = append(out, o)
	}
	return out, rows.Err()
}

// storedRun carries the aggregate counts alongside the report fields.
type storedRun struct {
	types.MergeReport
	merged, failed int
}

func (s *Store) queryReports(ctx context.Context, limit int) ([]storedRun, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []storedRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(rows *sql.Rows) (storedRun, error) {
	var (
		r                          storedRun
		started                    string
		finished, pdfPath, convErr sql.NullString
		size                       sql.NullInt64
		order                      string
	)
	err := rows.Scan(&r.RunID, &started, &finished, &r.InputDir, &r.OutputPath, &size,
		&r.PageBreaks, &order, &r.merged, &r.failed, &pdfPath, &convErr)
	if err != nil {
		return r, fmt.Errorf("scanning run: %w", err)
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished.String)
	r.OutputSize = size.Int64
	r.Order = types.OrderMode(order)
	r.PDFPath = pdfPath.String
	r.ConversionError = convErr.String
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
