// Package storage keeps a SQLite history of check runs and their records.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/matsen/citecheck/internal/lookup"
	"github.com/matsen/citecheck/internal/verify"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Run is one invocation of the checker against a document.
type Run struct {
	ID        string    `json:"id"`
	Document  string    `json:"document"`
	Pages     string    `json:"pages,omitempty"`
	Threshold int       `json:"threshold"`
	FromCache bool      `json:"from_cache"`
	StartedAt time.Time `json:"started_at"`
	Counts    Counts    `json:"counts"`
}

// Counts summarizes a run's partitions.
type Counts struct {
	Total     int `json:"total"`
	NoYear    int `json:"no_year"`
	NotFound  int `json:"not_found"`
	Evaluated int `json:"evaluated"`
	Flagged   int `json:"flagged"`
}

// CountsOf summarizes a classified report.
func CountsOf(rep verify.Report) Counts {
	return Counts{
		Total:     rep.Total(),
		NoYear:    len(rep.NoYear),
		NotFound:  len(rep.NotFound),
		Evaluated: len(rep.Evaluated),
		Flagged:   len(rep.Flagged),
	}
}

// StoredRecord is a record together with the run it belongs to.
type StoredRecord struct {
	RunID    string `json:"run_id"`
	Document string `json:"document"`
	Position int    `json:"position"`
	verify.Record
}

const selectRunFields = `id, document, pages, threshold, from_cache, started_at,
	total, no_year, not_found, evaluated, flagged`

const selectRecordFields = `r.run_id, runs.document, r.position,
	r.student_ref, r.source, r.citation, r.outcome, r.distance`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			pages TEXT,
			threshold INTEGER NOT NULL,
			from_cache INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			total INTEGER NOT NULL,
			no_year INTEGER NOT NULL,
			not_found INTEGER NOT NULL,
			evaluated INTEGER NOT NULL,
			flagged INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document, started_at);

		CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			student_ref TEXT NOT NULL,
			source TEXT NOT NULL,
			citation TEXT,
			outcome TEXT NOT NULL,
			distance INTEGER NOT NULL,
			PRIMARY KEY (run_id, position)
		);

		-- Full-text search over reference and citation text
		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			run_id UNINDEXED,
			position UNINDEXED,
			student_ref,
			citation
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RecordRun stores a run and its records in one transaction. A missing run
// ID is generated and a zero StartedAt is set to now. The counts are derived
// from records and run.Threshold. It returns the stored run.
func (d *DB) RecordRun(run Run, records []verify.Record) (*Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Counts = CountsOf(verify.Classify(records, run.Threshold))

	tx, err := d.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (`+selectRunFields+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Document, nullableStringValue(run.Pages), run.Threshold, run.FromCache,
		run.StartedAt.UnixNano(), run.Counts.Total, run.Counts.NoYear, run.Counts.NotFound,
		run.Counts.Evaluated, run.Counts.Flagged)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}

	recStmt, err := tx.Prepare(`
		INSERT INTO records (run_id, position, student_ref, source, citation, outcome, distance)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing record insert: %w", err)
	}
	defer recStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO records_fts (run_id, position, student_ref, citation)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for i, rec := range records {
		_, err := recStmt.Exec(run.ID, i, rec.StudentRef, rec.Source.String(),
			nullableStringValue(rec.Citation), rec.Outcome.String(), rec.Distance)
		if err != nil {
			return nil, fmt.Errorf("inserting record %d: %w", i, err)
		}
		if _, err := ftsStmt.Exec(run.ID, i, rec.StudentRef, rec.Citation); err != nil {
			return nil, fmt.Errorf("indexing record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing run: %w", err)
	}
	return &run, nil
}

// GetRun returns the run with the given ID, or nil if there is none.
func (d *DB) GetRun(id string) (*Run, error) {
	row := d.db.QueryRow(`SELECT `+selectRunFields+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns runs newest first, optionally restricted to one document.
// A limit of 0 or less returns every run.
func (d *DB) ListRuns(document string, limit int) ([]Run, error) {
	query := `SELECT ` + selectRunFields + ` FROM runs`
	var args []any
	if document != "" {
		query += ` WHERE document = ?`
		args = append(args, document)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
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

// RunRecords returns a run's records in document order.
func (d *DB) RunRecords(runID string) ([]StoredRecord, error) {
	rows, err := d.db.Query(`
		SELECT `+selectRecordFields+`
		FROM records r JOIN runs ON runs.id = r.run_id
		WHERE r.run_id = ?
		ORDER BY r.position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Flagged returns evaluated records above threshold from the most recent run
// of each document (or of one document), worst first.
func (d *DB) Flagged(threshold int, document string, limit int) ([]StoredRecord, error) {
	query := `
		SELECT ` + selectRecordFields + `
		FROM records r JOIN runs ON runs.id = r.run_id
		WHERE r.outcome = ? AND r.distance > ?
		  AND runs.started_at = (SELECT MAX(started_at) FROM runs latest WHERE latest.document = runs.document)`
	args := []any{verify.Evaluated.String(), threshold}
	if document != "" {
		query += ` AND runs.document = ?`
		args = append(args, document)
	}
	query += ` ORDER BY r.distance DESC, runs.document, r.position`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying flagged records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// SearchRecords runs a full-text query over stored reference and citation text.
func (d *DB) SearchRecords(query string, limit int) ([]StoredRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT `+selectRecordFields+`
		FROM records_fts f
		JOIN records r ON r.run_id = f.run_id AND r.position = f.position
		JOIN runs ON runs.id = r.run_id
		WHERE records_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var pages sql.NullString
	var startedAt int64

	err := s.Scan(
		&run.ID, &run.Document, &pages, &run.Threshold, &run.FromCache, &startedAt,
		&run.Counts.Total, &run.Counts.NoYear, &run.Counts.NotFound,
		&run.Counts.Evaluated, &run.Counts.Flagged,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	run.Pages = pages.String
	run.StartedAt = time.Unix(0, startedAt)
	return &run, nil
}

func scanRecords(rows *sql.Rows) ([]StoredRecord, error) {
	var out []StoredRecord
	for rows.Next() {
		var rec StoredRecord
		var source, outcome string
		var citation sql.NullString

		err := rows.Scan(&rec.RunID, &rec.Document, &rec.Position,
			&rec.StudentRef, &source, &citation, &outcome, &rec.Distance)
		if err != nil {
			return nil, err
		}

		rec.Citation = citation.String
		if rec.Source, err = lookup.ParseSource(source); err != nil {
			return nil, fmt.Errorf("record %s/%d: %w", rec.RunID, rec.Position, err)
		}
		if err := rec.Outcome.UnmarshalText([]byte(outcome)); err != nil {
			return nil, fmt.Errorf("record %s/%d: %w", rec.RunID, rec.Position, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// FTS5 uses double quotes for phrase matching
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.,") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
