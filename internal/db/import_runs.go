package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportRun records one execution of the importer.
type ImportRun struct {
	ID             string    `json:"id"`
	CountiesSource string    `json:"counties_source"`
	FactsSource    string    `json:"facts_source"`
	CountyRows     int       `json:"county_rows"`
	RecordRows     int       `json:"record_rows"`
	SkippedRows    int       `json:"skipped_rows"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordImportRun stores run, assigning an ID and timestamp when unset.
func (db *DB) RecordImportRun(ctx context.Context, run ImportRun) (ImportRun, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO import_runs
			(run_id, counties_source, facts_source, county_rows, record_rows, skipped_rows, created_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CountiesSource, run.FactsSource,
		run.CountyRows, run.RecordRows, run.SkippedRows, run.CreatedAt.Unix(),
	)
	if err != nil {
		return ImportRun{}, fmt.Errorf("insert import run: %w", err)
	}
	return run, nil
}

// ListImportRuns returns the most recent runs first. limit <= 0 means all.
func (db *DB) ListImportRuns(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, counties_source, facts_source, county_rows, record_rows, skipped_rows, created_unix
		FROM import_runs
		ORDER BY created_unix DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var (
			r       ImportRun
			created int64
		)
		if err := rows.Scan(&r.ID, &r.CountiesSource, &r.FactsSource, &r.CountyRows, &r.RecordRows, &r.SkippedRows, &created); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
