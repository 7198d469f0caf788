package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/banshee-data/mortality.report/internal/county"
	"github.com/banshee-data/mortality.report/internal/mortality"
)

// ImportCounties replaces the stored county reference table with t.
func (db *DB) ImportCounties(ctx context.Context, t *county.Table) (int, error) {
	refs := t.All()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM counties`); err != nil {
			return fmt.Errorf("clear counties: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO counties (county_id, latitude, longitude, label)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.ExecContext(ctx, r.ID, r.Latitude, r.Longitude, r.Label); err != nil {
				return fmt.Errorf("insert county %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(refs), nil
}

// ImportRecords replaces the stored fact table with t. Source order is kept.
func (db *DB) ImportRecords(ctx context.Context, t *mortality.Table) (int, error) {
	records := t.All()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM mortality_records`); err != nil {
			return fmt.Errorf("clear records: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO mortality_records
				(county_id, year, deaths, rate_kind, rate_value, rate_text, label)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range records {
			var deaths sql.NullFloat64
			if r.Deaths.Valid {
				deaths = sql.NullFloat64{Float64: r.Deaths.Value, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				r.CountyID, r.Year, deaths,
				r.Rate.Kind.String(), r.Rate.Value, r.Rate.String(), r.Label,
			); err != nil {
				return fmt.Errorf("insert record %s/%d: %w", r.CountyID, r.Year, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// LoadCounties reads the county reference table.
func (db *DB) LoadCounties(ctx context.Context) (*county.Table, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT county_id, latitude, longitude, label
		FROM counties
		ORDER BY county_id`)
	if err != nil {
		return nil, fmt.Errorf("query counties: %w", err)
	}
	defer rows.Close()

	var refs []county.Ref
	for rows.Next() {
		var r county.Ref
		if err := rows.Scan(&r.ID, &r.Latitude, &r.Longitude, &r.Label); err != nil {
			return nil, fmt.Errorf("scan county: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return county.NewTable(refs), nil
}

// LoadRecords reads the fact table in import order.
func (db *DB) LoadRecords(ctx context.Context) (*mortality.Table, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT county_id, year, deaths, rate_kind, rate_value, label
		FROM mortality_records
		ORDER BY record_id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []mortality.Record
	for rows.Next() {
		var (
			r      mortality.Record
			deaths sql.NullFloat64
			kind   string
		)
		if err := rows.Scan(&r.CountyID, &r.Year, &deaths, &kind, &r.Rate.Value, &r.Label); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Deaths = mortality.Measure{Value: deaths.Float64, Valid: deaths.Valid}
		if r.Rate.Kind, err = mortality.ParseRateKind(kind); err != nil {
			return nil, fmt.Errorf("record %s/%d: %w", r.CountyID, r.Year, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mortality.NewTable(records), nil
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
