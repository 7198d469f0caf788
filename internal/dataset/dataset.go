// Package dataset loads the two static tables, from CSV exports or from the
// sqlite store, and reports their sizes to metrics.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/banshee-data/mortality.report/internal/county"
	"github.com/banshee-data/mortality.report/internal/db"
	"github.com/banshee-data/mortality.report/internal/metrics"
	"github.com/banshee-data/mortality.report/internal/mortality"
)

// ErrEmptyStore is returned by FromDB when the store has no records.
var ErrEmptyStore = errors.New("store has no mortality records")

// Tables holds the immutable inputs of the chart pipeline.
type Tables struct {
	Counties *county.Table
	Facts    *mortality.Table
	Stats    mortality.LoadStats
	Source   string
}

// FromCSV loads both tables from CSV exports.
func FromCSV(countiesPath, factsPath string) (Tables, error) {
	counties, err := county.LoadFile(countiesPath)
	if err != nil {
		return Tables{}, err
	}
	facts, stats, err := mortality.LoadFile(factsPath)
	if err != nil {
		return Tables{}, err
	}
	t := Tables{Counties: counties, Facts: facts, Stats: stats, Source: "csv"}
	t.report()
	return t, nil
}

// FromDB loads both tables from the store.
func FromDB(ctx context.Context, store *db.DB) (Tables, error) {
	counties, err := store.LoadCounties(ctx)
	if err != nil {
		return Tables{}, err
	}
	facts, err := store.LoadRecords(ctx)
	if err != nil {
		return Tables{}, err
	}
	if facts.Len() == 0 {
		return Tables{}, ErrEmptyStore
	}
	t := Tables{Counties: counties, Facts: facts, Source: "sqlite:" + store.Path()}
	t.report()
	return t, nil
}

// Load prefers the store when one is given and populated, and falls back to
// the CSV exports otherwise.
func Load(ctx context.Context, store *db.DB, countiesPath, factsPath string) (Tables, error) {
	if store != nil {
		t, err := FromDB(ctx, store)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrEmptyStore) {
			return Tables{}, fmt.Errorf("load from store: %w", err)
		}
		log.Printf("store %s is empty, loading CSV exports", store.Path())
	}
	return FromCSV(countiesPath, factsPath)
}

func (t Tables) report() {
	metrics.TableRows.WithLabelValues("counties").Set(float64(t.Counties.Len()))
	metrics.TableRows.WithLabelValues("mortality_records").Set(float64(t.Facts.Len()))
	metrics.MalformedValuesTotal.WithLabelValues("rate").Add(float64(t.Stats.InvalidRates))
	metrics.MalformedValuesTotal.WithLabelValues("deaths").Add(float64(t.Stats.InvalidDeaths))
	metrics.MalformedValuesTotal.WithLabelValues("row").Add(float64(t.Stats.Skipped))
	log.Printf("loaded %d counties and %d mortality records (%d rows skipped, %d invalid rates) from %s",
		t.Counties.Len(), t.Facts.Len(), t.Stats.Skipped, t.Stats.InvalidRates, t.Source)
}
