// Package mortality holds the per-county-per-year fact table. Rates are
// parsed into a tagged Rate value at ingestion so the unreliable-value policy
// is a single switch in the aggregation code rather than string handling.
package mortality

import (
	"sort"

	"github.com/banshee-data/mortality.report/internal/county"
)

// Record is one row of the fact table.
type Record struct {
	CountyID string  `json:"county_id"`
	Year     int     `json:"year"`
	Deaths   Measure `json:"deaths"`
	Rate     Rate    `json:"rate"`
	Label    string  `json:"label"`
}

// Table is the immutable fact table, indexed by county.
type Table struct {
	records  []Record
	byCounty map[string][]int
	years    []int
}

// NewTable indexes records. County ids are normalised; each county's rows
// are kept in year order, ties in input order.
func NewTable(records []Record) *Table {
	t := &Table{
		records:  make([]Record, len(records)),
		byCounty: make(map[string][]int),
	}
	copy(t.records, records)

	seenYear := make(map[int]struct{})
	for i := range t.records {
		r := &t.records[i]
		r.CountyID = county.NormalizeFIPS(r.CountyID)
		t.byCounty[r.CountyID] = append(t.byCounty[r.CountyID], i)
		if _, ok := seenYear[r.Year]; !ok {
			seenYear[r.Year] = struct{}{}
			t.years = append(t.years, r.Year)
		}
	}
	sort.Ints(t.years)
	for _, idx := range t.byCounty {
		sort.SliceStable(idx, func(a, b int) bool {
			return t.records[idx[a]].Year < t.records[idx[b]].Year
		})
	}
	return t
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Years returns the distinct years present, ascending.
func (t *Table) Years() []int {
	if t == nil {
		return nil
	}
	out := make([]int, len(t.years))
	copy(out, t.years)
	return out
}

// ForCounty returns the county's records ordered by year.
func (t *Table) ForCounty(id string) []Record {
	if t == nil {
		return nil
	}
	idx := t.byCounty[county.NormalizeFIPS(id)]
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = t.records[j]
	}
	return out
}

// ForCountyYear returns the county's records for one year, in input order.
func (t *Table) ForCountyYear(id string, year int) []Record {
	var out []Record
	for _, r := range t.ForCounty(id) {
		if r.Year == year {
			out = append(out, r)
		}
	}
	return out
}

// Label returns the first non-empty record label for the county.
func (t *Table) Label(id string) (string, bool) {
	for _, r := range t.ForCounty(id) {
		if r.Label != "" {
			return r.Label, true
		}
	}
	return "", false
}

// All returns a copy of every record in input order.
func (t *Table) All() []Record {
	if t == nil {
		return nil
	}
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}
