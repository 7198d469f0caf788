// Package aggregate filters, groups and reduces mortality records for a
// county selection. Every function here is pure over the read-only tables.
package aggregate

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/mortality.report/internal/county"
	"github.com/banshee-data/mortality.report/internal/mortality"
)

// MaxEntries caps every series and point list in a Result.
const MaxEntries = 500

// ErrNoTables is returned when the engine has no fact table to read.
var ErrNoTables = errors.New("mortality tables not loaded")

// Request is one aggregation input.
type Request struct {
	IDs               []string
	Year              int
	Mode              Mode
	IncludeUnreliable bool
}

// Point is one (year, value) pair of a time series.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Series is one county's time series.
type Series struct {
	CountyID string  `json:"county_id"`
	Label    string  `json:"label"`
	Points   []Point `json:"points"`
}

// Bar is one county's single-year aggregate.
type Bar struct {
	CountyID string  `json:"county_id"`
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
}

// Result holds either Series (all-years modes) or Bars (single-year modes).
// Truncated is set when any list was cut to MaxEntries.
type Result struct {
	Mode      Mode     `json:"mode"`
	Year      int      `json:"year"`
	Series    []Series `json:"series,omitempty"`
	Bars      []Bar    `json:"bars,omitempty"`
	Truncated bool     `json:"truncated"`
}

// Empty reports whether the result has nothing to plot.
func (r Result) Empty() bool {
	return len(r.Series) == 0 && len(r.Bars) == 0
}

// Engine aggregates over a fact table, labelling counties from the fact
// table first and the county reference table second.
type Engine struct {
	facts    *mortality.Table
	counties *county.Table
}

// NewEngine returns an engine over the given tables. counties may be nil.
func NewEngine(facts *mortality.Table, counties *county.Table) *Engine {
	return &Engine{facts: facts, counties: counties}
}

// Aggregate runs one request. Unknown years and counties are not errors;
// they produce an empty Result.
func (e *Engine) Aggregate(req Request) (Result, error) {
	if e == nil || e.facts == nil {
		return Result{}, ErrNoTables
	}
	if !req.Mode.Valid() {
		return Result{}, ErrUnknownMode
	}
	if req.Mode.AllYears() {
		return e.timeSeries(req), nil
	}
	return e.singleYear(req), nil
}

func (e *Engine) timeSeries(req Request) Result {
	res := Result{Mode: req.Mode, Year: req.Year}
	for _, id := range uniqueIDs(req.IDs) {
		records := e.facts.ForCounty(id)
		if len(records) == 0 {
			continue
		}
		pts := make([]Point, 0, len(records))
		for _, r := range records {
			v, ok := value(req.Mode, r, req.IncludeUnreliable)
			if !ok {
				continue
			}
			pts = append(pts, Point{Year: r.Year, Value: v})
		}
		if len(pts) == 0 {
			continue
		}
		if len(pts) > MaxEntries {
			pts = pts[:MaxEntries]
			res.Truncated = true
		}
		res.Series = append(res.Series, Series{CountyID: id, Label: e.label(id), Points: pts})
	}
	if len(res.Series) > MaxEntries {
		res.Series = res.Series[:MaxEntries]
		res.Truncated = true
	}
	return res
}

func (e *Engine) singleYear(req Request) Result {
	res := Result{Mode: req.Mode, Year: req.Year}
	for _, id := range uniqueIDs(req.IDs) {
		var vals []float64
		for _, r := range e.facts.ForCountyYear(id, req.Year) {
			if v, ok := value(req.Mode, r, req.IncludeUnreliable); ok {
				vals = append(vals, v)
			}
		}
		total := floats.Sum(vals)
		if total <= 0 {
			continue
		}
		res.Bars = append(res.Bars, Bar{CountyID: id, Label: e.label(id), Value: total})
	}
	sort.Slice(res.Bars, func(i, j int) bool {
		if res.Bars[i].Value != res.Bars[j].Value {
			return res.Bars[i].Value < res.Bars[j].Value
		}
		return res.Bars[i].CountyID < res.Bars[j].CountyID
	})
	if len(res.Bars) > MaxEntries {
		res.Bars = res.Bars[:MaxEntries]
		res.Truncated = true
	}
	return res
}

// value extracts the mode's statistic from r. ok is false for values that
// must be left out of sums and series.
func value(m Mode, r mortality.Record, includeUnreliable bool) (float64, bool) {
	var v float64
	var ok bool
	if m.Deaths() {
		v, ok = r.Deaths.Value, r.Deaths.Valid
	} else {
		v, ok = r.Rate.Resolve(includeUnreliable)
	}
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (e *Engine) label(id string) string {
	if l, ok := e.facts.Label(id); ok {
		return l
	}
	return e.counties.Label(id)
}

// uniqueIDs collapses duplicates in first-appearance order. Ids join the
// fact table exactly: one that is not already in canonical FIPS form, such as
// "123", matches nothing.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || county.NormalizeFIPS(id) != id {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
