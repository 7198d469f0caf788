// Package county holds the static per-county reference table: FIPS id,
// centroid and display label. The table is built once at startup and is
// read-only afterwards, so it is safe to share between goroutines.
package county

import (
	"strings"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// FIPSLength is the width of a county FIPS code.
const FIPSLength = 5

// Ref is one row of the county reference table.
type Ref struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
}

// NormalizeFIPS trims the id and left-pads purely numeric ids with zeros to
// five characters. Ids that are not numeric are returned trimmed but
// otherwise unchanged.
func NormalizeFIPS(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) >= FIPSLength || !isDigits(id) {
		return id
	}
	return strings.Repeat("0", FIPSLength-len(id)) + id
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Table is the immutable county reference table.
type Table struct {
	refs  []Ref
	byID  map[string]int
	index *kdtree.Tree
}

// NewTable builds a table from refs. Ids are normalised; when an id appears
// more than once the first occurrence wins.
func NewTable(refs []Ref) *Table {
	t := &Table{
		refs: make([]Ref, 0, len(refs)),
		byID: make(map[string]int, len(refs)),
	}
	for _, r := range refs {
		r.ID = NormalizeFIPS(r.ID)
		if r.ID == "" {
			continue
		}
		if _, dup := t.byID[r.ID]; dup {
			continue
		}
		t.byID[r.ID] = len(t.refs)
		t.refs = append(t.refs, r)
	}
	t.index = buildIndex(t.refs)
	return t
}

// Len returns the number of counties.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.refs)
}

// Lookup returns the reference row for id.
func (t *Table) Lookup(id string) (Ref, bool) {
	if t == nil {
		return Ref{}, false
	}
	i, ok := t.byID[NormalizeFIPS(id)]
	if !ok {
		return Ref{}, false
	}
	return t.refs[i], true
}

// All returns a copy of the rows in load order.
func (t *Table) All() []Ref {
	if t == nil {
		return nil
	}
	out := make([]Ref, len(t.refs))
	copy(out, t.refs)
	return out
}

// Label returns the display label for id, or the id itself when unknown.
func (t *Table) Label(id string) string {
	if r, ok := t.Lookup(id); ok && r.Label != "" {
		return r.Label
	}
	return id
}
