// Package selection maps lasso-selected map points back to county FIPS ids.
package selection

import (
	"strings"

	"github.com/banshee-data/mortality.report/internal/county"
)

// Delimiter separates the display text from the trailing county id in a
// map point label, e.g. "Autauga, Alabama<br>01001".
const Delimiter = "<br>"

// Point is one selected map point as reported by the map widget.
type Point struct {
	Text string  `json:"text"`
	Lat  float64 `json:"lat,omitempty"`
	Lon  float64 `json:"lon,omitempty"`
}

// Selection is the resolved set of county ids for one interaction. None
// reports that the user has made no selection at all, which is distinct from
// a selection whose ids match no records.
type Selection struct {
	None bool
	IDs  []string
}

// Count is the number of selected points, duplicates included.
func (s Selection) Count() int {
	return len(s.IDs)
}

// Unique returns the ids with duplicates removed, in first-seen order.
func (s Selection) Unique() []string {
	seen := make(map[string]struct{}, len(s.IDs))
	out := make([]string, 0, len(s.IDs))
	for _, id := range s.IDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Resolve maps each point to a county id, preserving input order and
// duplicates. An empty or nil point list yields the no-selection state.
func Resolve(points []Point) Selection {
	if len(points) == 0 {
		return Selection{None: true}
	}
	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = ParseLabel(p.Text)
	}
	return Selection{IDs: ids}
}

// ParseLabel extracts the county id from a point label: the text after the
// last Delimiter (the whole label when there is none), trimmed. A 4-character
// token has lost its leading zero in display formatting and gets exactly one
// "0" prepended.
func ParseLabel(label string) string {
	token := label
	if i := strings.LastIndex(label, Delimiter); i >= 0 {
		token = label[i+len(Delimiter):]
	}
	token = strings.TrimSpace(token)
	if len(token) == county.FIPSLength-1 {
		token = "0" + token
	}
	return token
}
