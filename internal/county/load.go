package county

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/mortality.report/internal/monitoring"
)

// ErrMissingColumn is returned when a required CSV column cannot be found.
var ErrMissingColumn = errors.New("missing required column")

// Header aliases seen across the source CSV exports. Headers are compared
// after trimming and lower-casing, so "FIPS " and "Latitude " match.
var (
	idColumns    = []string{"fips", "fips code", "county code", "id"}
	latColumns   = []string{"latitude", "lat"}
	lonColumns   = []string{"longitude", "lon", "long"}
	labelColumns = []string{"hover", "label", "county", "name"}
)

// LoadFile opens path and loads it with LoadCSV.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open county table: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads the county reference table. Rows with an empty id or
// unparsable coordinates are skipped and logged.
func LoadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read county header: %w", err)
	}
	cols := IndexHeader(header)
	idIdx := FindColumn(cols, idColumns...)
	latIdx := FindColumn(cols, latColumns...)
	lonIdx := FindColumn(cols, lonColumns...)
	if idIdx < 0 || latIdx < 0 || lonIdx < 0 {
		return nil, fmt.Errorf("county table header %q: %w", header, ErrMissingColumn)
	}
	labelIdx := FindColumn(cols, labelColumns...)

	var refs []Ref
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read county row %d: %w", line, err)
		}
		id := NormalizeFIPS(field(rec, idIdx))
		if id == "" {
			monitoring.Logf("county table row %d: empty id, skipped", line)
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(field(rec, latIdx)), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(field(rec, lonIdx)), 64)
		if errLat != nil || errLon != nil {
			monitoring.Logf("county table row %d (%s): bad coordinates, skipped", line, id)
			continue
		}
		refs = append(refs, Ref{
			ID:        id,
			Latitude:  lat,
			Longitude: lon,
			Label:     strings.TrimSpace(field(rec, labelIdx)),
		})
	}
	return NewTable(refs), nil
}

// IndexHeader maps normalised header names to their column index.
func IndexHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

// FindColumn returns the index of the first alias present in cols, or -1.
func FindColumn(cols map[string]int, aliases ...string) int {
	for _, a := range aliases {
		if i, ok := cols[a]; ok {
			return i
		}
	}
	return -1
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}
