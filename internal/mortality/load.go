package mortality

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/mortality.report/internal/county"
	"github.com/banshee-data/mortality.report/internal/monitoring"
)

// Column aliases across the three dashboard exports of the source data.
var (
	idColumns     = []string{"county code", "fips", "fips code", "county_code"}
	yearColumns   = []string{"year"}
	deathsColumns = []string{"deaths", "death count", "deathcount"}
	rateColumns   = []string{"age adjusted rate", "age-adjusted rate", "age_adjusted_rate", "rate"}
	stateColumns  = []string{"unnamed: 0", "state"}
	countyColumns = []string{"county", "label"}
)

// LoadStats reports what LoadCSV skipped or could not parse.
type LoadStats struct {
	Rows          int
	Skipped       int
	InvalidRates  int
	InvalidDeaths int
}

// LoadFile opens path and loads it with LoadCSV.
func LoadFile(path string) (*Table, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open mortality table: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads the fact table. Rows with an empty county id or unparsable
// year are skipped; unparsable rates and death counts are kept as Invalid so
// the aggregation policy decides what they mean.
func LoadCSV(r io.Reader) (*Table, LoadStats, error) {
	var stats LoadStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read mortality header: %w", err)
	}
	cols := county.IndexHeader(header)
	idIdx := county.FindColumn(cols, idColumns...)
	yearIdx := county.FindColumn(cols, yearColumns...)
	if idIdx < 0 || yearIdx < 0 {
		return nil, stats, fmt.Errorf("mortality table header %q: %w", header, county.ErrMissingColumn)
	}
	deathsIdx := county.FindColumn(cols, deathsColumns...)
	rateIdx := county.FindColumn(cols, rateColumns...)
	stateIdx := county.FindColumn(cols, stateColumns...)
	countyIdx := county.FindColumn(cols, countyColumns...)

	var records []Record
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, stats, fmt.Errorf("read mortality row %d: %w", line, err)
		}
		stats.Rows++

		id := county.NormalizeFIPS(cell(rec, idIdx))
		year, ok := parseYear(cell(rec, yearIdx))
		if id == "" || !ok {
			stats.Skipped++
			monitoring.Logf("mortality table row %d: bad id %q or year %q, skipped", line, cell(rec, idIdx), cell(rec, yearIdx))
			continue
		}

		row := Record{
			CountyID: id,
			Year:     year,
			Deaths:   ParseMeasure(cell(rec, deathsIdx)),
			Rate:     ParseRate(cell(rec, rateIdx)),
			Label:    joinLabel(cell(rec, stateIdx), cell(rec, countyIdx)),
		}
		if row.Rate.Kind == RateInvalid {
			stats.InvalidRates++
		}
		if !row.Deaths.Valid {
			stats.InvalidDeaths++
		}
		records = append(records, row)
	}
	return NewTable(records), stats, nil
}

func joinLabel(state, name string) string {
	state, name = strings.TrimSpace(state), strings.TrimSpace(name)
	switch {
	case state != "" && name != "":
		return state + ", " + name
	case name != "":
		return name
	default:
		return state
	}
}

func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}
