package aggregate

import (
	"errors"
	"fmt"
)

// ErrUnknownMode is returned for a display mode name that is not recognised.
var ErrUnknownMode = errors.New("unknown display mode")

// Mode selects the statistic and whether it is shown per year or summed for
// a single year.
type Mode string

const (
	ModeRateSingleYear   Mode = "rate_single_year"
	ModeDeathsSingleYear Mode = "deaths_single_year"
	ModeDeathsAllYears   Mode = "deaths_all_years"
	ModeRateAllYears     Mode = "rate_all_years"
)

// DefaultMode is the age-adjusted rate over all years.
const DefaultMode = ModeRateAllYears

// Modes lists every display mode in dropdown order.
func Modes() []Mode {
	return []Mode{ModeRateSingleYear, ModeDeathsSingleYear, ModeDeathsAllYears, ModeRateAllYears}
}

// ParseMode validates a mode name. An empty name yields DefaultMode.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return DefaultMode, nil
	}
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeRateSingleYear, ModeDeathsSingleYear, ModeDeathsAllYears, ModeRateAllYears:
		return true
	}
	return false
}

// AllYears reports whether the mode produces a per-county time series.
func (m Mode) AllYears() bool {
	return m == ModeDeathsAllYears || m == ModeRateAllYears
}

// Deaths reports whether the mode aggregates death counts rather than rates.
func (m Mode) Deaths() bool {
	return m == ModeDeathsSingleYear || m == ModeDeathsAllYears
}

// Label is the human-readable statistic name used in titles.
func (m Mode) Label() string {
	if m.Deaths() {
		return "Total deaths"
	}
	return "Age-adjusted death rate"
}
