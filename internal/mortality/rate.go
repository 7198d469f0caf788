package mortality

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RateKind tags an age-adjusted rate value.
type RateKind uint8

const (
	// RateInvalid marks source text that could not be parsed as a number.
	RateInvalid RateKind = iota
	// RateNumeric is a plain numeric rate.
	RateNumeric
	// RateUnreliable is a numeric rate flagged as statistically unreliable.
	RateUnreliable
)

func (k RateKind) String() string {
	switch k {
	case RateNumeric:
		return "numeric"
	case RateUnreliable:
		return "unreliable"
	default:
		return "invalid"
	}
}

// ParseRateKind is the inverse of RateKind.String.
func ParseRateKind(s string) (RateKind, error) {
	switch s {
	case "numeric":
		return RateNumeric, nil
	case "unreliable":
		return RateUnreliable, nil
	case "invalid":
		return RateInvalid, nil
	}
	return RateInvalid, fmt.Errorf("unknown rate kind %q", s)
}

// Rate is an age-adjusted death rate: Numeric(v), Unreliable(v) or Invalid.
// The zero value is Invalid.
type Rate struct {
	Kind  RateKind
	Value float64
}

// Numeric returns a plain rate.
func Numeric(v float64) Rate { return Rate{Kind: RateNumeric, Value: v} }

// Unreliable returns a rate carrying the unreliable flag.
func Unreliable(v float64) Rate { return Rate{Kind: RateUnreliable, Value: v} }

// Invalid returns the rate used for unparsable source values.
func Invalid() Rate { return Rate{} }

// Resolve returns the number used for aggregation. Unreliable rates resolve
// to their value when includeUnreliable is set and to 0 otherwise; the record
// still counts. ok is false only for Invalid rates.
func (r Rate) Resolve(includeUnreliable bool) (v float64, ok bool) {
	switch r.Kind {
	case RateNumeric:
		return r.Value, true
	case RateUnreliable:
		if includeUnreliable {
			return r.Value, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (r Rate) String() string {
	switch r.Kind {
	case RateNumeric:
		return strconv.FormatFloat(r.Value, 'f', -1, 64)
	case RateUnreliable:
		return strconv.FormatFloat(r.Value, 'f', -1, 64) + " (Unreliable)"
	default:
		return "invalid"
	}
}

// MarshalJSON encodes the rate as {"kind":..., "value":...}.
func (r Rate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  string  `json:"kind"`
		Value float64 `json:"value"`
	}{r.Kind.String(), r.Value})
}

var (
	unreliableMarker = regexp.MustCompile(`(?i)\(?\s*unreliable\s*\)?`)
	numberPattern    = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
)

// ParseRate parses a rate cell from the source data. A cell carrying an
// "Unreliable" marker in any position or case yields Unreliable with the
// first number found in the remaining text (0 when there is none). Empty or
// non-numeric cells such as "Suppressed" yield Invalid.
func ParseRate(text string) Rate {
	s := strings.TrimSpace(text)
	if s == "" {
		return Invalid()
	}
	if unreliableMarker.MatchString(s) {
		rest := unreliableMarker.ReplaceAllString(s, " ")
		m := numberPattern.FindString(strings.ReplaceAll(rest, ",", ""))
		if m == "" {
			return Unreliable(0)
		}
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return Unreliable(0)
		}
		return Unreliable(v)
	}
	if v, ok := parseNumber(s); ok {
		return Numeric(v)
	}
	return Invalid()
}

// Measure is a lenient numeric cell such as a death count.
type Measure struct {
	Value float64
	Valid bool
}

// ParseMeasure parses a numeric cell, tolerating thousands separators.
func ParseMeasure(text string) Measure {
	v, ok := parseNumber(text)
	return Measure{Value: v, Valid: ok}
}

// MarshalJSON encodes an invalid measure as null.
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func parseNumber(text string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
