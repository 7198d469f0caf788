package scene

import (
	"fmt"
	"strconv"

	"github.com/banshee-data/mortality.report/internal/aggregate"
)

// Title fragments shared with the front end.
const (
	PlaceholderTitle = "Drag-select on the map"
	ErrorTitle       = "Chart unavailable"
	TruncatedNotice  = "<br>(only 1st 500 shown)"
	NoDataNotice     = "<br>(no data)"

	rateAxisTitle   = "Age-adjusted death rate per county per year"
	deathsAxisTitle = "Deaths per county per year"
)

// Meta carries the presentation inputs that are not part of the aggregate.
// LogScale and ShowLegend are passed through unchanged.
type Meta struct {
	Mode           aggregate.Mode
	Year           int
	SelectionCount int
	Truncated      bool
	LogScale       bool
	ShowLegend     bool
}

// Build converts an aggregation result into a ChartSpec.
func Build(res aggregate.Result, meta Meta) ChartSpec {
	truncated := meta.Truncated || res.Truncated
	if meta.Mode.AllYears() {
		return buildTimeSeries(res, meta, truncated)
	}
	return buildBars(res, meta, truncated)
}

func buildTimeSeries(res aggregate.Result, meta Meta, truncated bool) ChartSpec {
	yTitle := rateAxisTitle
	if meta.Mode.Deaths() {
		yTitle = deathsAxisTitle
	}
	spec := ChartSpec{
		Title:      fmt.Sprintf("<b>%d</b> counties selected", meta.SelectionCount),
		Series:     make([]Series, 0, len(res.Series)),
		XAxis:      Axis{Title: "Year", Scale: ScaleCategory, FixedRange: true},
		YAxis:      Axis{Title: yTitle, Scale: ScaleLinear, FixedRange: true},
		ShowLegend: meta.ShowLegend,
		Background: Background,
		Truncated:  truncated,
	}
	for i, s := range res.Series {
		out := Series{
			Name:    s.Label,
			Kind:    KindLine,
			X:       make([]string, len(s.Points)),
			Y:       make([]float64, len(s.Points)),
			Text:    make([]string, len(s.Points)),
			Markers: true,
			Color:   SeriesColors[i%len(SeriesColors)],
		}
		for j, p := range s.Points {
			out.X[j] = strconv.Itoa(p.Year)
			out.Y[j] = p.Value
			out.Text[j] = s.Label
		}
		spec.Series = append(spec.Series, out)
	}
	if truncated {
		spec.Title += TruncatedNotice
	}
	if len(spec.Series) == 0 {
		spec.Title += NoDataNotice
	}
	return spec
}

func buildBars(res aggregate.Result, meta Meta, truncated bool) ChartSpec {
	yScale := ScaleLinear
	if meta.LogScale {
		yScale = ScaleLog
	}
	spec := ChartSpec{
		Title:      fmt.Sprintf("%s per county, %d", meta.Mode.Label(), meta.Year),
		Subtitle:   fmt.Sprintf("%d counties selected", meta.SelectionCount),
		XAxis:      Axis{Title: "County", Scale: ScaleCategory},
		YAxis:      Axis{Title: meta.Mode.Label(), Scale: yScale},
		ShowLegend: meta.ShowLegend,
		Background: Background,
		Truncated:  truncated,
	}
	if len(res.Bars) > 0 {
		bar := Series{
			Name:  meta.Mode.Label(),
			Kind:  KindBar,
			X:     make([]string, len(res.Bars)),
			Y:     make([]float64, len(res.Bars)),
			Text:  make([]string, len(res.Bars)),
			Color: SeriesColors[0],
		}
		for i, b := range res.Bars {
			bar.X[i] = b.Label
			bar.Y[i] = b.Value
			bar.Text[i] = b.CountyID
		}
		spec.Series = []Series{bar}
	} else {
		spec.Series = []Series{}
		spec.Title += NoDataNotice
	}
	if truncated {
		spec.Title += TruncatedNotice
	}
	return spec
}

// Placeholder is the fixed chart shown before any selection is made: a
// single degenerate point and a prompt title, with no axis content.
func Placeholder() ChartSpec {
	return ChartSpec{
		Title: PlaceholderTitle,
		Series: []Series{{
			Kind: KindLine,
			X:    []string{"0"},
			Y:    []float64{0},
		}},
		XAxis:       Axis{Scale: ScaleLinear},
		YAxis:       Axis{Scale: ScaleLinear},
		Background:  Background,
		Placeholder: true,
	}
}

// ErrorSpec is the static error panel shown when a chart could not be
// computed.
func ErrorSpec(msg string) ChartSpec {
	spec := Placeholder()
	spec.Title = ErrorTitle
	spec.Subtitle = msg
	spec.Placeholder = false
	spec.Error = true
	return spec
}

// Headline is the one-line summary shown above the map.
func Headline(year int, mode aggregate.Mode, selected int, none bool) string {
	var sel string
	switch {
	case none || selected == 0:
		sel = "no counties selected"
	case selected == 1:
		sel = "1 county selected"
	default:
		sel = fmt.Sprintf("%d counties selected", selected)
	}
	return fmt.Sprintf("%d · %s · %s", year, mode.Label(), sel)
}
