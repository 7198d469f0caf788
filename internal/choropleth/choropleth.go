// Package choropleth builds the map layer specification for the county
// choropleth: one GeoJSON fill layer per rate bin for the selected year,
// coloured by a 16-entry colour scale, plus the legend annotations.
package choropleth

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/mortality.report/internal/monitoring"
)

// Years is the discrete set of years with map layers.
var Years = []int{2003, 2004, 2005, 2006, 2007, 2008, 2009, 2010, 2011, 2012, 2013, 2014, 2015}

// Bins are the rate ranges used to colour counties, lowest first.
var Bins = []string{
	"0-2", "2.1-4", "4.1-6", "6.1-8", "8.1-10", "10.1-12", "12.1-14",
	"14.1-16", "16.1-18", "18.1-20", "20.1-22", "22.1-24", "24.1-26",
	"26.1-28", "28.1-30", ">30",
}

// DefaultColorscale maps 1:1 onto Bins.
var DefaultColorscale = []string{
	"#2a4858", "#265465", "#1e6172", "#106e7c", "#007b84",
	"#00898a", "#00968e", "#19a390", "#31b08f", "#4abd8c", "#64c988",
	"#80d482", "#9cdf7c", "#bae976", "#d9f271", "#fafa6e",
}

const (
	// DefaultOpacity is the initial fill opacity of the bin layers.
	DefaultOpacity = 0.8
	// DefaultGeoJSONBase hosts one GeoJSON file per year and bin.
	DefaultGeoJSONBase = "https://raw.githubusercontent.com/jackparmer/mapbox-counties/master/"
	// DefaultStyle is the basemap style.
	DefaultStyle = "light"
	// LegendTitle heads the legend annotations.
	LegendTitle = "<b>Age-adjusted death rate<br>per county per year</b>"
)

// Viewport is the map centre and zoom.
type Viewport struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport frames the contiguous United States.
var DefaultViewport = Viewport{Lat: 38.72490, Lon: -95.61446, Zoom: 3.2}

// IsZero reports whether no viewport was supplied.
func (v Viewport) IsZero() bool {
	return v == Viewport{}
}

// Request is one map rebuild: year slider, opacity slider, colour picker and
// the viewport carried over from the previous map state.
type Request struct {
	Year       int
	Opacity    float64
	Colorscale []string
	Viewport   Viewport
}

// Layer is one GeoJSON fill layer.
type Layer struct {
	Bin        string  `json:"bin"`
	Year       int     `json:"year"`
	SourceType string  `json:"sourcetype"`
	Source     string  `json:"source"`
	Type       string  `json:"type"`
	Color      string  `json:"color"`
	Opacity    float64 `json:"opacity"`
}

// LegendEntry pairs a bin with its colour.
type LegendEntry struct {
	Bin   string `json:"bin"`
	Color string `json:"color"`
}

// MapSpec is the map description consumed by the basemap widget.
type MapSpec struct {
	Year        int           `json:"year"`
	Style       string        `json:"style"`
	Viewport    Viewport      `json:"viewport"`
	Layers      []Layer       `json:"layers"`
	LegendTitle string        `json:"legend_title"`
	Legend      []LegendEntry `json:"legend"`
	DragMode    string        `json:"dragmode"`
	HoverMode   string        `json:"hovermode"`
}

// Builder builds map specs against a GeoJSON host.
type Builder struct {
	GeoJSONBase string
	Style       string
}

// NewBuilder returns a builder for base, defaulting to DefaultGeoJSONBase.
func NewBuilder(base string) *Builder {
	if base == "" {
		base = DefaultGeoJSONBase
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Builder{GeoJSONBase: base, Style: DefaultStyle}
}

// Build produces the layers and legend for req. A colour scale that does not
// have exactly one colour per bin is replaced by DefaultColorscale, opacity is
// clamped to [0, 1] and a zero viewport becomes DefaultViewport. Years
// outside Years are not rejected; their layer sources simply will not exist.
func (b *Builder) Build(req Request) MapSpec {
	colors := req.Colorscale
	if !ValidColorscale(colors) {
		if len(colors) > 0 {
			monitoring.Logf("choropleth: colour scale has %d entries, want %d; using default", len(colors), len(Bins))
		}
		colors = DefaultColorscale
	}
	opacity := ClampOpacity(req.Opacity)
	vp := req.Viewport
	if vp.IsZero() {
		vp = DefaultViewport
	}

	spec := MapSpec{
		Year:        req.Year,
		Style:       b.Style,
		Viewport:    vp,
		Layers:      make([]Layer, len(Bins)),
		LegendTitle: LegendTitle,
		Legend:      make([]LegendEntry, len(Bins)),
		DragMode:    "lasso",
		HoverMode:   "closest",
	}
	for i, bin := range Bins {
		spec.Layers[i] = Layer{
			Bin:        bin,
			Year:       req.Year,
			SourceType: "geojson",
			Source:     b.LayerSource(req.Year, bin),
			Type:       "fill",
			Color:      colors[i],
			Opacity:    opacity,
		}
	}
	// highest bin first, as drawn top to bottom
	for i := range Bins {
		j := len(Bins) - 1 - i
		spec.Legend[i] = LegendEntry{Bin: Bins[j], Color: colors[j]}
	}
	return spec
}

// LayerSource is the GeoJSON URL for one year and bin.
func (b *Builder) LayerSource(year int, bin string) string {
	return fmt.Sprintf("%s%d/%s.geojson", b.GeoJSONBase, year, bin)
}

// ValidColorscale reports whether colors has one non-empty entry per bin.
func ValidColorscale(colors []string) bool {
	if len(colors) != len(Bins) {
		return false
	}
	for _, c := range colors {
		if strings.TrimSpace(c) == "" {
			return false
		}
	}
	return true
}

// ClampOpacity limits v to [0, 1]; NaN becomes DefaultOpacity.
func ClampOpacity(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultOpacity
	}
	return math.Max(0, math.Min(1, v))
}

// KnownYear reports whether year has map layers.
func KnownYear(year int) bool {
	for _, y := range Years {
		if y == year {
			return true
		}
	}
	return false
}

// BinFor returns the bin label for a rate value.
func BinFor(rate float64) string {
	if rate <= 2 {
		return Bins[0]
	}
	if rate > 30 {
		return Bins[len(Bins)-1]
	}
	// bins after the first cover (2k, 2k+2] for k = 1..14
	i := int(math.Ceil(rate/2)) - 1
	if i < 1 {
		i = 1
	}
	if i > len(Bins)-2 {
		i = len(Bins) - 2
	}
	return Bins[i]
}
