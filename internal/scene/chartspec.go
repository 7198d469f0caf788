// Package scene turns aggregation results into declarative chart
// descriptions (ChartSpec) for the HTML and PNG renderers and the browser
// front end. A ChartSpec is built once per interaction and never mutated.
package scene

// AxisScale is the scale type of a chart axis.
type AxisScale string

const (
	ScaleLinear   AxisScale = "linear"
	ScaleLog      AxisScale = "log"
	ScaleCategory AxisScale = "category"
)

// SeriesKind is how a series is drawn.
type SeriesKind string

const (
	KindLine SeriesKind = "line"
	KindBar  SeriesKind = "bar"
)

// Axis describes one chart axis.
type Axis struct {
	Title      string    `json:"title,omitempty"`
	Scale      AxisScale `json:"scale"`
	FixedRange bool      `json:"fixed_range"`
}

// Series is one plotted series. X holds category labels (years or county
// labels); Y holds the values, aligned with X. Text is optional per-point
// hover text.
type Series struct {
	Name    string     `json:"name"`
	Kind    SeriesKind `json:"kind"`
	X       []string   `json:"x"`
	Y       []float64  `json:"y"`
	Text    []string   `json:"text,omitempty"`
	Markers bool       `json:"markers"`
	Color   string     `json:"color,omitempty"`
}

// ChartSpec is the complete description of the selection chart.
type ChartSpec struct {
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Series      []Series `json:"series"`
	XAxis       Axis     `json:"x_axis"`
	YAxis       Axis     `json:"y_axis"`
	ShowLegend  bool     `json:"show_legend"`
	Background  string   `json:"background"`
	Truncated   bool     `json:"truncated"`
	Placeholder bool     `json:"placeholder"`
	Error       bool     `json:"error"`
}

// Background is the paper and plot colour of the selection chart.
const Background = "#F4F4F8"

// SeriesColors is the qualitative palette cycled across time series.
var SeriesColors = []string{
	"#1b9e77", "#d95f02", "#7570b3", "#e7298a", "#66a61e",
	"#e6ab02", "#a6761d", "#666666", "#1b9e77",
}
