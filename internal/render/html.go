// Package render turns a scene.ChartSpec into a standalone document: an
// interactive HTML page through go-echarts or a static PNG through
// gonum/plot.
package render

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/mortality.report/internal/metrics"
	"github.com/banshee-data/mortality.report/internal/scene"
)

// AssetsHost is where the rendered page loads echarts.min.js from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

const (
	htmlWidth  = "100%"
	htmlHeight = "600px"
	gapValue   = "-"
)

var (
	lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlTag   = regexp.MustCompile(`<[^>]*>`)
)

// RenderHTML writes spec as a self-contained echarts page.
func RenderHTML(w io.Writer, spec scene.ChartSpec) error {
	start := time.Now()
	defer observe("html", start)

	var chart components.Charter
	if isBar(spec) {
		chart = htmlBar(spec)
	} else {
		chart = htmlLine(spec)
	}

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.PageTitle = plainText(spec.Title)
	page.AddCharts(chart)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func globalOpts(spec scene.ChartSpec) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:           htmlWidth,
			Height:          htmlHeight,
			BackgroundColor: spec.Background,
			AssetsHost:      AssetsHost,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    textWithBreaks(spec.Title),
			Subtitle: textWithBreaks(spec.Subtitle),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(!spec.Placeholder)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(spec.ShowLegend), Bottom: "0"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:         spec.XAxis.Title,
			NameLocation: "middle",
			NameGap:      25,
			Type:         "category",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:         plainText(spec.YAxis.Title),
			NameLocation: "middle",
			NameGap:      45,
			Type:         axisType(spec.YAxis.Scale),
		}),
	}
}

func htmlLine(spec scene.ChartSpec) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOpts(spec)...)

	categories := yearCategories(spec.Series)
	line.SetXAxis(categories)
	for _, s := range spec.Series {
		byX := make(map[string]float64, len(s.X))
		for i, x := range s.X {
			if _, dup := byX[x]; !dup && i < len(s.Y) {
				byX[x] = s.Y[i]
			}
		}
		data := make([]opts.LineData, len(categories))
		for i, c := range categories {
			if v, ok := byX[c]; ok {
				data[i] = opts.LineData{Value: v}
			} else {
				data[i] = opts.LineData{Value: gapValue}
			}
		}
		seriesOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(s.Markers)}),
		}
		if s.Color != "" {
			seriesOpts = append(seriesOpts, charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}))
		}
		line.AddSeries(s.Name, data, seriesOpts...)
	}
	return line
}

func htmlBar(spec scene.ChartSpec) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOpts(spec)...)

	s := spec.Series[0]
	data := make([]opts.BarData, len(s.Y))
	for i, v := range s.Y {
		data[i] = opts.BarData{Name: s.X[i], Value: v}
	}
	bar.SetXAxis(s.X).AddSeries(s.Name, data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
	)
	return bar
}

// yearCategories is the sorted union of x values across series. Numeric
// values sort numerically and come before anything else.
func yearCategories(series []scene.Series) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range series {
		for _, x := range s.X {
			if _, ok := seen[x]; ok {
				continue
			}
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, errA := strconv.ParseFloat(out[i], 64)
		b, errB := strconv.ParseFloat(out[j], 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return out[i] < out[j]
	})
	return out
}

func isBar(spec scene.ChartSpec) bool {
	return len(spec.Series) > 0 && spec.Series[0].Kind == scene.KindBar
}

func axisType(s scene.AxisScale) string {
	switch s {
	case scene.ScaleLog:
		return "log"
	case scene.ScaleCategory:
		return "category"
	}
	return "value"
}

// textWithBreaks keeps line breaks as newlines and drops other markup.
func textWithBreaks(s string) string {
	return strings.TrimSpace(htmlTag.ReplaceAllString(lineBreak.ReplaceAllString(s, "\n"), ""))
}

// plainText flattens s onto a single line without markup.
func plainText(s string) string {
	return strings.TrimSpace(htmlTag.ReplaceAllString(lineBreak.ReplaceAllString(s, " "), ""))
}

func observe(format string, start time.Time) {
	metrics.RenderDurationMs.WithLabelValues(format).Observe(float64(time.Since(start).Microseconds()) / 1000)
}
