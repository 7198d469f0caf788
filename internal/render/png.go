package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/mortality.report/internal/scene"
)

// Default PNG size in pixels.
const (
	DefaultWidth  = 900
	DefaultHeight = 500
	maxPixels     = 4000
	dpi           = 96
)

// RenderPNG writes spec as a width x height PNG. Non-positive sizes fall
// back to the defaults.
func RenderPNG(w io.Writer, spec scene.ChartSpec, width, height int) (err error) {
	start := time.Now()
	defer observe("png", start)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render png: %v", r)
		}
	}()

	width, height = clampSize(width, DefaultWidth), clampSize(height, DefaultHeight)

	p := plot.New()
	p.Title.Text = plainText(spec.Title)
	if sub := plainText(spec.Subtitle); sub != "" {
		p.Title.Text += "\n" + sub
	}
	p.X.Label.Text = plainText(spec.XAxis.Title)
	p.Y.Label.Text = plainText(spec.YAxis.Title)
	p.BackgroundColor = parseHex(spec.Background, color.White)
	p.Legend.Top = true

	if isBar(spec) {
		err = pngBars(p, spec)
	} else {
		err = pngLines(p, spec)
	}
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(pixels(width), pixels(height), "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func pngLines(p *plot.Plot, spec scene.ChartSpec) error {
	colors := generateColors(len(spec.Series))
	for i, s := range spec.Series {
		pts := make(plotter.XYs, 0, len(s.X))
		for j, x := range s.X {
			xv, err := strconv.ParseFloat(x, 64)
			if err != nil || j >= len(s.Y) {
				continue
			}
			pts = append(pts, plotter.XY{X: xv, Y: s.Y[j]})
		}
		if len(pts) == 0 {
			continue
		}
		c := parseHex(s.Color, colors[i])
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Color = c
		line.Width = vg.Points(1)
		if s.Markers {
			points.Color = c
			points.Radius = vg.Points(2)
			p.Add(line, points)
		} else {
			p.Add(line)
		}
		if spec.ShowLegend && s.Name != "" {
			p.Legend.Add(s.Name, line)
		}
	}
	if spec.XAxis.Scale == scene.ScaleCategory {
		p.X.Tick.Marker = plot.TickerFunc(yearTicks)
	}
	return nil
}

func pngBars(p *plot.Plot, spec scene.ChartSpec) error {
	s := spec.Series[0]
	c := parseHex(s.Color, color.Black)

	if spec.YAxis.Scale == scene.ScaleLog {
		return pngLogBars(p, spec, c)
	}

	bars, err := plotter.NewBarChart(plotter.Values(s.Y), vg.Points(barWidth(len(s.Y))))
	if err != nil {
		return fmt.Errorf("bars: %w", err)
	}
	bars.Color = c
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(s.X...)
	if spec.ShowLegend {
		p.Legend.Add(s.Name, bars)
	}
	return nil
}

// pngLogBars draws each bar as a thick stem from just below the smallest
// value, since a bar chart's zero baseline cannot sit on a log axis.
func pngLogBars(p *plot.Plot, spec scene.ChartSpec, c color.Color) error {
	s := spec.Series[0]
	floor := math.Inf(1)
	for _, v := range s.Y {
		if v > 0 && v < floor {
			floor = v
		}
	}
	if math.IsInf(floor, 1) {
		return fmt.Errorf("log scale needs at least one positive value")
	}
	floor /= 2

	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	for i, v := range s.Y {
		if v <= 0 {
			continue
		}
		stem, err := plotter.NewLine(plotter.XYs{{X: float64(i), Y: floor}, {X: float64(i), Y: v}})
		if err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
		stem.Color = c
		stem.Width = vg.Points(barWidth(len(s.Y)))
		p.Add(stem)
		if i == 0 && spec.ShowLegend {
			p.Legend.Add(s.Name, stem)
		}
	}
	p.NominalX(s.X...)
	p.Y.Min = floor
	return nil
}

func barWidth(n int) float64 {
	switch {
	case n <= 10:
		return 20
	case n <= 50:
		return 8
	}
	return 2
}

// yearTicks labels whole years only.
func yearTicks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for y := math.Ceil(min); y <= max; y++ {
		ticks = append(ticks, plot.Tick{Value: y, Label: strconv.Itoa(int(y))})
	}
	return ticks
}

func pixels(n int) vg.Length {
	return vg.Length(n) * vg.Inch / dpi
}

func clampSize(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > maxPixels {
		return maxPixels
	}
	return n
}

// parseHex reads #rrggbb, returning def for anything else.
func parseHex(s string, def color.Color) color.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return def
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// generateColors creates a palette of distinct colors for series without
// an explicit color.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(255 * hueToRGB(p, q, h+1.0/3)), uint8(255 * hueToRGB(p, q, h)), uint8(255 * hueToRGB(p, q, h-1.0/3))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
