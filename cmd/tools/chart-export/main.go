// Command chart-export renders the dashboard chart for a fixed list of
// counties to a PNG or HTML file, for offline reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/mortality.report/internal/aggregate"
	"github.com/banshee-data/mortality.report/internal/dashboard"
	"github.com/banshee-data/mortality.report/internal/dataset"
	"github.com/banshee-data/mortality.report/internal/render"
	"github.com/banshee-data/mortality.report/internal/security"
	"github.com/banshee-data/mortality.report/internal/selection"
)

type exportConfig struct {
	Counties          string
	Facts             string
	IDs               []string
	Year              int
	Mode              string
	Format            string
	Width             int
	Height            int
	IncludeUnreliable bool
	LogScale          bool
	ShowLegend        bool
}

func main() {
	var cfg exportConfig
	var ids string
	out := flag.String("out", "", "Output file, or a directory ending in / for a generated name (default stdout)")
	flag.StringVar(&cfg.Counties, "counties", "data/points.csv", "County reference CSV")
	flag.StringVar(&cfg.Facts, "facts", "data/cdc-mortality.csv", "Mortality fact CSV")
	flag.StringVar(&ids, "ids", "", "Comma-separated county FIPS codes")
	flag.IntVar(&cfg.Year, "year", 2015, "Year for single-year modes")
	flag.StringVar(&cfg.Mode, "mode", string(aggregate.DefaultMode), "Aggregation mode")
	flag.StringVar(&cfg.Format, "format", "png", "Output format: png or html")
	flag.IntVar(&cfg.Width, "width", render.DefaultWidth, "PNG width in pixels")
	flag.IntVar(&cfg.Height, "height", render.DefaultHeight, "PNG height in pixels")
	flag.BoolVar(&cfg.IncludeUnreliable, "unreliable", false, "Include rates flagged Unreliable")
	flag.BoolVar(&cfg.LogScale, "log", false, "Log-scale y axis for bar charts")
	flag.BoolVar(&cfg.ShowLegend, "legend", false, "Show the series legend")
	flag.Parse()

	cfg.IDs = splitIDs(ids)

	w := io.Writer(os.Stdout)
	path := ""
	if *out != "" {
		var err error
		if path, err = outputPath(*out, cfg); err != nil {
			log.Fatal(err)
		}
		f, err := os.Create(path)
		if err != nil {
			log.Fatalf("create %s: %v", path, err)
		}
		defer f.Close()
		w = f
	}

	if err := export(context.Background(), w, cfg); err != nil {
		log.Fatal(err)
	}
	if path != "" {
		log.Printf("wrote %s", path)
	}
}

// outputPath resolves -out. A trailing separator names a directory, and the
// file name is derived from the export parameters.
func outputPath(out string, cfg exportConfig) (string, error) {
	path := out
	if strings.HasSuffix(out, "/") || strings.HasSuffix(out, string(filepath.Separator)) {
		name := fmt.Sprintf("%s_%d_%s", cfg.Mode, cfg.Year, strings.Join(cfg.IDs, "-"))
		path = filepath.Join(out, security.SanitizeFilename(name)+"."+cfg.Format)
	}
	if err := security.ValidateExportPath(path); err != nil {
		return "", err
	}
	return path, nil
}

func export(ctx context.Context, w io.Writer, cfg exportConfig) error {
	mode, err := aggregate.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	if cfg.Format != "png" && cfg.Format != "html" {
		return fmt.Errorf("unknown format %q", cfg.Format)
	}

	tables, err := dataset.FromCSV(cfg.Counties, cfg.Facts)
	if err != nil {
		return err
	}

	pipeline := dashboard.NewPipeline(dashboard.PipelineConfig{
		Aggregator: aggregate.NewEngine(tables.Facts, tables.Counties),
	})
	outcome := pipeline.Chart(ctx, dashboard.Interaction{
		Points:            points(cfg.IDs),
		Year:              cfg.Year,
		Mode:              mode,
		IncludeUnreliable: cfg.IncludeUnreliable,
		LogScale:          cfg.LogScale,
		ShowLegend:        cfg.ShowLegend,
	})
	if outcome.Err != nil {
		return outcome.Err
	}
	log.Printf("%s", outcome.Headline)

	if cfg.Format == "html" {
		return render.RenderHTML(w, outcome.Chart)
	}
	return render.RenderPNG(w, outcome.Chart, cfg.Width, cfg.Height)
}

// points builds the map points a lasso over ids would report.
func points(ids []string) []selection.Point {
	pts := make([]selection.Point, 0, len(ids))
	for _, id := range ids {
		pts = append(pts, selection.Point{Text: id + selection.Delimiter + id})
	}
	return pts
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
