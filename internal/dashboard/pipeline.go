// Package dashboard composes the selection resolver, the aggregation engine
// and the scene builder into the per-interaction chart pipeline.
package dashboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/mortality.report/internal/aggregate"
	"github.com/banshee-data/mortality.report/internal/cache"
	"github.com/banshee-data/mortality.report/internal/metrics"
	"github.com/banshee-data/mortality.report/internal/monitoring"
	"github.com/banshee-data/mortality.report/internal/scene"
	"github.com/banshee-data/mortality.report/internal/selection"
)

// Aggregator is the aggregation stage. *aggregate.Engine implements it.
type Aggregator interface {
	Aggregate(req aggregate.Request) (aggregate.Result, error)
}

// Interaction is the full control state for one chart recomputation.
type Interaction struct {
	Points            []selection.Point `json:"points"`
	Year              int               `json:"year"`
	Mode              aggregate.Mode    `json:"mode"`
	IncludeUnreliable bool              `json:"include_unreliable"`
	LogScale          bool              `json:"log_scale"`
	ShowLegend        bool              `json:"show_legend"`
}

// Outcome is the result of one cycle. Err is set when the chart could not
// be computed; Chart then holds the error panel.
type Outcome struct {
	Chart     scene.ChartSpec     `json:"chart"`
	Headline  string              `json:"headline"`
	Selection selection.Selection `json:"-"`
	Cached    bool                `json:"cached"`
	Err       error               `json:"-"`
}

// PipelineConfig configures a Pipeline. Cache is optional.
type PipelineConfig struct {
	Aggregator Aggregator
	Cache      cache.Cache
}

// Pipeline runs resolve -> aggregate -> build. It holds no mutable state
// besides the optional cache and is safe for concurrent use.
type Pipeline struct {
	agg   Aggregator
	cache cache.Cache
}

// NewPipeline returns a pipeline for cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{agg: cfg.Aggregator, cache: cfg.Cache}
}

// Chart runs one interaction cycle. An empty point list short-circuits to
// the placeholder chart without touching the aggregation stage.
func (p *Pipeline) Chart(ctx context.Context, in Interaction) Outcome {
	start := time.Now()
	defer func() {
		metrics.ChartDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	}()

	mode, err := aggregate.ParseMode(string(in.Mode))
	if err != nil {
		return p.failed(in, selection.Selection{}, err)
	}
	in.Mode = mode

	sel := selection.Resolve(in.Points)
	headline := scene.Headline(in.Year, mode, sel.Count(), sel.None)
	if sel.None {
		metrics.NoSelectionTotal.Inc()
		return Outcome{Chart: scene.Placeholder(), Headline: headline, Selection: sel}
	}
	metrics.ChartRequestsTotal.WithLabelValues(string(mode)).Inc()

	key := cacheKey(sel, in)
	if chart, ok := p.lookup(ctx, key); ok {
		return Outcome{Chart: chart, Headline: headline, Selection: sel, Cached: true}
	}

	res, err := p.aggregate(aggregate.Request{
		IDs:               sel.IDs,
		Year:              in.Year,
		Mode:              mode,
		IncludeUnreliable: in.IncludeUnreliable,
	})
	if err != nil {
		return p.failed(in, sel, err)
	}

	chart := scene.Build(res, scene.Meta{
		Mode:           mode,
		Year:           in.Year,
		SelectionCount: sel.Count(),
		Truncated:      res.Truncated,
		LogScale:       in.LogScale,
		ShowLegend:     in.ShowLegend,
	})
	if res.Truncated {
		metrics.TruncatedChartsTotal.Inc()
	}
	if res.Empty() {
		metrics.EmptyChartsTotal.Inc()
	}
	p.store(ctx, key, chart)
	return Outcome{Chart: chart, Headline: headline, Selection: sel}
}

func (p *Pipeline) aggregate(req aggregate.Request) (res aggregate.Result, err error) {
	if p.agg == nil {
		return aggregate.Result{}, aggregate.ErrNoTables
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregation panicked: %v", r)
		}
	}()
	return p.agg.Aggregate(req)
}

func (p *Pipeline) failed(in Interaction, sel selection.Selection, err error) Outcome {
	metrics.ChartErrorsTotal.Inc()
	monitoring.Logf("chart failed: %v", err)
	return Outcome{
		Chart:     scene.ErrorSpec(err.Error()),
		Headline:  scene.Headline(in.Year, in.Mode, sel.Count(), sel.None),
		Selection: sel,
		Err:       err,
	}
}

func (p *Pipeline) lookup(ctx context.Context, key string) (scene.ChartSpec, bool) {
	if p.cache == nil {
		return scene.ChartSpec{}, false
	}
	b, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		monitoring.Logf("chart cache get: %v", err)
		return scene.ChartSpec{}, false
	}
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return scene.ChartSpec{}, false
	}
	var chart scene.ChartSpec
	if err := json.Unmarshal(b, &chart); err != nil {
		monitoring.Logf("chart cache decode: %v", err)
		return scene.ChartSpec{}, false
	}
	metrics.CacheHitsTotal.Inc()
	return chart, true
}

func (p *Pipeline) store(ctx context.Context, key string, chart scene.ChartSpec) {
	if p.cache == nil {
		return
	}
	b, err := json.Marshal(chart)
	if err != nil {
		monitoring.Logf("chart cache encode: %v", err)
		return
	}
	if err := p.cache.Set(ctx, key, b); err != nil {
		monitoring.Logf("chart cache set: %v", err)
	}
}

// cacheKey hashes the resolved ids and every control that affects the chart.
// Points are not part of the key; two lassos that resolve to the same ids in
// the same order share an entry.
func cacheKey(sel selection.Selection, in Interaction) string {
	b, _ := json.Marshal(struct {
		IDs               []string       `json:"ids"`
		Year              int            `json:"year"`
		Mode              aggregate.Mode `json:"mode"`
		IncludeUnreliable bool           `json:"inc"`
		LogScale          bool           `json:"log"`
		ShowLegend        bool           `json:"legend"`
	}{sel.IDs, in.Year, in.Mode, in.IncludeUnreliable, in.LogScale, in.ShowLegend})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
