package dashboard

import (
	"context"
	"errors"
	"log"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mortality.report/internal/aggregate"
	"github.com/banshee-data/mortality.report/internal/cache"
	"github.com/banshee-data/mortality.report/internal/monitoring"
	"github.com/banshee-data/mortality.report/internal/mortality"
	"github.com/banshee-data/mortality.report/internal/scene"
	"github.com/banshee-data/mortality.report/internal/selection"
)

type countingAggregator struct {
	inner aggregate.Engine
	calls int
	last  aggregate.Request
	err   error
	panic bool
}

func (c *countingAggregator) Aggregate(req aggregate.Request) (aggregate.Result, error) {
	c.calls++
	c.last = req
	if c.panic {
		panic("boom")
	}
	if c.err != nil {
		return aggregate.Result{}, c.err
	}
	return c.inner.Aggregate(req)
}

func newCounting() *countingAggregator {
	facts := mortality.NewTable([]mortality.Record{
		{CountyID: "01001", Year: 2010, Deaths: mortality.Measure{Value: 5, Valid: true}, Rate: mortality.Numeric(12.3), Label: "Alabama, Autauga County"},
		{CountyID: "01001", Year: 2010, Deaths: mortality.Measure{Value: 3, Valid: true}, Rate: mortality.ParseRate("unreliable(0)"), Label: "Alabama, Autauga County"},
		{CountyID: "01001", Year: 2011, Deaths: mortality.Measure{Value: 4, Valid: true}, Rate: mortality.Numeric(8), Label: "Alabama, Autauga County"},
		{CountyID: "06037", Year: 2010, Deaths: mortality.Measure{Value: 1204, Valid: true}, Rate: mortality.Numeric(9.1), Label: "California, Los Angeles County"},
	})
	return &countingAggregator{inner: *aggregate.NewEngine(facts, nil)}
}

func quiet(t *testing.T) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })
}

func TestChart_NoSelectionSkipsAggregation(t *testing.T) {
	agg := newCounting()
	p := NewPipeline(PipelineConfig{Aggregator: agg})

	out := p.Chart(context.Background(), Interaction{Year: 2010})
	require.NoError(t, out.Err)
	assert.Equal(t, 0, agg.calls)
	assert.True(t, out.Selection.None)
	assert.True(t, out.Chart.Placeholder)
	assert.Equal(t, scene.PlaceholderTitle, out.Chart.Title)
	assert.Equal(t, "2010 · Age-adjusted death rate · no counties selected", out.Headline)
}

func TestChart_SingleYearRate(t *testing.T) {
	agg := newCounting()
	p := NewPipeline(PipelineConfig{Aggregator: agg})

	out := p.Chart(context.Background(), Interaction{
		Points: []selection.Point{{Text: "Autauga, Alabama<br>1001"}},
		Year:   2010,
		Mode:   aggregate.ModeRateSingleYear,
	})
	require.NoError(t, out.Err)
	assert.Equal(t, 1, agg.calls)
	assert.Equal(t, []string{"01001"}, agg.last.IDs)
	require.Len(t, out.Chart.Series, 1)
	assert.Equal(t, []float64{12.3}, out.Chart.Series[0].Y)
	assert.Equal(t, "Age-adjusted death rate per county, 2010", out.Chart.Title)
	assert.Equal(t, "2010 · Age-adjusted death rate · 1 county selected", out.Headline)
}

func TestChart_DefaultModeIsTimeSeries(t *testing.T) {
	p := NewPipeline(PipelineConfig{Aggregator: newCounting()})
	out := p.Chart(context.Background(), Interaction{
		Points:     []selection.Point{{Text: "x<br>01001"}, {Text: "y<br>6037"}, {Text: "x<br>01001"}},
		Year:       2010,
		ShowLegend: true,
	})
	require.NoError(t, out.Err)
	assert.Equal(t, "<b>3</b> counties selected", out.Chart.Title)
	require.Len(t, out.Chart.Series, 2)
	assert.Equal(t, "Alabama, Autauga County", out.Chart.Series[0].Name)
	assert.True(t, out.Chart.ShowLegend)
}

func TestChart_UnmatchedSelectionIsEmptyNotPlaceholder(t *testing.T) {
	p := NewPipeline(PipelineConfig{Aggregator: newCounting()})
	out := p.Chart(context.Background(), Interaction{
		Points: []selection.Point{{Text: "x<br>99999"}},
		Year:   2010,
		Mode:   aggregate.ModeDeathsSingleYear,
	})
	require.NoError(t, out.Err)
	assert.False(t, out.Selection.None)
	assert.False(t, out.Chart.Placeholder)
	assert.Empty(t, out.Chart.Series)
	assert.Contains(t, out.Chart.Title, scene.NoDataNotice)
}

func TestChart_Errors(t *testing.T) {
	quiet(t)
	pts := []selection.Point{{Text: "x<br>01001"}}

	out := NewPipeline(PipelineConfig{Aggregator: newCounting()}).Chart(context.Background(), Interaction{Points: pts, Mode: "pie"})
	assert.True(t, errors.Is(out.Err, aggregate.ErrUnknownMode))
	assert.True(t, out.Chart.Error)

	out = NewPipeline(PipelineConfig{}).Chart(context.Background(), Interaction{Points: pts})
	assert.True(t, errors.Is(out.Err, aggregate.ErrNoTables))
	assert.Equal(t, scene.ErrorTitle, out.Chart.Title)

	agg := newCounting()
	agg.panic = true
	out = NewPipeline(PipelineConfig{Aggregator: agg}).Chart(context.Background(), Interaction{Points: pts})
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "boom")
	assert.True(t, out.Chart.Error)

	agg = newCounting()
	agg.err = errors.New("geometry provider unavailable")
	out = NewPipeline(PipelineConfig{Aggregator: agg}).Chart(context.Background(), Interaction{Points: pts})
	assert.Equal(t, "geometry provider unavailable", out.Chart.Subtitle)
}

func TestChart_Idempotent(t *testing.T) {
	p := NewPipeline(PipelineConfig{Aggregator: newCounting()})
	in := Interaction{
		Points:            []selection.Point{{Text: "x<br>06037"}, {Text: "x<br>01001"}},
		Year:              2010,
		Mode:              aggregate.ModeRateSingleYear,
		IncludeUnreliable: true,
		LogScale:          true,
	}
	a := p.Chart(context.Background(), in)
	b := p.Chart(context.Background(), in)
	if diff := cmp.Diff(a.Chart, b.Chart); diff != "" {
		t.Errorf("repeated chart differs (-first +second):\n%s", diff)
	}
}

func TestChart_CacheHit(t *testing.T) {
	agg := newCounting()
	mem := cache.NewMemory(8)
	p := NewPipeline(PipelineConfig{Aggregator: agg, Cache: mem})
	in := Interaction{
		Points: []selection.Point{{Text: "x<br>01001"}},
		Year:   2010,
		Mode:   aggregate.ModeRateAllYears,
	}

	first := p.Chart(context.Background(), in)
	require.NoError(t, first.Err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, mem.Len())

	second := p.Chart(context.Background(), in)
	require.NoError(t, second.Err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, agg.calls)
	if diff := cmp.Diff(first.Chart, second.Chart, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("cached chart differs (-fresh +cached):\n%s", diff)
	}

	in.IncludeUnreliable = true
	third := p.Chart(context.Background(), in)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, agg.calls)
}

func TestCacheKey_OrderSensitive(t *testing.T) {
	in := Interaction{Year: 2010, Mode: aggregate.ModeRateAllYears}
	a := cacheKey(selection.Selection{IDs: []string{"01001", "06037"}}, in)
	b := cacheKey(selection.Selection{IDs: []string{"06037", "01001"}}, in)
	c := cacheKey(selection.Selection{IDs: []string{"01001", "06037"}}, in)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}
