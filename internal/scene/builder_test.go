package scene

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mortality.report/internal/aggregate"
)

func TestBuild_TimeSeries(t *testing.T) {
	res := aggregate.Result{
		Mode: aggregate.ModeRateAllYears,
		Series: []aggregate.Series{
			{CountyID: "01001", Label: "Alabama, Autauga County", Points: []aggregate.Point{{Year: 2010, Value: 12.3}, {Year: 2011, Value: 4}}},
			{CountyID: "06037", Label: "California, Los Angeles County", Points: []aggregate.Point{{Year: 2010, Value: 9.1}}},
		},
	}
	spec := Build(res, Meta{Mode: aggregate.ModeRateAllYears, SelectionCount: 3, ShowLegend: true})

	assert.Equal(t, "<b>3</b> counties selected", spec.Title)
	assert.Equal(t, Axis{Title: "Year", Scale: ScaleCategory, FixedRange: true}, spec.XAxis)
	assert.Equal(t, Axis{Title: rateAxisTitle, Scale: ScaleLinear, FixedRange: true}, spec.YAxis)
	assert.True(t, spec.ShowLegend)
	assert.False(t, spec.Placeholder)
	require.Len(t, spec.Series, 2)

	want := Series{
		Name:    "Alabama, Autauga County",
		Kind:    KindLine,
		X:       []string{"2010", "2011"},
		Y:       []float64{12.3, 4},
		Text:    []string{"Alabama, Autauga County", "Alabama, Autauga County"},
		Markers: true,
		Color:   SeriesColors[0],
	}
	if diff := cmp.Diff(want, spec.Series[0]); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, SeriesColors[1], spec.Series[1].Color)
}

func TestBuild_TimeSeriesTruncated(t *testing.T) {
	res := aggregate.Result{
		Mode:      aggregate.ModeDeathsAllYears,
		Series:    []aggregate.Series{{CountyID: "01001", Points: []aggregate.Point{{Year: 2010, Value: 1}}}},
		Truncated: true,
	}
	spec := Build(res, Meta{Mode: aggregate.ModeDeathsAllYears, SelectionCount: 501})
	assert.Equal(t, "<b>501</b> counties selected<br>(only 1st 500 shown)", spec.Title)
	assert.Equal(t, deathsAxisTitle, spec.YAxis.Title)
	assert.True(t, spec.Truncated)
	assert.False(t, spec.ShowLegend)
}

func TestBuild_TruncationFlagFromMeta(t *testing.T) {
	spec := Build(aggregate.Result{Mode: aggregate.ModeRateSingleYear, Bars: []aggregate.Bar{{CountyID: "01001", Label: "A", Value: 1}}},
		Meta{Mode: aggregate.ModeRateSingleYear, Year: 2010, Truncated: true})
	assert.True(t, spec.Truncated)
	assert.Contains(t, spec.Title, TruncatedNotice)
}

func TestBuild_Bars(t *testing.T) {
	res := aggregate.Result{
		Mode: aggregate.ModeRateSingleYear,
		Year: 2010,
		Bars: []aggregate.Bar{
			{CountyID: "48201", Label: "Texas, Harris County", Value: 3.3},
			{CountyID: "01001", Label: "Alabama, Autauga County", Value: 12.3},
		},
	}
	spec := Build(res, Meta{Mode: aggregate.ModeRateSingleYear, Year: 2010, SelectionCount: 2, LogScale: true})

	assert.Equal(t, "Age-adjusted death rate per county, 2010", spec.Title)
	assert.Equal(t, "2 counties selected", spec.Subtitle)
	assert.Equal(t, ScaleLog, spec.YAxis.Scale)
	assert.Equal(t, ScaleCategory, spec.XAxis.Scale)
	require.Len(t, spec.Series, 1)
	assert.Equal(t, KindBar, spec.Series[0].Kind)
	assert.Equal(t, []string{"Texas, Harris County", "Alabama, Autauga County"}, spec.Series[0].X)
	assert.Equal(t, []float64{3.3, 12.3}, spec.Series[0].Y)
	assert.Equal(t, []string{"48201", "01001"}, spec.Series[0].Text)

	spec = Build(res, Meta{Mode: aggregate.ModeDeathsSingleYear, Year: 2011})
	assert.Equal(t, "Total deaths per county, 2011", spec.Title)
	assert.Equal(t, ScaleLinear, spec.YAxis.Scale)
}

func TestBuild_EmptyAggregate(t *testing.T) {
	spec := Build(aggregate.Result{Mode: aggregate.ModeRateSingleYear}, Meta{Mode: aggregate.ModeRateSingleYear, Year: 1850, SelectionCount: 1})
	assert.Equal(t, "Age-adjusted death rate per county, 1850<br>(no data)", spec.Title)
	assert.NotNil(t, spec.Series)
	assert.Empty(t, spec.Series)
	assert.False(t, spec.Placeholder)

	spec = Build(aggregate.Result{Mode: aggregate.ModeRateAllYears}, Meta{Mode: aggregate.ModeRateAllYears, SelectionCount: 2})
	assert.Equal(t, "<b>2</b> counties selected<br>(no data)", spec.Title)
	assert.Empty(t, spec.Series)
}

func TestPlaceholder(t *testing.T) {
	spec := Placeholder()
	assert.True(t, spec.Placeholder)
	assert.Equal(t, PlaceholderTitle, spec.Title)
	require.Len(t, spec.Series, 1)
	assert.Equal(t, []float64{0}, spec.Series[0].Y)
	assert.Empty(t, spec.XAxis.Title)
	assert.Empty(t, spec.YAxis.Title)
	assert.Equal(t, Background, spec.Background)

	if diff := cmp.Diff(Placeholder(), spec); diff != "" {
		t.Errorf("placeholder is not fixed (-want +got):\n%s", diff)
	}
}

func TestErrorSpec(t *testing.T) {
	spec := ErrorSpec("tables not loaded")
	assert.True(t, spec.Error)
	assert.False(t, spec.Placeholder)
	assert.Equal(t, ErrorTitle, spec.Title)
	assert.Equal(t, "tables not loaded", spec.Subtitle)
}

func TestHeadline(t *testing.T) {
	assert.Equal(t, "2010 · Age-adjusted death rate · no counties selected", Headline(2010, aggregate.ModeRateAllYears, 0, true))
	assert.Equal(t, "2010 · Total deaths · 1 county selected", Headline(2010, aggregate.ModeDeathsSingleYear, 1, false))
	assert.Equal(t, "2003 · Age-adjusted death rate · 12 counties selected", Headline(2003, aggregate.ModeRateSingleYear, 12, false))
}
