package aggregate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mortality.report/internal/county"
	"github.com/banshee-data/mortality.report/internal/mortality"
)

func fixtureEngine() *Engine {
	facts := mortality.NewTable([]mortality.Record{
		{CountyID: "01001", Year: 2010, Deaths: mortality.Measure{Value: 5, Valid: true}, Rate: mortality.Numeric(12.3), Label: "Alabama, Autauga County"},
		{CountyID: "01001", Year: 2010, Deaths: mortality.Measure{Value: 3, Valid: true}, Rate: mortality.ParseRate("unreliable(0)"), Label: "Alabama, Autauga County"},
		{CountyID: "01001", Year: 2011, Deaths: mortality.Measure{Value: 4, Valid: true}, Rate: mortality.Unreliable(7.5), Label: "Alabama, Autauga County"},
		{CountyID: "01001", Year: 2012, Deaths: mortality.Measure{}, Rate: mortality.Invalid(), Label: "Alabama, Autauga County"},
		{CountyID: "06037", Year: 2010, Deaths: mortality.Measure{Value: 1204, Valid: true}, Rate: mortality.Numeric(9.1)},
		{CountyID: "06037", Year: 2011, Deaths: mortality.Measure{Value: 1300, Valid: true}, Rate: mortality.Numeric(9.8)},
		{CountyID: "17031", Year: 2010, Deaths: mortality.Measure{Value: 0, Valid: true}, Rate: mortality.Numeric(0), Label: "Illinois, Cook County"},
		{CountyID: "48201", Year: 2010, Deaths: mortality.Measure{Value: 2, Valid: true}, Rate: mortality.Unreliable(3.3), Label: "Texas, Harris County"},
	})
	counties := county.NewTable([]county.Ref{
		{ID: "06037", Label: "Los Angeles, California"},
	})
	return NewEngine(facts, counties)
}

func TestAggregate_SingleYearRate_UnreliableZeroed(t *testing.T) {
	e := fixtureEngine()
	res, err := e.Aggregate(Request{IDs: []string{"01001"}, Year: 2010, Mode: ModeRateSingleYear})
	require.NoError(t, err)
	require.Len(t, res.Bars, 1)
	assert.Equal(t, "01001", res.Bars[0].CountyID)
	assert.InDelta(t, 12.3, res.Bars[0].Value, 1e-9)
	assert.False(t, res.Truncated)
	assert.Empty(t, res.Series)
}

func TestAggregate_SingleYearRate_IncludeUnreliable(t *testing.T) {
	e := fixtureEngine()
	res, err := e.Aggregate(Request{IDs: []string{"48201", "01001"}, Year: 2010, Mode: ModeRateSingleYear, IncludeUnreliable: true})
	require.NoError(t, err)
	want := []Bar{
		{CountyID: "48201", Label: "Texas, Harris County", Value: 3.3},
		{CountyID: "01001", Label: "Alabama, Autauga County", Value: 12.3},
	}
	if diff := cmp.Diff(want, res.Bars); diff != "" {
		t.Errorf("bars mismatch (-want +got):\n%s", diff)
	}

	res, err = e.Aggregate(Request{IDs: []string{"48201"}, Year: 2010, Mode: ModeRateSingleYear})
	require.NoError(t, err)
	assert.Empty(t, res.Bars, "excluded unreliable rate sums to zero and is dropped")
	assert.True(t, res.Empty())
}

func TestAggregate_SingleYearDeaths_SortedAndPositive(t *testing.T) {
	e := fixtureEngine()
	res, err := e.Aggregate(Request{
		IDs:  []string{"06037", "17031", "01001", "48201", "06037", "99999"},
		Year: 2010,
		Mode: ModeDeathsSingleYear,
	})
	require.NoError(t, err)

	var ids []string
	for i, b := range res.Bars {
		ids = append(ids, b.CountyID)
		assert.Greater(t, b.Value, 0.0)
		if i > 0 {
			assert.LessOrEqual(t, res.Bars[i-1].Value, b.Value)
		}
	}
	assert.Equal(t, []string{"48201", "01001", "06037"}, ids)
	assert.Equal(t, 8.0, res.Bars[1].Value)
	assert.Equal(t, "Los Angeles, California", res.Bars[2].Label, "falls back to county reference label")
}

func TestAggregate_TimeSeries(t *testing.T) {
	e := fixtureEngine()
	res, err := e.Aggregate(Request{IDs: []string{"06037", "01001", "99999"}, Year: 2003, Mode: ModeRateAllYears})
	require.NoError(t, err)
	require.Len(t, res.Series, 2)

	assert.Equal(t, "06037", res.Series[0].CountyID)
	assert.Equal(t, []Point{{2010, 9.1}, {2011, 9.8}}, res.Series[0].Points)

	assert.Equal(t, "01001", res.Series[1].CountyID)
	// invalid 2012 rate is skipped; unreliable values count as zero
	assert.Equal(t, []Point{{2010, 12.3}, {2010, 0}, {2011, 0}}, res.Series[1].Points)

	res, err = e.Aggregate(Request{IDs: []string{"01001"}, Mode: ModeRateAllYears, IncludeUnreliable: true})
	require.NoError(t, err)
	assert.Equal(t, []Point{{2010, 12.3}, {2010, 0}, {2011, 7.5}}, res.Series[0].Points)
}

func TestAggregate_DeathsTimeSeries(t *testing.T) {
	e := fixtureEngine()
	res, err := e.Aggregate(Request{IDs: []string{"01001"}, Mode: ModeDeathsAllYears})
	require.NoError(t, err)
	require.Len(t, res.Series, 1)
	assert.Equal(t, []Point{{2010, 5}, {2010, 3}, {2011, 4}}, res.Series[0].Points)
}

func TestAggregate_UnknownYearIsEmpty(t *testing.T) {
	e := fixtureEngine()
	res, err := e.Aggregate(Request{IDs: []string{"01001"}, Year: 1850, Mode: ModeRateSingleYear})
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, 1850, res.Year)
}

func TestAggregate_IDsJoinExactly(t *testing.T) {
	facts := mortality.NewTable([]mortality.Record{
		{CountyID: "123", Year: 2010, Rate: mortality.Numeric(4)},
		{CountyID: "01001", Year: 2010, Rate: mortality.Numeric(12.3)},
	})
	e := NewEngine(facts, county.NewTable(nil))

	// The table stores "00123"; a three-character id is not padded here.
	res, err := e.Aggregate(Request{IDs: []string{"123"}, Year: 2010, Mode: ModeRateSingleYear})
	require.NoError(t, err)
	assert.Empty(t, res.Bars)

	res, err = e.Aggregate(Request{IDs: []string{"1001", " 01001"}, Year: 2010, Mode: ModeRateAllYears})
	require.NoError(t, err)
	assert.Empty(t, res.Series)

	res, err = e.Aggregate(Request{IDs: []string{"00123", "01001"}, Year: 2010, Mode: ModeRateSingleYear})
	require.NoError(t, err)
	require.Len(t, res.Bars, 2)
	assert.Equal(t, "00123", res.Bars[0].CountyID)
}

func TestAggregate_Errors(t *testing.T) {
	_, err := fixtureEngine().Aggregate(Request{Mode: "pie"})
	assert.True(t, errors.Is(err, ErrUnknownMode))

	var nilEngine *Engine
	_, err = nilEngine.Aggregate(Request{Mode: ModeRateAllYears})
	assert.True(t, errors.Is(err, ErrNoTables))

	_, err = NewEngine(nil, nil).Aggregate(Request{Mode: ModeRateAllYears})
	assert.True(t, errors.Is(err, ErrNoTables))
}

func TestAggregate_Idempotent(t *testing.T) {
	e := fixtureEngine()
	req := Request{IDs: []string{"06037", "01001", "48201"}, Year: 2010, Mode: ModeDeathsSingleYear, IncludeUnreliable: true}
	a, err := e.Aggregate(req)
	require.NoError(t, err)
	b, err := e.Aggregate(req)
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated aggregation differs (-first +second):\n%s", diff)
	}
}

func TestAggregate_TruncatesSeriesAt500(t *testing.T) {
	var records []mortality.Record
	var ids []string
	for i := 0; i < MaxEntries+1; i++ {
		id := fmt.Sprintf("%05d", 10000+i)
		ids = append(ids, id)
		records = append(records, mortality.Record{CountyID: id, Year: 2010, Rate: mortality.Numeric(float64(i + 1))})
	}
	e := NewEngine(mortality.NewTable(records), nil)

	res, err := e.Aggregate(Request{IDs: ids, Year: 2010, Mode: ModeRateAllYears})
	require.NoError(t, err)
	require.Len(t, res.Series, MaxEntries)
	assert.True(t, res.Truncated)
	for i, s := range res.Series {
		require.Equal(t, ids[i], s.CountyID, "series order must follow the selection")
	}

	res, err = e.Aggregate(Request{IDs: ids, Year: 2010, Mode: ModeRateSingleYear})
	require.NoError(t, err)
	require.Len(t, res.Bars, MaxEntries)
	assert.True(t, res.Truncated)
	assert.Equal(t, 1.0, res.Bars[0].Value)
	assert.Equal(t, float64(MaxEntries), res.Bars[MaxEntries-1].Value)

	res, err = e.Aggregate(Request{IDs: ids[:MaxEntries], Year: 2010, Mode: ModeRateAllYears})
	require.NoError(t, err)
	assert.False(t, res.Truncated)
}

func TestAggregate_TruncatesLongPointList(t *testing.T) {
	var records []mortality.Record
	for y := 0; y < MaxEntries+1; y++ {
		records = append(records, mortality.Record{CountyID: "01001", Year: 1500 + y, Rate: mortality.Numeric(1)})
	}
	e := NewEngine(mortality.NewTable(records), nil)
	res, err := e.Aggregate(Request{IDs: []string{"01001"}, Mode: ModeRateAllYears})
	require.NoError(t, err)
	require.Len(t, res.Series, 1)
	assert.Len(t, res.Series[0].Points, MaxEntries)
	assert.Equal(t, 1500, res.Series[0].Points[0].Year)
	assert.Equal(t, 1500+MaxEntries-1, res.Series[0].Points[MaxEntries-1].Year)
	assert.True(t, res.Truncated)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMode, m)

	for _, want := range Modes() {
		got, err := ParseMode(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ParseMode("pie")
	assert.True(t, errors.Is(err, ErrUnknownMode))

	assert.True(t, ModeDeathsAllYears.AllYears())
	assert.False(t, ModeRateSingleYear.AllYears())
	assert.Equal(t, "Total deaths", ModeDeathsSingleYear.Label())
	assert.Equal(t, "Age-adjusted death rate", ModeRateAllYears.Label())
}
