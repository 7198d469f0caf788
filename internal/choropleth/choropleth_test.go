package choropleth

import (
	"log"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mortality.report/internal/monitoring"
)

func TestBuild_Defaults(t *testing.T) {
	b := NewBuilder("")
	spec := b.Build(Request{Year: 2010, Opacity: DefaultOpacity})

	require.Len(t, spec.Layers, len(Bins))
	assert.Equal(t, DefaultViewport, spec.Viewport)
	assert.Equal(t, "lasso", spec.DragMode)
	assert.Equal(t, DefaultStyle, spec.Style)
	for i, l := range spec.Layers {
		assert.Equal(t, Bins[i], l.Bin)
		assert.Equal(t, DefaultColorscale[i], l.Color)
		assert.Equal(t, 2010, l.Year)
		assert.Equal(t, DefaultOpacity, l.Opacity)
		assert.Equal(t, DefaultGeoJSONBase+"2010/"+Bins[i]+".geojson", l.Source)
		assert.Equal(t, "fill", l.Type)
		assert.Equal(t, "geojson", l.SourceType)
	}

	require.Len(t, spec.Legend, len(Bins))
	assert.Equal(t, ">30", spec.Legend[0].Bin)
	assert.Equal(t, DefaultColorscale[len(Bins)-1], spec.Legend[0].Color)
	assert.Equal(t, "0-2", spec.Legend[len(Bins)-1].Bin)
}

func TestBuild_CustomColorscaleAndViewport(t *testing.T) {
	colors := make([]string, len(Bins))
	for i := range colors {
		colors[i] = "#00000" + string(rune('a'+i%6))
	}
	vp := Viewport{Lat: 40, Lon: -100, Zoom: 5}
	spec := NewBuilder("http://tiles.local/geo").Build(Request{Year: 2003, Opacity: 1.7, Colorscale: colors, Viewport: vp})

	assert.Equal(t, vp, spec.Viewport)
	assert.Equal(t, colors[3], spec.Layers[3].Color)
	assert.Equal(t, 1.0, spec.Layers[0].Opacity)
	assert.Equal(t, "http://tiles.local/geo/2003/>30.geojson", spec.Layers[len(Bins)-1].Source)
}

func TestBuild_BadColorscaleFallsBack(t *testing.T) {
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) { logged = append(logged, format) })
	defer monitoring.SetLogger(log.Printf)

	spec := NewBuilder("").Build(Request{Year: 2010, Colorscale: []string{"#fff", "#000"}})
	assert.Equal(t, DefaultColorscale[0], spec.Layers[0].Color)
	require.Len(t, logged, 1)
	assert.True(t, strings.HasPrefix(logged[0], "choropleth:"))
}

func TestBuild_UnknownYearStillBuilds(t *testing.T) {
	spec := NewBuilder("").Build(Request{Year: 1999})
	assert.Len(t, spec.Layers, len(Bins))
	assert.False(t, KnownYear(1999))
	assert.True(t, KnownYear(2015))
}

func TestClampOpacity(t *testing.T) {
	assert.Equal(t, 0.0, ClampOpacity(-0.5))
	assert.Equal(t, 0.3, ClampOpacity(0.3))
	assert.Equal(t, 1.0, ClampOpacity(2))
	assert.Equal(t, DefaultOpacity, ClampOpacity(math.NaN()))
}

func TestValidColorscale(t *testing.T) {
	assert.True(t, ValidColorscale(DefaultColorscale))
	assert.False(t, ValidColorscale(nil))
	bad := append([]string(nil), DefaultColorscale...)
	bad[4] = " "
	assert.False(t, ValidColorscale(bad))
}

func TestBinFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{0, "0-2"},
		{2, "0-2"},
		{2.1, "2.1-4"},
		{4, "2.1-4"},
		{4.1, "4.1-6"},
		{12.3, "12.1-14"},
		{30, "28.1-30"},
		{30.1, ">30"},
		{-1, "0-2"},
	}
	for _, tt := range tests {
		if got := BinFor(tt.rate); got != tt.want {
			t.Errorf("BinFor(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}
