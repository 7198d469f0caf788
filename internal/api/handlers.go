package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/banshee-data/mortality.report/internal/aggregate"
	"github.com/banshee-data/mortality.report/internal/choropleth"
	"github.com/banshee-data/mortality.report/internal/county"
	"github.com/banshee-data/mortality.report/internal/dashboard"
	"github.com/banshee-data/mortality.report/internal/httputil"
	"github.com/banshee-data/mortality.report/internal/render"
	"github.com/banshee-data/mortality.report/internal/scene"
	"github.com/banshee-data/mortality.report/internal/selection"
	"github.com/banshee-data/mortality.report/internal/version"
)

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	httputil.MethodNotAllowed(w, method)
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":    "ok",
		"service":   "mortality",
		"version":   version.Version,
		"counties":  s.counties.Len(),
		"records":   s.facts.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"years":   choropleth.Years,
		"default": s.defaultYear,
		"data":    s.facts.Years(),
	})
}

func (s *Server) handleBins(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"bins":         choropleth.Bins,
		"colorscale":   s.colorscale,
		"legend_title": choropleth.LegendTitle,
	})
}

type modeInfo struct {
	Mode     aggregate.Mode `json:"mode"`
	Label    string         `json:"label"`
	AllYears bool           `json:"all_years"`
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	modes := aggregate.Modes()
	out := make([]modeInfo, len(modes))
	for i, m := range modes {
		out[i] = modeInfo{Mode: m, Label: m.Label(), AllYears: m.AllYears()}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"modes": out, "default": s.defaultMode})
}

// handleMap returns the choropleth layers for one year.
// Query params:
//   - year (optional; defaults to the configured year)
//   - opacity (optional; clamped to [0, 1])
//   - colors (optional; comma separated, one per bin)
//   - lat, lon, zoom (optional; all three replace the default viewport)
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	req := choropleth.Request{Year: s.defaultYear, Opacity: s.opacity, Colorscale: s.colorscale}

	year, ok, err := httputil.QueryInt(r, "year")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if ok {
		req.Year = year
	}

	if v, ok, err := httputil.QueryFloat(r, "opacity"); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	} else if ok {
		req.Opacity = v
	}

	if c := r.URL.Query().Get("colors"); c != "" {
		req.Colorscale = splitColors(c)
	}

	vp, err := viewport(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	req.Viewport = vp

	httputil.WriteJSONOK(w, s.maps.Build(req))
}

func viewport(r *http.Request) (choropleth.Viewport, error) {
	var vp choropleth.Viewport
	var n int
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"lat", &vp.Lat}, {"lon", &vp.Lon}, {"zoom", &vp.Zoom}} {
		v, ok, err := httputil.QueryFloat(r, p.name)
		if err != nil {
			return choropleth.Viewport{}, err
		}
		if ok {
			*p.dst = v
			n++
		}
	}
	if n != 0 && n != 3 {
		return choropleth.Viewport{}, errors.New("lat, lon and zoom must be given together")
	}
	return vp, nil
}

type chartResponse struct {
	Chart    scene.ChartSpec `json:"chart"`
	Headline string          `json:"headline"`
	Selected int             `json:"selected"`
	Cached   bool            `json:"cached"`
	Error    string          `json:"error,omitempty"`
}

// chart decodes an interaction and runs it through the pipeline. It writes
// an error response and returns false when the request itself is bad.
func (s *Server) chart(w http.ResponseWriter, r *http.Request) (dashboard.Outcome, bool) {
	if !allow(w, r, http.MethodPost) {
		return dashboard.Outcome{}, false
	}
	var in dashboard.Interaction
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, err.Error())
		return dashboard.Outcome{}, false
	}
	if in.Year == 0 {
		in.Year = s.defaultYear
	}
	if in.Mode == "" {
		in.Mode = s.defaultMode
	}
	out := s.pipeline.Chart(r.Context(), in)
	if errors.Is(out.Err, aggregate.ErrUnknownMode) {
		httputil.BadRequest(w, out.Err.Error())
		return dashboard.Outcome{}, false
	}
	return out, true
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	out, ok := s.chart(w, r)
	if !ok {
		return
	}
	resp := chartResponse{
		Chart:    out.Chart,
		Headline: out.Headline,
		Selected: out.Selection.Count(),
		Cached:   out.Cached,
	}
	status := http.StatusOK
	if out.Err != nil {
		resp.Error = out.Err.Error()
		status = http.StatusInternalServerError
	}
	httputil.WriteJSON(w, status, resp)
}

func (s *Server) handleChartHTML(w http.ResponseWriter, r *http.Request) {
	out, ok := s.chart(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.RenderHTML(&buf, out.Chart); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleChartPNG renders the chart as an image.
// Query params:
//   - width, height (optional; pixels)
func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	width, _, err := httputil.QueryInt(r, "width")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	height, _, err := httputil.QueryInt(r, "height")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	out, ok := s.chart(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.RenderPNG(&buf, out.Chart, width, height); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// countyMarker is one selectable point on the map. Text carries the county
// id after the label delimiter so a lasso selection can be resolved.
type countyMarker struct {
	ID    string   `json:"id"`
	Lat   float64  `json:"lat"`
	Lon   float64  `json:"lon"`
	Text  string   `json:"text"`
	Rate  *float64 `json:"rate"`
	Bin   string   `json:"bin,omitempty"`
	Color string   `json:"color,omitempty"`
}

// handleCounties lists the county markers with each county's rate for year.
func (s *Server) handleCounties(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	year, ok, err := httputil.QueryInt(r, "year")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if !ok {
		year = s.defaultYear
	}

	refs := s.counties.All()
	markers := make([]countyMarker, 0, len(refs))
	for _, ref := range refs {
		m := countyMarker{ID: ref.ID, Lat: ref.Latitude, Lon: ref.Longitude, Text: markerText(ref)}
		if rate, ok := s.yearRate(ref.ID, year); ok {
			m.Rate = &rate
			m.Bin = choropleth.BinFor(rate)
			for i, b := range choropleth.Bins {
				if b == m.Bin {
					m.Color = s.colorscale[i]
				}
			}
		}
		markers = append(markers, m)
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"year": year, "counties": markers})
}

// yearRate sums the reliable rates recorded for id in year.
func (s *Server) yearRate(id string, year int) (float64, bool) {
	var sum float64
	var found bool
	for _, rec := range s.facts.ForCountyYear(id, year) {
		if v, ok := rec.Rate.Resolve(false); ok {
			sum += v
			found = true
		}
	}
	return sum, found
}

func markerText(ref county.Ref) string {
	if selection.ParseLabel(ref.Label) == ref.ID {
		return ref.Label
	}
	label := ref.Label
	if label == "" {
		label = ref.ID
	}
	return label + selection.Delimiter + ref.ID
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	lat, okLat, err := httputil.QueryFloat(r, "lat")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	lon, okLon, err := httputil.QueryFloat(r, "lon")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if !okLat || !okLon {
		httputil.BadRequest(w, "lat and lon are required")
		return
	}
	ref, dist, ok := s.counties.Nearest(lat, lon)
	if !ok {
		httputil.NotFound(w, "no counties loaded")
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"county":      ref,
		"distance_km": dist,
	})
}

func splitColors(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
