package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/mortality.report/internal/aggregate"
	"github.com/banshee-data/mortality.report/internal/choropleth"
	"github.com/banshee-data/mortality.report/internal/county"
	"github.com/banshee-data/mortality.report/internal/dashboard"
	"github.com/banshee-data/mortality.report/internal/mortality"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves the dashboard JSON API over the static tables.
type Server struct {
	pipeline    *dashboard.Pipeline
	maps        *choropleth.Builder
	counties    *county.Table
	facts       *mortality.Table
	defaultYear int
	defaultMode aggregate.Mode
	colorscale  []string
	opacity     float64
}

// ServerConfig wires a Server. Zero values fall back to the first map year,
// the default display mode and the default colour scale. A nil Opacity uses
// the default opacity; zero is a valid, fully transparent setting.
type ServerConfig struct {
	Pipeline    *dashboard.Pipeline
	Maps        *choropleth.Builder
	Counties    *county.Table
	Facts       *mortality.Table
	DefaultYear int
	DefaultMode aggregate.Mode
	Colorscale  []string
	Opacity     *float64
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		pipeline:    cfg.Pipeline,
		maps:        cfg.Maps,
		counties:    cfg.Counties,
		facts:       cfg.Facts,
		defaultYear: cfg.DefaultYear,
		defaultMode: cfg.DefaultMode,
		colorscale:  cfg.Colorscale,
		opacity:     choropleth.DefaultOpacity,
	}
	if cfg.Opacity != nil {
		s.opacity = *cfg.Opacity
	}
	if s.pipeline == nil {
		s.pipeline = dashboard.NewPipeline(dashboard.PipelineConfig{
			Aggregator: aggregate.NewEngine(cfg.Facts, cfg.Counties),
		})
	}
	if s.maps == nil {
		s.maps = choropleth.NewBuilder("")
	}
	if s.defaultYear == 0 {
		s.defaultYear = choropleth.Years[0]
	}
	if s.defaultMode == "" {
		s.defaultMode = aggregate.DefaultMode
	}
	if !choropleth.ValidColorscale(s.colorscale) {
		s.colorscale = choropleth.DefaultColorscale
	}
	return s
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes. Metrics, admin and static routes are
// mounted by WebServer.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/years", s.handleYears)
	mux.HandleFunc("/api/bins", s.handleBins)
	mux.HandleFunc("/api/modes", s.handleModes)
	mux.HandleFunc("/api/map", s.handleMap)
	mux.HandleFunc("/api/chart", s.handleChart)
	mux.HandleFunc("/api/chart.html", s.handleChartHTML)
	mux.HandleFunc("/api/chart.png", s.handleChartPNG)
	mux.HandleFunc("/api/counties", s.handleCounties)
	mux.HandleFunc("/api/counties/nearest", s.handleNearest)
	return mux
}
