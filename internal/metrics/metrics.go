// Package metrics registers the dashboard's Prometheus collectors and
// exposes the /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000}

var (
	ChartRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mortality_chart_requests_total",
		Help: "Total chart computations by display mode",
	}, []string{"mode"})
	NoSelectionTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mortality_chart_no_selection_total",
		Help: "Chart requests answered with the no-selection placeholder",
	})
	EmptyChartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mortality_chart_empty_total",
		Help: "Charts whose selection matched no records",
	})
	TruncatedChartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mortality_chart_truncated_total",
		Help: "Charts cut to the first 500 entries",
	})
	ChartErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mortality_chart_errors_total",
		Help: "Charts replaced by the error panel",
	})
	ChartDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mortality_chart_duration_ms",
		Help:    "Selection to ChartSpec duration in milliseconds",
		Buckets: durationBuckets,
	})
	RenderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mortality_render_duration_ms",
		Help:    "Chart rendering duration in milliseconds by output format",
		Buckets: durationBuckets,
	}, []string{"format"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mortality_chart_cache_hits_total",
		Help: "Chart cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mortality_chart_cache_misses_total",
		Help: "Chart cache misses",
	})
	MalformedValuesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mortality_malformed_values_total",
		Help: "Source values that failed to parse at ingestion, by field",
	}, []string{"field"})
	TableRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mortality_table_rows",
		Help: "Rows loaded into the static tables",
	}, []string{"table"})
)

func init() {
	prometheus.MustRegister(ChartRequestsTotal)
	prometheus.MustRegister(NoSelectionTotal)
	prometheus.MustRegister(EmptyChartsTotal)
	prometheus.MustRegister(TruncatedChartsTotal)
	prometheus.MustRegister(ChartErrorsTotal)
	prometheus.MustRegister(ChartDurationMs)
	prometheus.MustRegister(RenderDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(MalformedValuesTotal)
	prometheus.MustRegister(TableRows)
}

// Handler serves the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
