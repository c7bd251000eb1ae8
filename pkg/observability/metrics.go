package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments this engine's components
// report against: graph construction, source loading, and the query
// result cache, grounded in the teacher's pkg/observability/metrics.go
// shape (a struct of pre-registered CounterVec/HistogramVec/GaugeVec
// fields, constructed once against a *prometheus.Registry).
type Metrics struct {
	// Workspace load
	LoadDuration *prometheus.HistogramVec
	LoadErrors   *prometheus.CounterVec

	// Graph construction
	BuildDuration   prometheus.Histogram
	BuildEntities   prometheus.Gauge
	BuildErrors     *prometheus.CounterVec
	BuildsCompleted prometheus.Counter

	// Query execution
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec

	// Query result cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheInvalidationsTotal prometheus.Counter
}

// NewMetrics constructs and registers every instrument against registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "firm_workspace_load_duration_seconds",
				Help:    "Time spent loading and parsing .firm source files",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		LoadErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firm_workspace_load_errors_total",
				Help: "Total number of parse/duplicate errors encountered while loading a workspace",
			},
			[]string{"kind"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "firm_graph_build_duration_seconds",
				Help:    "Time spent resolving references and validating schemas during Graph.Build",
				Buckets: prometheus.DefBuckets,
			},
		),
		BuildEntities: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "firm_graph_entities",
				Help: "Number of entities in the most recently built graph",
			},
		),
		BuildErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firm_graph_build_errors_total",
				Help: "Total number of failed Graph.Build calls",
			},
			[]string{"reason"},
		),
		BuildsCompleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "firm_graph_builds_completed_total",
				Help: "Total number of successful Graph.Build calls",
			},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "firm_query_duration_seconds",
				Help:    "Time spent executing a query pipeline",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		QueryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firm_query_errors_total",
				Help: "Total number of query execution errors",
			},
			[]string{"reason"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firm_query_cache_hits_total",
				Help: "Total number of query result cache hits",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firm_query_cache_misses_total",
				Help: "Total number of query result cache misses",
			},
			[]string{"tier"},
		),
		CacheInvalidationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "firm_query_cache_invalidations_total",
				Help: "Total number of query result cache invalidations",
			},
		),
	}

	registry.MustRegister(
		m.LoadDuration,
		m.LoadErrors,
		m.BuildDuration,
		m.BuildEntities,
		m.BuildErrors,
		m.BuildsCompleted,
		m.QueryDuration,
		m.QueryErrors,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheInvalidationsTotal,
	)

	return m
}
