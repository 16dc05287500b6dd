package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scoring pipeline.
type Metrics struct {
	RunsStarted     prometheus.Counter
	RunsCompleted   *prometheus.CounterVec // labels: outcome={done,error,reused,rejected}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge

	// Per-step and per-source metrics.
	StepDuration        *prometheus.HistogramVec // labels: step
	SourceFetchDuration *prometheus.HistogramVec // labels: source={thermal,grid,equity}
	EquityFallbacks     prometheus.Counter
	SitesExtracted      prometheus.Histogram

	// Run-event publishing.
	RunEventsPublished prometheus.Counter
	RunEventErrors     prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geopulse",
			Name:      "runs_started_total",
			Help:      "Total scoring runs that entered the Running state.",
		}),
		RunsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geopulse",
			Name:      "runs_completed_total",
			Help:      "Run outcomes: done, error, reused (outputs reused), rejected (already running).",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geopulse",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete scoring run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geopulse",
			Name:      "pipeline_running",
			Help:      "1 while a scoring run is in progress, 0 otherwise.",
		}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geopulse",
			Name:      "step_duration_seconds",
			Help:      "Duration of each pipeline step.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"step"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geopulse",
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of signal-source fetches by source.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"source"}),
		EquityFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geopulse",
			Name:      "equity_fallbacks_total",
			Help:      "Runs where the SVI layer was unavailable and a neutral field was substituted.",
		}),
		SitesExtracted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geopulse",
			Name:      "sites_extracted",
			Help:      "Candidate sites yielded per run.",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 20, 30, 50},
		}),
		RunEventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geopulse",
			Name:      "run_events_published_total",
			Help:      "Run-completed events published to Kafka.",
		}),
		RunEventErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geopulse",
			Name:      "run_event_errors_total",
			Help:      "Failed run-event publishes (best-effort, never fails the run).",
		}),
	}

	prometheus.MustRegister(
		m.RunsStarted,
		m.RunsCompleted,
		m.RunDuration,
		m.PipelineRunning,
		m.StepDuration,
		m.SourceFetchDuration,
		m.EquityFallbacks,
		m.SitesExtracted,
		m.RunEventsPublished,
		m.RunEventErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsStarted:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "geopulse", Name: "runs_started_total"}),
		RunsCompleted:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "geopulse", Name: "runs_completed_total"}, []string{"outcome"}),
		RunDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "geopulse", Name: "run_duration_seconds"}),
		PipelineRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "geopulse", Name: "pipeline_running"}),
		StepDuration:        prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "geopulse", Name: "step_duration_seconds"}, []string{"step"}),
		SourceFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "geopulse", Name: "source_fetch_duration_seconds"}, []string{"source"}),
		EquityFallbacks:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "geopulse", Name: "equity_fallbacks_total"}),
		SitesExtracted:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "geopulse", Name: "sites_extracted"}),
		RunEventsPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "geopulse", Name: "run_events_published_total"}),
		RunEventErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "geopulse", Name: "run_event_errors_total"}),
	}
}
