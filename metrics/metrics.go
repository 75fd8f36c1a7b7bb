// Package metrics exposes pipeline counters over Prometheus. The
// batch binary runs these in-process; the listener is optional and
// off by default.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder tracks pipeline activity. All counters are labelled by
// scope so aggregate and panel runs share one registry.
type Recorder struct {
	TrainingRuns    *prometheus.CounterVec
	ForecastRuns    *prometheus.CounterVec
	FallbackServed  prometheus.Counter
	EntitiesSkipped *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	registry        *prometheus.Registry
}

// NewRecorder registers pipeline metrics on a fresh registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		TrainingRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "demand_training_runs_total",
			Help: "Training runs by scope and outcome",
		}, []string{"scope", "status"}),
		ForecastRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "demand_forecast_runs_total",
			Help: "Forecast runs by scope and outcome",
		}, []string{"scope", "status"}),
		FallbackServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "demand_fallback_forecasts_total",
			Help: "Forecast runs served from the seasonal fallback table",
		}),
		EntitiesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "demand_panel_entities_skipped_total",
			Help: "Panel entities skipped during training or forecasting",
		}, []string{"scope"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "demand_pipeline_run_duration_seconds",
			Help:    "Wall-clock duration of pipeline runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"operation"}),
		registry: registry,
	}
}

// Registry exposes the underlying registry for the HTTP listener
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Outcome labels
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusFallback = "fallback"
)
