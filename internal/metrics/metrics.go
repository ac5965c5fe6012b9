// Package metrics instruments stand processing with Prometheus collectors.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrInvalidConfig is returned when the metrics configuration is invalid.
	ErrInvalidConfig = errors.New("invalid metrics configuration")
	// ErrRegistrationFailed is returned when a collector cannot be registered.
	ErrRegistrationFailed = errors.New("metric registration failed")
)

// Polygon outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Config configures a Recorder.
type Config struct {
	// Namespace prefixes every metric name. Required.
	Namespace string
	// Registry receives the collectors. A fresh registry is created when nil.
	Registry *prometheus.Registry
	// DurationBuckets are the polygon duration histogram buckets (seconds).
	DurationBuckets []float64
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	return nil
}

var defaultDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// solverBuckets cover the default budgets of 1000 iterations and 200 evaluations.
var solverBuckets = []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000}

// Recorder records processing metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	polygonsTotal     *prometheus.CounterVec
	polygonDuration   prometheus.Histogram
	reconcileTotal    *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	solverIterations  prometheus.Histogram
	solverEvaluations prometheus.Histogram
}

// NewRecorder creates a Recorder and registers its collectors.
func NewRecorder(cfg Config) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	buckets := cfg.DurationBuckets
	if buckets == nil {
		buckets = defaultDurationBuckets
	}

	r := &Recorder{registry: registry}
	r.polygonsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "polygons_processed_total",
		Help:      "Polygons processed, by result",
	}, []string{"result"})
	r.polygonDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Name:      "polygon_duration_seconds",
		Help:      "Time spent processing one polygon",
		Buckets:   buckets,
	})
	r.reconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: "reconcile",
		Name:      "total",
		Help:      "Utilization reconciliations, by mode",
	}, []string{"mode"})
	r.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "errors_total",
		Help:      "Stand-scoped processing errors, by stage",
	}, []string{"stage"})
	r.solverIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: "allocation",
		Name:      "solver_iterations",
		Help:      "Optimizer iterations per species allocation",
		Buckets:   solverBuckets,
	})
	r.solverEvaluations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: "allocation",
		Name:      "solver_evaluations",
		Help:      "Residual evaluations per species allocation",
		Buckets:   solverBuckets,
	})

	for _, c := range []prometheus.Collector{
		r.polygonsTotal, r.polygonDuration, r.reconcileTotal, r.errorsTotal, r.solverIterations, r.solverEvaluations,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
		}
	}
	return r, nil
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordPolygon counts a processed polygon and observes its duration.
func (r *Recorder) RecordPolygon(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.polygonsTotal.WithLabelValues(result).Inc()
	r.polygonDuration.Observe(d.Seconds())
}

// RecordReconcile counts one reconciliation that took the given mode.
func (r *Recorder) RecordReconcile(mode string) {
	if r == nil {
		return
	}
	r.reconcileTotal.WithLabelValues(mode).Inc()
}

// RecordAllocation observes the optimizer work of one species allocation.
func (r *Recorder) RecordAllocation(iterations, evaluations int) {
	if r == nil {
		return
	}
	r.solverIterations.Observe(float64(iterations))
	r.solverEvaluations.Observe(float64(evaluations))
}

// RecordError counts a stand-scoped failure in stage.
func (r *Recorder) RecordError(stage string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(stage).Inc()
}

// WriteTextfile writes every metric of the recorder to path in the text
// exposition format, for collection by a node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
