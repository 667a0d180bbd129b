// Package telemetry collects Prometheus counters for a conformance run and
// writes them to a node-exporter textfile.
//
// Every Metrics value owns a private registry, so several runs in one
// process never collide on metric registration.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ux3d/ANARI-SDK/internal/report"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

const namespace = "anari_cts"

// Metric outcome labels.
const (
	OutcomePassed    = "passed"
	OutcomeFailed    = "failed"
	OutcomeUnchecked = "unchecked"
)

// Metrics holds the run counters.
type Metrics struct {
	registry *prometheus.Registry

	// Instances counts executed test instances by command.
	Instances *prometheus.CounterVec

	// Skipped counts scenes rejected by the feature gate or failed to load.
	Skipped prometheus.Counter

	// Failures counts instances whose operation returned an error.
	Failures prometheus.Counter

	// Results counts metric outcomes by channel, metric and outcome.
	Results *prometheus.CounterVec

	// PropertyChecks counts bounds checks by outcome.
	PropertyChecks *prometheus.CounterVec

	// FrameDuration records device frame durations in seconds.
	FrameDuration prometheus.Histogram
}

// New registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Instances: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_total",
			Help:      "Test instances executed",
		}, []string{"command"}),
		Skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenes_skipped_total",
			Help:      "Scenes skipped for unsupported features or invalid configuration",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instance_failures_total",
			Help:      "Instances whose operation returned an error",
		}),
		Results: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metric_results_total",
			Help:      "Image metric outcomes",
		}, []string{"channel", "metric", "outcome"}),
		PropertyChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_checks_total",
			Help:      "Bounds property checks",
		}, []string{"outcome"}),
		FrameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Device frame duration reported by the backend",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// Registry returns the registry holding every metric.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSummary adds the metric rows and property checks of a report.
func (m *Metrics) ObserveSummary(s report.Summary) {
	for _, r := range s.Rows {
		outcome := OutcomeUnchecked
		if r.Passed != nil {
			outcome = OutcomeFailed
			if *r.Passed {
				outcome = OutcomePassed
			}
		}
		m.Results.WithLabelValues(r.Channel, r.Metric, outcome).Inc()
	}
	for _, c := range s.Checks {
		outcome := "mismatch"
		if c.OK() {
			outcome = "ok"
		}
		m.PropertyChecks.WithLabelValues(outcome).Inc()
	}
}

// ObserveFrameDurations feeds every frameDuration leaf of a report into the
// histogram.
func (m *Metrics) ObserveFrameDurations(rep value.Object) {
	for _, test := range rep.SortedKeys() {
		instances := rep.Child(test)
		for _, inst := range instances.SortedKeys() {
			if d, ok := value.AsFloat(instances.Child(inst)[report.KeyFrameDuration]); ok {
				m.FrameDuration.Observe(d)
			}
		}
	}
}

// WriteToTextfile writes the registry in the text exposition format. The
// file is replaced atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
