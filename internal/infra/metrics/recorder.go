// Package metrics collects resolution loop metrics into a Prometheus
// registry and writes them as a node_exporter textfile at the end of a run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/runoshun/adw/internal/domain"
)

const namespace = "adw"

// Recorder implements domain.Metrics.
// Each run gets its own registry so the textfile only holds that run.
type Recorder struct {
	registry     *prometheus.Registry
	attempts     *prometheus.CounterVec
	outcomes     *prometheus.GaugeVec
	remediations *prometheus.CounterVec
	tierState    *prometheus.GaugeVec
	tierDuration *prometheus.GaugeVec
	path         string
}

// NewRecorder creates a recorder that flushes to path.
func NewRecorder(runID, path string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"run": runID}, reg))

	return &Recorder{
		registry: reg,
		path:     path,
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "test_attempts_total",
			Help:      "Verification runs per tier.",
		}, []string{"tier"}),
		outcomes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "test_outcomes",
			Help:      "Outcome counts from the latest verification run.",
		}, []string{"tier", "result"}),
		remediations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remediations_total",
			Help:      "Remediation calls per tier by result.",
		}, []string{"tier", "result"}),
		tierState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tier_state",
			Help:      "Set to 1 for the terminal state of each tier.",
		}, []string{"tier", "state"}),
		tierDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tier_duration_seconds",
			Help:      "Wall time spent in each tier's resolution loop.",
		}, []string{"tier"}),
	}
}

// Ensure Recorder implements domain.Metrics interface.
var _ domain.Metrics = (*Recorder)(nil)

// ObserveAttempt records one verification run.
func (r *Recorder) ObserveAttempt(tier domain.Tier, passed, failed int) {
	r.attempts.WithLabelValues(string(tier)).Inc()
	r.outcomes.WithLabelValues(string(tier), "passed").Set(float64(passed))
	r.outcomes.WithLabelValues(string(tier), "failed").Set(float64(failed))
}

// ObserveRemediation records one remediation call.
func (r *Recorder) ObserveRemediation(tier domain.Tier, resolved bool) {
	result := "unresolved"
	if resolved {
		result = "resolved"
	}
	r.remediations.WithLabelValues(string(tier), result).Inc()
}

// ObserveTier records the terminal state of a tier.
func (r *Recorder) ObserveTier(tier domain.Tier, state domain.LoopState, elapsed time.Duration) {
	r.tierState.WithLabelValues(string(tier), string(state)).Set(1)
	r.tierDuration.WithLabelValues(string(tier)).Set(elapsed.Seconds())
}

// Gatherer exposes the registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Flush writes the registry to the textfile.
func (r *Recorder) Flush() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(r.path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
