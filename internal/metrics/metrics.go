// Package metrics holds the Prometheus instruments for reflow runs.
package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "subreflow"

// Outcome labels for RunsTotal.
const (
	OutcomeOK       = "ok"
	OutcomeMismatch = "mismatch"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

// Recorder groups the instruments on a private registry. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	CuesTotal       *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	AnnotateLatency prometheus.Histogram
	InFlight        prometheus.Gauge
}

// New registers the instruments. withRuntime adds the Go runtime and process
// collectors, which only make sense for the long-running server.
func New(withRuntime bool) *Recorder {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Reflow runs by timing strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		CuesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cues_total",
			Help:      "Cues read and written.",
		}, []string{"kind"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		AnnotateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "annotate_latency_ms",
			Help:      "Annotator latency per cue in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "HTTP reflow requests being processed.",
		}),
	}
}

func (r *Recorder) ObserveRun(strategy, outcome string) {
	if r == nil {
		return
	}
	r.RunsTotal.WithLabelValues(strategy, outcome).Inc()
}

func (r *Recorder) AddCues(source, generated int) {
	if r == nil {
		return
	}
	r.CuesTotal.WithLabelValues("source").Add(float64(source))
	r.CuesTotal.WithLabelValues("generated").Add(float64(generated))
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) ObserveAnnotate(d time.Duration) {
	if r == nil {
		return
	}
	r.AnnotateLatency.Observe(float64(d.Microseconds()) / 1000)
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (r *Recorder) TrackInFlight() func() {
	if r == nil {
		return func() {}
	}
	r.InFlight.Inc()
	return r.InFlight.Dec
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the registry for tests and textfile export.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the current values for the node_exporter textfile
// collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
