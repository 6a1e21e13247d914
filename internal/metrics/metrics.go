// Package metrics exports engine decisions to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Alia5/homerow/hrm"
)

const namespace = "homerow"

// Recorder implements hrm.Recorder.
type Recorder struct {
	gatherer prometheus.Gatherer

	decisions    *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	layer        *prometheus.CounterVec
	reportErrors prometheus.Counter
	events       *prometheus.CounterVec
}

var _ hrm.Recorder = (*Recorder)(nil)

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Recorder {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Recorder{
		gatherer: gatherer,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Home-row key decisions by key and outcome.",
		}, []string{"key", "decision"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_latency_seconds",
			Help:      "Time from key press to decision.",
			Buckets:   []float64{.01, .025, .05, .1, .15, .2, .25, .5, 1},
		}, []string{"decision"}),
		layer: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layer_transitions_total",
			Help:      "Thumb layer edges.",
		}, []string{"edge"}),
		reportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_errors_total",
			Help:      "Keyboard reports the output device rejected.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_events_total",
			Help:      "Key events read from the input device.",
		}, []string{"handled"}),
	}
	reg.MustRegister(m.decisions, m.latency, m.layer, m.reportErrors, m.events)
	return m
}

func (m *Recorder) RecordDecision(key string, d hrm.Decision, elapsed time.Duration) {
	m.decisions.WithLabelValues(key, d.String()).Inc()
	m.latency.WithLabelValues(d.String()).Observe(elapsed.Seconds())
}

func (m *Recorder) RecordLayer(active bool) {
	edge := "falling"
	if active {
		edge = "rising"
	}
	m.layer.WithLabelValues(edge).Inc()
}

// RecordReportError counts a failed report write. It matches the
// keyboard.Reporter error hook.
func (m *Recorder) RecordReportError(error) {
	m.reportErrors.Inc()
}

// RecordEvent counts an input event and whether the engine consumed it.
func (m *Recorder) RecordEvent(handled bool) {
	label := "false"
	if handled {
		label = "true"
	}
	m.events.WithLabelValues(label).Inc()
}

// Handler serves the registry the recorder was registered on.
func (m *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
