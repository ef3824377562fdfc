// Package observability exposes execution metrics derived from lifecycle
// events.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/scriptdeck/scriptdeck/pkg/bus"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

// Metrics is an event-bus subscriber that maintains Prometheus collectors for
// script runs. Attach it once; it observes the same lifecycle events the UI
// consumes.
type Metrics struct {
	runsStarted   *prometheus.CounterVec
	runsConcluded *prometheus.CounterVec
	pauses        *prometheus.CounterVec
	running       prometheus.Gauge
	duration      *prometheus.HistogramVec

	clock  func() time.Time
	starts map[string]time.Time
}

// NewMetrics registers the collectors with reg and returns the subscriber.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptdeck",
			Name:      "runs_started_total",
			Help:      "Script runs started, by script name.",
		}, []string{"script"}),
		runsConcluded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptdeck",
			Name:      "runs_concluded_total",
			Help:      "Script runs concluded, by script name and outcome.",
		}, []string{"script", "status"}),
		pauses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scriptdeck",
			Name:      "run_pauses_total",
			Help:      "Pause-for-review suspensions, by script name.",
		}, []string{"script"}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "scriptdeck",
			Name:      "runs_active",
			Help:      "Whether a script run is currently active.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scriptdeck",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of concluded runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"script"}),
		clock:  time.Now,
		starts: make(map[string]time.Time),
	}
}

// Attach subscribes the collectors to the lifecycle events on b.
func (m *Metrics) Attach(b *bus.Bus) {
	b.Subscribe(domain.EventScriptStarted, m.onEvent)
	b.Subscribe(domain.EventScriptResumed, m.onEvent)
	b.Subscribe(domain.EventScriptCompleted, m.onEvent)
	b.Subscribe(domain.EventScriptStopped, m.onEvent)
	b.Subscribe(domain.EventScriptError, m.onEvent)
	b.Subscribe(domain.EventScriptPaused, m.onEvent)
}

func (m *Metrics) onEvent(e domain.Event) {
	switch ev := e.(type) {
	case domain.ScriptStarted:
		m.runsStarted.WithLabelValues(ev.ScriptName).Inc()
		m.running.Set(1)
		m.starts[ev.ScriptName] = m.clock()

	case domain.ScriptResumed:
		m.running.Set(1)

	case domain.ScriptPaused:
		m.pauses.WithLabelValues(ev.ScriptName).Inc()
		m.running.Set(0)

	case domain.ScriptCompleted:
		m.conclude(ev.ScriptName, string(domain.RunSuccess))

	case domain.ScriptStopped:
		m.conclude(ev.ScriptName, string(domain.RunStopped))

	case domain.ScriptError:
		m.conclude(ev.ScriptName, string(domain.RunError))
	}
}

func (m *Metrics) conclude(script, status string) {
	m.runsConcluded.WithLabelValues(script, status).Inc()
	m.running.Set(0)
	if start, ok := m.starts[script]; ok {
		m.duration.WithLabelValues(script).Observe(m.clock().Sub(start).Seconds())
		delete(m.starts, script)
	}
}
