package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "funbot"

// exporter mirrors the recorder's counters on a private registry, so several
// recorders can live in one process.
type exporter struct {
	registry *prometheus.Registry
	commands *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	sends    *prometheus.CounterVec
}

func newExporter() *exporter {
	e := &exporter{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Slash commands executed, by command and result.",
		}, []string{"command", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Slash command latency, by command.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 9),
		}, []string{"command"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_sends_total",
			Help:      "Outbound channel sends, by channel and result.",
		}, []string{"channel", "result"}),
	}
	e.registry.MustRegister(e.commands, e.latency, e.sends)
	return e
}

func (e *exporter) observeCommand(name string, outcome Outcome, d time.Duration) {
	e.commands.WithLabelValues(name, string(outcome)).Inc()
	e.latency.WithLabelValues(name).Observe(d.Seconds())
}

func (e *exporter) observeSend(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	e.sends.WithLabelValues(channel, result).Inc()
}

// Gatherer exposes the recorder's Prometheus series. It is nil for a nil
// recorder.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return nil
	}
	return r.prom.registry
}
