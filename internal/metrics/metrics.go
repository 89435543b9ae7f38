// Package metrics exposes prometheus collectors for receiver traffic.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muurk/eiscpctl/internal/receiver"
)

const namespace = "eiscp"

// Result labels for eiscp_command_results_total
const (
	ResultOK       = "ok"
	ResultTimeout  = "timeout"
	ResultClosed   = "closed"
	ResultCanceled = "canceled"
	ResultError    = "error"
)

// Metrics holds the collectors for one process. It implements
// receiver.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	commandsSent    *prometheus.CounterVec
	commandResults  *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	events          *prometheus.CounterVec
	decodeErrors    *prometheus.CounterVec
	bridgeClients   prometheus.Gauge
}

var _ receiver.Recorder = (*Metrics)(nil)

// New creates collectors registered on a fresh registry together with the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commandsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_sent_total",
				Help:      "Commands written to the receiver.",
			},
			[]string{"code"},
		),
		commandResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_results_total",
				Help:      "Completed commands by outcome.",
			},
			[]string{"code", "result"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Time from write to matching reply.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"code"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Recognized inbound messages by event name.",
			},
			[]string{"event"},
		),
		decodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Inbound messages dropped as malformed or unrecognized.",
			},
			[]string{"reason"},
		),
		bridgeClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "websocket_clients",
				Help:      "Connected websocket clients.",
			},
		),
	}

	m.registry.MustRegister(
		m.commandsSent,
		m.commandResults,
		m.commandDuration,
		m.events,
		m.decodeErrors,
		m.bridgeClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CommandSent counts a written command
func (m *Metrics) CommandSent(code string) {
	m.commandsSent.WithLabelValues(code).Inc()
}

// CommandCompleted records the outcome of a command. Latency is observed for
// successful commands only.
func (m *Metrics) CommandCompleted(code string, took time.Duration, err error) {
	result := Classify(err)
	m.commandResults.WithLabelValues(code, result).Inc()
	if result == ResultOK {
		m.commandDuration.WithLabelValues(code).Observe(took.Seconds())
	}
}

// EventReceived counts a recognized inbound message
func (m *Metrics) EventReceived(event string) {
	m.events.WithLabelValues(event).Inc()
}

// DecodeFailed counts a dropped inbound message
func (m *Metrics) DecodeFailed(reason string) {
	m.decodeErrors.WithLabelValues(reason).Inc()
}

// BridgeClientConnected increments the websocket client gauge
func (m *Metrics) BridgeClientConnected() {
	m.bridgeClients.Inc()
}

// BridgeClientDisconnected decrements the websocket client gauge
func (m *Metrics) BridgeClientDisconnected() {
	m.bridgeClients.Dec()
}

// BridgeClients returns the websocket client gauge
func (m *Metrics) BridgeClients() prometheus.Gauge {
	return m.bridgeClients
}

// Classify maps a command error to a result label.
func Classify(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, receiver.ErrCommandTimeout):
		return ResultTimeout
	case errors.Is(err, receiver.ErrConnectionClosed), errors.Is(err, receiver.ErrNotConnected):
		return ResultClosed
	case errors.Is(err, context.Canceled):
		return ResultCanceled
	default:
		return ResultError
	}
}
