// Package metrics exposes Prometheus instrumentation for the telemetry
// client and the equipment command path. A nil *Telemetry is valid and
// records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "depdash"
	subsystem = "telemetry"
)

// Telemetry holds the client's Prometheus collectors.
type Telemetry struct {
	framesReceived   prometheus.Counter
	framesApplied    prometheus.Counter
	framesIgnored    prometheus.Counter
	framesRejected   *prometheus.CounterVec
	connectionStatus *prometheus.GaugeVec
	reconnects       prometheus.Counter
	lastApplied      prometheus.Gauge
	commands         *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
}

// NewTelemetry creates the collectors and registers them with reg. A nil
// reg leaves them unregistered, which is what tests usually want.
func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	m := &Telemetry{
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_received_total",
			Help:      "Total frames read from the telemetry stream",
		}),
		framesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_applied_total",
			Help:      "Total state updates merged into the store",
		}),
		framesIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_ignored_total",
			Help:      "Total frames of a type other than state_update",
		}),
		framesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_rejected_total",
			Help:      "Total frames rejected by validation, by reason",
		}, []string{"reason"}),
		connectionStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connection_status",
			Help:      "1 for the current connection status, 0 otherwise",
		}, []string{"status"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reconnect_attempts_total",
			Help:      "Total reconnection attempts",
		}),
		lastApplied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_applied_timestamp_seconds",
			Help:      "Unix time of the last merged state update",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "equipment",
			Name:      "commands_total",
			Help:      "Total equipment commands, by command and outcome",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "equipment",
			Name:      "command_duration_seconds",
			Help:      "Equipment command round-trip duration",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"command"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.framesReceived,
			m.framesApplied,
			m.framesIgnored,
			m.framesRejected,
			m.connectionStatus,
			m.reconnects,
			m.lastApplied,
			m.commands,
			m.commandDuration,
		)
	}
	return m
}

func (m *Telemetry) ObserveFrame() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

func (m *Telemetry) ObserveApplied(at time.Time) {
	if m == nil {
		return
	}
	m.framesApplied.Inc()
	m.lastApplied.Set(float64(at.Unix()))
}

func (m *Telemetry) ObserveIgnored() {
	if m == nil {
		return
	}
	m.framesIgnored.Inc()
}

func (m *Telemetry) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.framesRejected.WithLabelValues(reason).Inc()
}

// ObserveStatus marks status as the only active connection status.
func (m *Telemetry) ObserveStatus(status string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == status {
			v = 1
		}
		m.connectionStatus.WithLabelValues(s).Set(v)
	}
}

func (m *Telemetry) ObserveReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Telemetry) ObserveCommand(command, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(took.Seconds())
}
