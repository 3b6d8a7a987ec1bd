package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"els/protocol"
)

// Metrics are the Prometheus views of the drive telemetry
type Metrics struct {
	Position     prometheus.Gauge
	Desired      prometheus.Gauge
	Backlog      prometheus.Gauge
	LimitPending prometheus.Gauge
	Fault        prometheus.Gauge
	Frames       prometheus.Counter
	FrameErrors  prometheus.Counter
	FrameGaps    prometheus.Counter

	lastErrors uint64
	lastGaps   uint64
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Position: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "els_position_steps",
			Help: "Believed motor position in steps.",
		}),
		Desired: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "els_desired_steps",
			Help: "Commanded position in steps.",
		}),
		Backlog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "els_backlog_steps",
			Help: "Desired minus current position.",
		}),
		LimitPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "els_limit_pending",
			Help: "1 while a limit-switch event is being handled.",
		}),
		Fault: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "els_fault",
			Help: "1 after the backlog monitor disabled the drive.",
		}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "els_frames_total",
			Help: "Status frames received.",
		}),
		FrameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "els_frame_errors_total",
			Help: "Corrupted or malformed frames skipped.",
		}),
		FrameGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "els_frame_gaps_total",
			Help: "Frames lost according to sequence numbers.",
		}),
	}
	reg.MustRegister(m.Position, m.Desired, m.Backlog, m.LimitPending,
		m.Fault, m.Frames, m.FrameErrors, m.FrameGaps)
	return m
}

// Observe records one status report
func (m *Metrics) Observe(s protocol.Status) {
	m.Frames.Inc()
	m.Position.Set(float64(s.Current))
	m.Desired.Set(float64(s.Desired))
	m.Backlog.Set(float64(s.Backlog()))
	m.LimitPending.Set(boolGauge(s.Has(protocol.StatusLimitPending)))
	m.Fault.Set(boolGauge(s.Has(protocol.StatusFault)))
}

// ObserveReader adds the reader's error counters since the last call
func (m *Metrics) ObserveReader(stats protocol.ReaderStats) {
	if stats.Errors > m.lastErrors {
		m.FrameErrors.Add(float64(stats.Errors - m.lastErrors))
		m.lastErrors = stats.Errors
	}
	if stats.Gaps > m.lastGaps {
		m.FrameGaps.Add(float64(stats.Gaps - m.lastGaps))
		m.lastGaps = stats.Gaps
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
