package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HubMetrics collects the hub's operational metrics: session and client
// gauges, PTY throughput, protocol frame counts, rate-limit rejections and
// notification fan-out. A nil *HubMetrics is valid and records nothing.
type HubMetrics struct {
	sessionsActive   prometheus.Gauge
	clientsConnected prometheus.Gauge
	ptyBytes         *prometheus.CounterVec
	frames           *prometheus.CounterVec
	rateLimited      prometheus.Counter
	notifications    *prometheus.CounterVec
}

// NewHubMetrics creates the Prometheus-backed hub metrics.
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewHubMetrics() *HubMetrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	return &HubMetrics{
		sessionsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ptyhub_sessions_active",
			Help: "Number of live in-memory terminal sessions",
		}),
		clientsConnected: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ptyhub_clients_connected",
			Help: "Number of open WebSocket connections",
		}),
		ptyBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyhub_pty_bytes_total",
				Help: "Bytes moved through PTYs by direction",
			},
			[]string{"direction"}, // "input", "output"
		),
		frames: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyhub_frames_total",
				Help: "Protocol frames processed by type and direction",
			},
			[]string{"type", "direction"}, // direction: "in", "out"
		),
		rateLimited: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ptyhub_rate_limit_rejections_total",
			Help: "Frames rejected by the per-client rate limiter",
		}),
		notifications: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyhub_notifications_total",
				Help: "Notifications published by kind",
			},
			[]string{"kind"},
		),
	}
}

// SetSessionsActive updates the live session gauge.
func (m *HubMetrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(count))
}

// SetClientsConnected updates the open connection gauge.
func (m *HubMetrics) SetClientsConnected(count int) {
	if m == nil {
		return
	}
	m.clientsConnected.Set(float64(count))
}

// RecordPTYBytes records PTY throughput. direction is "input" or "output".
func (m *HubMetrics) RecordPTYBytes(direction string, n int) {
	if m == nil {
		return
	}
	m.ptyBytes.WithLabelValues(direction).Add(float64(n))
}

// RecordFrame counts one protocol frame. direction is "in" or "out".
func (m *HubMetrics) RecordFrame(frameType, direction string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(frameType, direction).Inc()
}

// RecordRateLimited counts one rejected frame.
func (m *HubMetrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// RecordNotification counts one published notification.
func (m *HubMetrics) RecordNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}
