package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors for the hub. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	clients       *prometheus.GaugeVec
	identities    prometheus.Gauge
	events        *prometheus.CounterVec
	framesSent    prometheus.Counter
	framesDropped prometheus.Counter
	undelivered   prometheus.Counter
	slowEvictions prometheus.Counter
	snapshots     prometheus.Counter
	occupied      prometheus.Gauge
}

// NewMetrics registers the hub collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	const ns, sub = "smartpark", "realtime"
	return &Metrics{
		clients: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "connections",
			Help: "Open websocket connections by role",
		}, []string{"role"}),
		identities: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "identities",
			Help: "Drivers bound to a live connection",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "events_total",
			Help: "Inbound events by name and outcome",
		}, []string{"event", "outcome"}),
		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "frames_queued_total",
			Help: "Outbound frames queued to connections",
		}),
		framesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "frames_dropped_total",
			Help: "Outbound frames dropped because a send buffer was full",
		}),
		undelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "chat_undelivered_total",
			Help: "Guard chat messages whose recipient was not connected",
		}),
		slowEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "slow_client_evictions_total",
			Help: "Connections closed because they could not keep up",
		}),
		snapshots: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "occupancy_updates_total",
			Help: "Occupancy snapshots accepted",
		}),
		occupied: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "occupied_spots",
			Help: "Occupied spots in the current snapshot",
		}),
	}
}

func (m *Metrics) connected(role Role, delta float64) {
	if m == nil {
		return
	}
	m.clients.WithLabelValues(string(role)).Add(delta)
}

func (m *Metrics) setIdentities(n int) {
	if m == nil {
		return
	}
	m.identities.Set(float64(n))
}

func (m *Metrics) event(name, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) queued() {
	if m == nil {
		return
	}
	m.framesSent.Inc()
}

func (m *Metrics) dropped() {
	if m == nil {
		return
	}
	m.framesDropped.Inc()
}

func (m *Metrics) chatUndelivered() {
	if m == nil {
		return
	}
	m.undelivered.Inc()
}

func (m *Metrics) slowEviction() {
	if m == nil {
		return
	}
	m.slowEvictions.Inc()
}

func (m *Metrics) snapshot(s Snapshot) {
	if m == nil {
		return
	}
	m.snapshots.Inc()
	m.occupied.Set(float64(s.Occupied()))
}
