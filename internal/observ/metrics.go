package observ

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors for the realtime and audit paths. A nil
// *Metrics is valid and records nothing, which keeps tests free of registry
// plumbing.
type Metrics struct {
	wsClients      prometheus.Gauge
	pushChannels   prometheus.Gauge
	broadcasts     *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	pushes         *prometheus.CounterVec
	auditEntries   *prometheus.CounterVec
	rejectedWrites *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "boardsync",
			Name:      "ws_clients",
			Help:      "Connected websocket clients.",
		}),
		pushChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "boardsync",
			Name:      "push_channels",
			Help:      "Open per-user notification channels.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boardsync",
			Name:      "broadcasts_total",
			Help:      "Group broadcasts by group kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boardsync",
			Name:      "dropped_deliveries_total",
			Help:      "Deliveries dropped because a recipient queue was full or gone.",
		}, []string{"path"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boardsync",
			Name:      "notification_pushes_total",
			Help:      "Notification pushes by event type and outcome.",
		}, []string{"type", "outcome"}),
		auditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boardsync",
			Name:      "audit_entries_total",
			Help:      "Activity log entries appended by action kind.",
		}, []string{"action"}),
		rejectedWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boardsync",
			Name:      "rejected_mutations_total",
			Help:      "Mutations rejected before persistence, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.wsClients,
		m.pushChannels,
		m.broadcasts,
		m.dropped,
		m.pushes,
		m.auditEntries,
		m.rejectedWrites,
	)
	return m
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.wsClients.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.wsClients.Dec()
	}
}

func (m *Metrics) ChannelOpened() {
	if m != nil {
		m.pushChannels.Inc()
	}
}

func (m *Metrics) ChannelClosed() {
	if m != nil {
		m.pushChannels.Dec()
	}
}

func (m *Metrics) Broadcast(kind string) {
	if m != nil {
		m.broadcasts.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Dropped(path string) {
	if m != nil {
		m.dropped.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) Push(eventType, outcome string) {
	if m != nil {
		m.pushes.WithLabelValues(eventType, outcome).Inc()
	}
}

func (m *Metrics) AuditEntry(action string) {
	if m != nil {
		m.auditEntries.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) Rejected(reason string) {
	if m != nil {
		m.rejectedWrites.WithLabelValues(reason).Inc()
	}
}
