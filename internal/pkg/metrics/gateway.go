package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records realtime connection and event figures.
type GatewayMetrics struct {
	connections *prometheus.GaugeVec
	events      *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	connections := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Open realtime connections by role.",
	}, []string{"role"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_events_total",
		Help:      "Inbound realtime events by name and result.",
	}, []string{"event", "result"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_dropped_messages_total",
		Help:      "Outbound messages dropped because a connection's send buffer was full.",
	}, []string{"event"})
	reg.MustRegister(connections, events, dropped)
	return &GatewayMetrics{
		connections: connections,
		events:      events,
		dropped:     dropped,
	}
}

// Connected increments the open connection gauge for role.
func (g *GatewayMetrics) Connected(role string) {
	if g == nil || g.connections == nil {
		return
	}
	g.connections.WithLabelValues(normalizeLabel(role)).Inc()
}

// Disconnected decrements the open connection gauge for role.
func (g *GatewayMetrics) Disconnected(role string) {
	if g == nil || g.connections == nil {
		return
	}
	g.connections.WithLabelValues(normalizeLabel(role)).Dec()
}

// Event counts one handled inbound event; result is "ok" or an error code.
func (g *GatewayMetrics) Event(event, result string) {
	if g == nil || g.events == nil {
		return
	}
	g.events.WithLabelValues(normalizeLabel(event), normalizeLabel(result)).Inc()
}

// Dropped counts one outbound message lost to a full send buffer.
func (g *GatewayMetrics) Dropped(event string) {
	if g == nil || g.dropped == nil {
		return
	}
	g.dropped.WithLabelValues(normalizeLabel(event)).Inc()
}
