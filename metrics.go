package evloop

import "github.com/prometheus/client_golang/prometheus"

// metrics mirrors the gauge/counter shape of nabbar-golib's prometheus/
// package family, scoped down to the counters this engine can report on its
// own authority: connection-role gauges and the error kinds from §7.
type metrics struct {
	clients    prometheus.Gauge
	servers    prometheus.Gauge
	connecting prometheus.Gauge

	acceptTimeouts  prometheus.Counter
	connectTimeouts prometheus.Counter
	transportErrors prometheus.Counter
	hangups         prometheus.Counter
}

// NewMetrics builds a metrics set and registers it with reg. Pass a fresh
// prometheus.NewRegistry() in tests, or prometheus.DefaultRegisterer in
// production; WithMetrics wires the result into a Loop.
func NewMetrics(reg prometheus.Registerer, namespace string) *metrics {
	m := &metrics{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "clients", Help: "Inbound connections currently established.",
		}),
		servers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "servers", Help: "Outbound connections currently established.",
		}),
		connecting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connecting", Help: "Outbound connections still in progress.",
		}),
		acceptTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "accept_timeouts_total", Help: "Staged inbound sockets dropped for not completing in time.",
		}),
		connectTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connect_timeouts_total", Help: "Outbound sockets dropped for not establishing in time.",
		}),
		transportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "transport_errors_total", Help: "Reads or writes that failed at the syscall layer.",
		}),
		hangups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "hangups_total", Help: "Connections dropped on peer close or idle timeout.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.clients, m.servers, m.connecting, m.acceptTimeouts, m.connectTimeouts, m.transportErrors, m.hangups)
	}
	return m
}

func (m *metrics) sync(r *registry) {
	if m == nil {
		return
	}
	clients, servers, connecting := r.count()
	m.clients.Set(float64(clients))
	m.servers.Set(float64(servers))
	m.connecting.Set(float64(connecting))
}

func (m *metrics) onKind(k Kind) {
	if m == nil {
		return
	}
	switch k {
	case KindAcceptTimeout:
		m.acceptTimeouts.Inc()
	case KindConnectTimeout:
		m.connectTimeouts.Inc()
	case KindTransportError:
		m.transportErrors.Inc()
	case KindHangup:
		m.hangups.Inc()
	}
}

// WithMetrics attaches a metrics set built with NewMetrics to a Loop.
func WithMetrics(m *metrics) Option {
	return func(c *Config) {
		c.metrics = m
	}
}
