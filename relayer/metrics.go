package relayer

import "github.com/prometheus/client_golang/prometheus"

// Handshake observability, registered lazily so importing this package
// for tests never touches the default Prometheus registry.
var (
	handshakeAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "connection",
		Name:      "handshake_attempts_total",
		Help:      "Number of connection handshake step attempts, by step.",
	}, []string{"step"})

	handshakeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "connection",
		Name:      "handshake_failures_total",
		Help:      "Number of connection handshake step failures, by step.",
	}, []string{"step"})

	handshakeCompletions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "relayer",
		Subsystem: "connection",
		Name:      "handshakes_completed_total",
		Help:      "Number of connection handshakes that reached (Open, Open).",
	})
)

// RegisterMetrics adds this package's collectors to reg. Callers own the
// registry (typically a CLI's http /metrics endpoint); this package never
// registers itself implicitly.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(handshakeAttempts, handshakeFailures, handshakeCompletions)
}
