package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "relaychat"
	metricsSubsystem = "host"

	routeBroadcast = "broadcast"
	routeDirected  = "directed"
	routeIgnored   = "ignored"
)

type metrics struct {
	sessions        prometheus.Gauge
	joins           prometheus.Counter
	departures      prometheus.Counter
	rejections      prometheus.Counter
	routed          *prometheus.CounterVec
	decodeFailures  prometheus.Counter
	routingFailures prometheus.Counter
	sendFailures    prometheus.Counter
}

// newMetrics creates the Host metrics. A nil reg leaves them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		})
	}

	return &metrics{
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "sessions",
			Help:      "Number of sessions on the roster",
		}),
		joins:      counter("joins_total", "Sessions admitted to the roster"),
		departures: counter("departures_total", "Sessions removed from the roster"),
		rejections: counter("rejected_joins_total", "Joins rejected because the username was taken"),
		routed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "frames_routed_total",
			Help:      "Inbound frames by routing decision",
		}, []string{"kind"}),
		decodeFailures:  counter("decode_failures_total", "Inbound frames that failed to decode"),
		routingFailures: counter("routing_failures_total", "Directed messages whose recipient was not found"),
		sendFailures:    counter("send_failures_total", "Failed sends to a session"),
	}
}
