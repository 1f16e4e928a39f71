package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_actions_total",
			Help: "Inbound actions handled, by action.",
		},
		[]string{"action"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_rate_limited_total",
			Help: "Connections closed for exceeding the action rate limit.",
		},
	)

	GatewayFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_gateway_failures_total",
			Help: "Generation calls that failed and were replaced by the unavailable notice.",
		},
		[]string{"provider"},
	)

	GatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_gateway_seconds",
			Help:    "Generation call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
		},
		[]string{"provider"},
	)

	PersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_persist_failures_total",
			Help: "Conversation store writes that failed and closed the connection.",
		},
	)

	ArchiveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_archive_failures_total",
			Help: "Archive events that could not be published.",
		},
	)
)

func init() {
	prometheus.MustRegister(Actions, RateLimited, GatewayFailures, GatewayLatency, PersistFailures, ArchiveFailures)
}

// RegisterGauge exposes a live value, such as the open connection count,
// sampled at scrape time.
func RegisterGauge(name, help string, fn func() float64) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}
