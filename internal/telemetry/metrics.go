package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PasswordsTested counts passwords that have completed PMK derivation,
	// per core.
	PasswordsTested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pyrit",
			Name:      "passwords_tested_total",
			Help:      "Total number of passwords run through a compute core",
		},
		[]string{"core"},
	)

	// CorePerformance reports each core's current passwords/sec rating, as
	// used for the scheduler's peak-performance backpressure check.
	CorePerformance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pyrit",
			Name:      "core_performance_pwps",
			Help:      "Passwords per second currently reported by a compute core",
		},
		[]string{"core"},
	)

	// SchedulerPending reports the number of passwords waiting in the
	// scheduler's ingress queue.
	SchedulerPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pyrit",
			Name:      "scheduler_pending",
			Help:      "Passwords currently queued but not yet dispatched to a core",
		},
	)

	// HandshakesFound counts reconstructed Authentications, by quality.
	HandshakesFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pyrit",
			Name:      "handshakes_found_total",
			Help:      "Total number of reconstructed handshakes, by quality",
		},
		[]string{"quality"},
	)

	// PacketsParsed counts frames fed into the handshake parser.
	PacketsParsed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pyrit",
			Name:      "packets_parsed_total",
			Help:      "Total number of captured frames fed into the handshake parser",
		},
	)

	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// Idempotent: safe to call more than once.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(PasswordsTested)
		prometheus.DefaultRegisterer.Register(CorePerformance)
		prometheus.DefaultRegisterer.Register(SchedulerPending)
		prometheus.DefaultRegisterer.Register(HandshakesFound)
		prometheus.DefaultRegisterer.Register(PacketsParsed)
	})
}
