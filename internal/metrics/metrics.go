// Package metrics holds the service's Prometheus instrumentation.
// Highscore advances and cycle failures are counted here rather than
// printed, so tests (and operators) can observe them as values.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every metric this service registers.
const Namespace = "statsink"

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "submissions_total",
			Help:      "Telemetry submissions by domain and outcome.",
		},
		[]string{"domain", "outcome"},
	)
	HighscoreAdvances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "highscore_advances_total",
			Help:      "Ledger entries appended because a dimension improved.",
		},
		[]string{"domain"},
	)
	CycleFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cycle_failures_total",
			Help:      "Domain-local broadcast cycle failures by stage.",
		},
		[]string{"domain", "stage"},
	)
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dispatches_total",
			Help:      "Reports successfully delivered to the webhook.",
		},
		[]string{"domain"},
	)
	WindowServers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "window_servers",
			Help:      "Servers inside the aggregation window at the last cycle.",
		},
		[]string{"domain"},
	)
)

// Register adds all collectors to reg, or to the default registerer when
// reg is nil. Call once at startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(SubmissionsTotal, HighscoreAdvances, CycleFailures, DispatchesTotal, WindowServers)
}
