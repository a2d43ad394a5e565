package syncer

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsSyncedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearable",
		Subsystem: "syncer",
		Name:      "sessions_synced_total",
		Help:      "Number of sessions marked synced after a confirmed transfer.",
	})

	syncFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearable",
		Subsystem: "syncer",
		Name:      "sync_failures_total",
		Help:      "Number of session transfer attempts that failed.",
	})

	pendingSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wearable",
		Subsystem: "syncer",
		Name:      "pending_sessions",
		Help:      "Closed sessions still awaiting a confirmed transfer.",
	})
)

func init() {
	prometheus.MustRegister(sessionsSyncedCounter, syncFailureCounter, pendingSessionsGauge)
}
