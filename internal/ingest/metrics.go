package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	liveReceivedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Subsystem: "ingest",
		Name:      "live_samples_total",
		Help:      "Number of live telemetry samples decoded and fanned out.",
	})

	liveDroppedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Subsystem: "ingest",
		Name:      "live_dropped_total",
		Help:      "Number of malformed live payloads dropped.",
	})

	bulkIngestedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Subsystem: "ingest",
		Name:      "sessions_ingested_total",
		Help:      "Number of session payloads durably stored.",
	})

	bulkDroppedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Subsystem: "ingest",
		Name:      "sessions_dropped_total",
		Help:      "Number of malformed session payloads dropped whole.",
	})

	bulkFailedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Subsystem: "ingest",
		Name:      "sessions_failed_total",
		Help:      "Number of session payloads that failed to store.",
	})

	lastIngestGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "companion",
		Subsystem: "ingest",
		Name:      "last_session_ingested_timestamp_seconds",
		Help:      "Unix timestamp of the most recent session durably stored.",
	})
)

func init() {
	prometheus.MustRegister(liveReceivedCounter, liveDroppedCounter,
		bulkIngestedCounter, bulkDroppedCounter, bulkFailedCounter, lastIngestGauge)
}

func recordSessionIngested(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastIngestGauge.Set(float64(ts.Unix()))
}
