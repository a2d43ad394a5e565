package transfer

import "github.com/prometheus/client_golang/prometheus"

var (
	liveSendCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearable",
		Subsystem: "transfer",
		Name:      "live_sends_total",
		Help:      "Number of live telemetry payloads handed to the transport.",
	})

	liveSendErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearable",
		Subsystem: "transfer",
		Name:      "live_send_errors_total",
		Help:      "Number of live telemetry sends the transport rejected.",
	})

	bulkSendCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearable",
		Subsystem: "transfer",
		Name:      "bulk_sends_total",
		Help:      "Number of session payloads accepted by at least one peer.",
	})

	bulkSendErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearable",
		Subsystem: "transfer",
		Name:      "bulk_send_errors_total",
		Help:      "Number of session payloads no peer accepted.",
	})
)

func init() {
	prometheus.MustRegister(liveSendCounter, liveSendErrorCounter, bulkSendCounter, bulkSendErrorCounter)
}
