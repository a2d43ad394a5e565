package recording

import "github.com/prometheus/client_golang/prometheus"

var (
	recordingStartedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearable",
		Subsystem: "recording",
		Name:      "sessions_started_total",
		Help:      "Number of recording sessions opened.",
	})

	samplesRecordedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wearable",
		Subsystem: "recording",
		Name:      "samples_recorded_total",
		Help:      "Number of samples appended to the local store.",
	})
)

func init() {
	prometheus.MustRegister(recordingStartedCounter, samplesRecordedCounter)
}
