package cloud

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsUploadedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Subsystem: "cloud",
		Name:      "sessions_uploaded_total",
		Help:      "Number of sessions fully uploaded to the cloud store.",
	})

	samplesUploadedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Subsystem: "cloud",
		Name:      "samples_uploaded_total",
		Help:      "Number of sample documents written to the cloud store.",
	})

	uploadFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "companion",
		Subsystem: "cloud",
		Name:      "upload_failures_total",
		Help:      "Number of uploads aborted by auth or store failures.",
	})
)

func init() {
	prometheus.MustRegister(sessionsUploadedCounter, samplesUploadedCounter, uploadFailureCounter)
}
