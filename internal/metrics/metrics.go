package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ledgerSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainsign_ledger_submissions_total",
		Help: "Contract calls submitted to the ledger by entry point and outcome",
	}, []string{"entry_point", "outcome"})

	ledgerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chainsign_ledger_submission_seconds",
		Help:    "Time from submission to confirmation of a contract call",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"entry_point"})

	blobUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainsign_blob_uploads_total",
		Help: "Files uploaded to the blob store by outcome",
	}, []string{"outcome"})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainsign_workflow_transitions_total",
		Help: "Confirmed approval workflow transitions",
	}, []string{"transition"})
)

func ObserveSubmission(entryPoint, outcome string, started time.Time) {
	ledgerSubmissions.WithLabelValues(entryPoint, outcome).Inc()
	ledgerLatency.WithLabelValues(entryPoint).Observe(time.Since(started).Seconds())
}

func ObserveUpload(outcome string) {
	blobUploads.WithLabelValues(outcome).Inc()
}

func ObserveTransition(transition string) {
	transitions.WithLabelValues(transition).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
