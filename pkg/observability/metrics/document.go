package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes recorded for document operations.
const (
	OutcomeSuccess    = "success"
	OutcomeNotFound   = "not_found"
	OutcomeBadRequest = "bad_request"
	OutcomeError      = "error"
)

var (
	// Labels: collection, operation (get_one, get_many, create, update, delete), outcome.
	documentOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "document_operation_duration_seconds",
			Help:    "Duration of document service operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation", "outcome"},
	)

	documentOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_operations_total",
			Help: "Total number of document service operations",
		},
		[]string{"collection", "operation", "outcome"},
	)
)

// RecordDocumentOperation records one finished document service call.
func RecordDocumentOperation(collection, operation, outcome string, duration time.Duration) {
	documentOperationDuration.WithLabelValues(collection, operation, outcome).Observe(duration.Seconds())
	documentOperationsTotal.WithLabelValues(collection, operation, outcome).Inc()
}
