// Package metrics holds the Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestionsTotal counts persisted documents by OCR and embedding outcome.
	IngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexvault_ingestions_total",
			Help: "Documents ingested, by OCR and embedding outcome",
		},
		[]string{"ocr_status", "embedding_status"},
	)

	// IngestionFailuresTotal counts ingestions aborted before a document was persisted.
	IngestionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexvault_ingestion_failures_total",
			Help: "Ingestions aborted before persistence, by stage",
		},
		[]string{"stage"},
	)

	// ExtractionsTotal counts extractor runs by the strategy that produced the text.
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexvault_extractions_total",
			Help: "Text extractions, by winning strategy",
		},
		[]string{"strategy"},
	)

	// CloudCallDuration tracks latency of calls to external AI services.
	CloudCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexvault_cloud_call_duration_seconds",
			Help:    "Latency of calls to cloud OCR, embedding and chat providers",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)

	// TaskFailuresTotal counts worker task attempts that returned an error.
	TaskFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexvault_task_failures_total",
			Help: "Worker task attempts that failed, by task type and whether retries are exhausted",
		},
		[]string{"task_type", "final"},
	)

	// AuthorizationDenialsTotal counts refused policy checks.
	AuthorizationDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexvault_authorization_denials_total",
			Help: "Authorization checks refused by the access policy",
		},
		[]string{"action"},
	)
)

// Outcome converts an error into a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
