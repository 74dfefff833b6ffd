package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons for dropped webhooks, used as the "reason" label value.
const (
	DropReasonNoAccount      = "no_account"
	DropReasonNoActionable   = "no_actionable_event"
	DropReasonUnknownTarget  = "unknown_tracking_number"
	DropReasonUnmappedStatus = "unmapped_status"
)

var (
	// Labels for webhook ingestion metrics
	webhookLabels = []string{"platform", "company_id", "source"}
	// Labels for dropped webhook visibility
	droppedLabels = []string{"platform", "company_id", "reason"}
	// Labels for DB operation metrics
	dbOperationLabels = []string{"operation", "entity", "company_id", "status"}

	WebhooksReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_ingestor_webhooks_received_total",
			Help: "Total number of webhooks received, labeled by ingestion source.",
		},
		webhookLabels,
	)
	WebhooksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_ingestor_webhooks_processed_total",
			Help: "Total number of webhooks fully processed with a SUCCESS outcome.",
		},
		webhookLabels,
	)
	WebhooksFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_ingestor_webhooks_failed_total",
			Help: "Total number of webhooks that ended in a FAILURE outcome.",
		},
		webhookLabels,
	)

	// WebhooksDroppedTotal gives operators visibility into webhooks that
	// were silently accepted but produced no writes (no active account,
	// no actionable event, unknown tracking number).
	WebhooksDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_ingestor_webhooks_dropped_total",
			Help: "Total number of webhooks accepted without persistence effects, labeled by reason.",
		},
		droppedLabels,
	)

	EventsNormalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_ingestor_events_normalized_total",
			Help: "Total number of normalized events produced by adapters.",
		},
		[]string{"platform", "kind"},
	)

	EntriesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_ingestor_entries_skipped_total",
			Help: "Total number of malformed sub-entries skipped within otherwise valid batches.",
		},
		[]string{"platform"},
	)

	WebhookProcessingDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_ingestor_processing_duration_seconds",
			Help:    "Histogram of end-to-end webhook processing durations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		webhookLabels,
	)

	DbOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_ingestor_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// ObserveDbOperationDuration records the duration and outcome of a DB operation.
func ObserveDbOperationDuration(operation, entity, companyID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DbOperationDurationSeconds.WithLabelValues(operation, entity, companyID, status).Observe(duration.Seconds())
}

// IncWebhookDropped increments the dropped-webhook counter.
func IncWebhookDropped(platform, companyID, reason string) {
	WebhooksDroppedTotal.WithLabelValues(platform, companyID, reason).Inc()
}
