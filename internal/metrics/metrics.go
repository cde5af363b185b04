package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters, registered on the default registry and exposed by
// the metrics server.
var (
	MessagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoice_collection",
		Name:      "messages_processed_total",
		Help:      "Number of selected messages run through the pipeline.",
	})

	AttachmentsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoice_collection",
		Name:      "attachments_processed_total",
		Help:      "Number of attachments extracted successfully.",
	})

	AttachmentsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoice_collection",
		Name:      "attachments_skipped_total",
		Help:      "Number of attachments skipped by quota or unsupported type.",
	})

	AttachmentsErrored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoice_collection",
		Name:      "attachments_errored_total",
		Help:      "Number of attachments that failed to download or extract.",
	})

	ArchivesExpanded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoice_collection",
		Name:      "archives_expanded_total",
		Help:      "Number of archive attachments expanded.",
	})

	QuotaTrips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "invoice_collection",
		Name:      "quota_trips_total",
		Help:      "Number of messages that hit the per-message file limit.",
	})
)
