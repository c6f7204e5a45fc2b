package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest metrics
var (
	// IngestBatchesTotal tracks batches by the stage they ended in
	IngestBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_batches_total",
			Help: "Total number of ingested batches by format and final stage",
		},
		[]string{"format", "stage"},
	)

	// IngestDuration tracks end-to-end batch ingestion time
	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Batch ingestion duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"format"},
	)

	// IngestStageDuration tracks time spent in each pipeline stage
	IngestStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_stage_duration_seconds",
			Help:    "Time spent in each ingestion stage in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"stage"},
	)

	// FindingsIngested tracks normalized findings by severity
	FindingsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findings_ingested_total",
			Help: "Total number of findings persisted by severity",
		},
		[]string{"severity"},
	)

	// IngestRecordErrors tracks records rejected during parse or normalization
	IngestRecordErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_record_errors_total",
			Help: "Total number of records that failed to parse or normalize",
		},
	)
)

// Asset metrics
var (
	// AssetsReconciled tracks reconciliation outcomes per host
	AssetsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assets_reconciled_total",
			Help: "Total number of host reconciliations by result",
		},
		[]string{"result"}, // result: "created", "updated", "failed"
	)

	// AssetCreateConflicts tracks creates that lost a race to another batch
	AssetCreateConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_create_conflicts_total",
			Help: "Total number of asset creates that fell back to increment",
		},
	)
)

// Notification metrics
var (
	// NotificationsDispatched tracks notification dispatch results
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Total number of notifications dispatched by kind and result",
		},
		[]string{"kind", "result"},
	)

	// WebhookDeliveries tracks outbound webhook deliveries
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_webhook_deliveries_total",
			Help: "Total number of webhook deliveries by result",
		},
		[]string{"result"},
	)
)

// SLA metrics
var (
	// SLAFindings tracks open findings by SLA status as of the last sweep
	SLAFindings = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sla_findings",
			Help: "Open findings by SLA status at the last sweep",
		},
		[]string{"status"},
	)

	// SLASweepsTotal tracks sweep runs
	SLASweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_sweeps_total",
			Help: "Total number of SLA breach sweeps by result",
		},
		[]string{"result"},
	)

	// SLASweepLastRun records the unix time of the last completed sweep
	SLASweepLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sla_sweep_last_run_timestamp_seconds",
			Help: "Unix time of the last completed SLA sweep",
		},
	)
)

// Integration metrics
var (
	// EventsPublished tracks event bus publishes
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events published by subject and result",
		},
		[]string{"subject", "result"},
	)

	// ArchiveUploads tracks raw batch archive uploads
	ArchiveUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_uploads_total",
			Help: "Total number of raw batch archive uploads by result",
		},
		[]string{"result"},
	)
)
