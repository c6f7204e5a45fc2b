// Package ingest runs one uploaded batch of scan results through the
// ingestion pipeline: normalize, persist, reconcile assets, notify.
package ingest

import (
	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// =============================================================================
// Constants & Limits
// =============================================================================

const (
	// DefaultMaxUploadSize bounds the raw payload of one batch.
	DefaultMaxUploadSize = 50 << 20 // 50MB

	// DefaultMaxRecords is the maximum number of records in a single batch.
	DefaultMaxRecords = 100000

	// DefaultMaxErrorsToReturn limits the number of errors returned in the response.
	DefaultMaxErrorsToReturn = 100

	// DefaultWorkers is the default parallelism for normalization and reconciliation.
	DefaultWorkers = 4

	// DefaultEventSubject is the subject batch-completed events are published on.
	DefaultEventSubject = "scanledger.batch.completed"
)

// =============================================================================
// Pipeline Stages
// =============================================================================

// Stage is a state of the ingestion pipeline.
type Stage string

const (
	StageReceived   Stage = "received"
	StageNormalized Stage = "normalized"
	StagePersisted  Stage = "persisted"
	StageReconciled Stage = "reconciled"
	StageNotified   Stage = "notified"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// stageOrder is the only path a batch takes through the pipeline.
// StageError is reachable from any stage.
var stageOrder = []Stage{
	StageReceived,
	StageNormalized,
	StagePersisted,
	StageReconciled,
	StageNotified,
	StageComplete,
}

func (s Stage) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageComplete || s == StageError
}

// CanTransitionTo reports whether the pipeline may move from s to next.
func (s Stage) CanTransitionTo(next Stage) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StageError {
		return true
	}
	for i, st := range stageOrder {
		if st == s {
			return i+1 < len(stageOrder) && stageOrder[i+1] == next
		}
	}
	return false
}

// =============================================================================
// Input/Output Types
// =============================================================================

// Input is one uploaded batch.
type Input struct {
	// Filename selects the format by extension (.json or .jsonl).
	Filename string

	// BatchName labels the batch. Defaults to Filename.
	BatchName string

	Data []byte
}

// Output is the structured outcome of one ingestion. It is returned even
// when the pipeline stops in StageError so partial progress is visible.
type Output struct {
	BatchID            shared.ID     `json:"batch_id"`
	BatchName          string        `json:"batch_name"`
	Format             string        `json:"format"`
	Stage              Stage         `json:"stage"`
	FailedAt           Stage         `json:"failed_at,omitempty"`
	RecordsTotal       int           `json:"records_total"`
	FindingsProcessed  int           `json:"findings_processed"`
	AssetsCreated      int           `json:"assets_created"`
	AssetsUpdated      int           `json:"assets_updated"`
	NotificationsSent  int           `json:"notifications_sent"`
	NotificationErrors int           `json:"notification_errors"`
	RecordErrorCount   int           `json:"record_error_count"`
	LineErrors         []RecordError `json:"line_errors,omitempty"`
	HostErrors         []HostError   `json:"host_errors,omitempty"`
	Error              string        `json:"error,omitempty"`
}

// RecordError reports one record that failed to parse or normalize.
type RecordError struct {
	Line    int    `json:"line"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// HostError reports one host whose asset could not be reconciled.
type HostError struct {
	Host    string `json:"host"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Options bounds and tunes the pipeline.
type Options struct {
	MaxUploadSize     int64
	MaxRecords        int
	MaxLineBytes      int
	NormalizeWorkers  int
	ReconcileWorkers  int
	MaxErrorsToReturn int
	EventSubject      string
}

// DefaultOptions returns the default pipeline options.
func DefaultOptions() Options {
	return Options{
		MaxUploadSize:     DefaultMaxUploadSize,
		MaxRecords:        DefaultMaxRecords,
		NormalizeWorkers:  DefaultWorkers,
		ReconcileWorkers:  DefaultWorkers,
		MaxErrorsToReturn: DefaultMaxErrorsToReturn,
		EventSubject:      DefaultEventSubject,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxUploadSize <= 0 {
		o.MaxUploadSize = d.MaxUploadSize
	}
	if o.NormalizeWorkers <= 0 {
		o.NormalizeWorkers = d.NormalizeWorkers
	}
	if o.ReconcileWorkers <= 0 {
		o.ReconcileWorkers = d.ReconcileWorkers
	}
	if o.MaxErrorsToReturn <= 0 {
		o.MaxErrorsToReturn = d.MaxErrorsToReturn
	}
	if o.EventSubject == "" {
		o.EventSubject = d.EventSubject
	}
	return o
}
