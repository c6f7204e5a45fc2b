// Package scan defines the scan batch: one uploaded set of raw scan
// results, the unit of ingestion.
package scan

// BatchType is the detected input format of an upload.
type BatchType string

const (
	BatchTypeJSON  BatchType = "json"
	BatchTypeJSONL BatchType = "jsonl"
)

// IsValid reports whether t is a supported format.
func (t BatchType) IsValid() bool {
	return t == BatchTypeJSON || t == BatchTypeJSONL
}
