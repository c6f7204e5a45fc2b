package ingest

import (
	"fmt"

	"github.com/openctemio/scanledger/pkg/domain/scan"
	"github.com/openctemio/scanledger/pkg/parsers/scanresult"
)

// Validator checks an upload before any of it is parsed.
type Validator struct {
	maxUploadSize int64
}

// NewValidator creates a new ingest validator.
func NewValidator(maxUploadSize int64) *Validator {
	return &Validator{maxUploadSize: maxUploadSize}
}

// ValidateInput rejects unsupported extensions and oversized or empty
// payloads and returns the detected format.
func (v *Validator) ValidateInput(input Input) (scanresult.Format, error) {
	format, err := scanresult.DetectFormat(input.Filename)
	if err != nil {
		return "", err
	}

	if v.maxUploadSize > 0 && int64(len(input.Data)) > v.maxUploadSize {
		return "", fmt.Errorf("%w: %d bytes, maximum is %d", ErrPayloadTooLarge, len(input.Data), v.maxUploadSize)
	}
	if len(input.Data) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrParse)
	}

	return format, nil
}

// batchType maps a parser format onto the stored batch type.
func batchType(f scanresult.Format) scan.BatchType {
	if f == scanresult.FormatJSONL {
		return scan.BatchTypeJSONL
	}
	return scan.BatchTypeJSON
}
