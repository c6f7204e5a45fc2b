package scanresult

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Parser errors.
var (
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported file format", shared.ErrValidation)
	ErrParse             = fmt.Errorf("%w: malformed scan results", shared.ErrValidation)
	ErrTooManyRecords    = fmt.Errorf("%w: too many records", shared.ErrValidation)
	ErrNotObject         = errors.New("record is not a JSON object")
	ErrLineTooLong       = errors.New("line exceeds maximum length")
)

// Format is the input encoding of an upload.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// DetectFormat maps a file name to its Format by extension.
func DetectFormat(filename string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		return FormatJSON, nil
	case ".jsonl":
		return FormatJSONL, nil
	case "":
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, filename)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// Record is one raw finding-like object and its position in the input.
// Line is the 1-based line number for JSONL and the 1-based element
// position for JSON arrays.
type Record struct {
	Line   int
	Fields map[string]any
}

// LineError reports a record that could not be parsed or normalized.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error {
	return e.Err
}
