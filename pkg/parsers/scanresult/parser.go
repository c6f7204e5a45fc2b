package scanresult

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// utf8BOM is tolerated at the start of a document.
var utf8BOM = []byte("\xef\xbb\xbf")

// Parser reads scan result documents into raw records.
type Parser struct {
	opts *Options
}

// Options configures the parser behavior.
type Options struct {
	// MaxLineBytes bounds a single JSONL line (default: 4 MiB).
	MaxLineBytes int

	// MaxRecords limits the number of records in one document (0 = unlimited).
	MaxRecords int
}

// DefaultOptions returns the default parser options.
func DefaultOptions() *Options {
	return &Options{
		MaxLineBytes: 4 << 20,
		MaxRecords:   0,
	}
}

// NewParser creates a new parser. If opts is nil, default options are used.
func NewParser(opts *Options) *Parser {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = DefaultOptions().MaxLineBytes
	}
	return &Parser{opts: opts}
}

// Parse dispatches on format.
func (p *Parser) Parse(format Format, data []byte) ([]Record, []LineError, error) {
	switch format {
	case FormatJSON:
		return p.ParseJSON(data)
	case FormatJSONL:
		return p.ParseJSONL(bytes.NewReader(data))
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ParseJSON parses a whole JSON document. An array yields one record per
// element; any other value is treated as a one-element batch. A document
// that is not valid JSON fails with ErrParse. Elements that are not objects
// are reported as line errors.
func (p *Parser) ParseJSON(data []byte) ([]Record, []LineError, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(trimmed) == 0 {
		return nil, nil, fmt.Errorf("%w: empty document", ErrParse)
	}

	var elements []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	} else {
		if !json.Valid(trimmed) {
			return nil, nil, fmt.Errorf("%w: invalid JSON document", ErrParse)
		}
		elements = []json.RawMessage{trimmed}
	}

	if p.opts.MaxRecords > 0 && len(elements) > p.opts.MaxRecords {
		return nil, nil, fmt.Errorf("%w: %d exceeds limit of %d", ErrTooManyRecords, len(elements), p.opts.MaxRecords)
	}

	records := make([]Record, 0, len(elements))
	var lineErrs []LineError
	for i, raw := range elements {
		fields, err := decodeObject(raw)
		if err != nil {
			lineErrs = append(lineErrs, LineError{Line: i + 1, Err: err})
			continue
		}
		records = append(records, Record{Line: i + 1, Fields: fields})
	}
	return records, lineErrs, nil
}

// ParseJSONL parses one JSON object per line. Blank lines are skipped.
// A bad line is reported and does not stop the stream; only a read
// failure of r is returned as an error.
func (p *Parser) ParseJSONL(r io.Reader) ([]Record, []LineError, error) {
	reader := bufio.NewReader(r)

	var records []Record
	var lineErrs []LineError
	lineNo := 0
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if lineNo == 1 {
				line = bytes.TrimPrefix(line, utf8BOM)
			}
			p.parseLine(lineNo, line, &records, &lineErrs)

			if p.opts.MaxRecords > 0 && len(records) > p.opts.MaxRecords {
				return nil, nil, fmt.Errorf("%w: more than %d", ErrTooManyRecords, p.opts.MaxRecords)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return records, lineErrs, fmt.Errorf("read scan results: %w", readErr)
		}
	}
	return records, lineErrs, nil
}

func (p *Parser) parseLine(lineNo int, line []byte, records *[]Record, lineErrs *[]LineError) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	if len(line) > p.opts.MaxLineBytes {
		*lineErrs = append(*lineErrs, LineError{Line: lineNo, Err: ErrLineTooLong})
		return
	}

	fields, err := decodeObject(line)
	if err != nil {
		*lineErrs = append(*lineErrs, LineError{Line: lineNo, Err: err})
		return
	}
	*records = append(*records, Record{Line: lineNo, Fields: fields})
}

// decodeObject decodes raw into a field map, keeping numbers exact.
func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrParse)
	}

	fields, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return fields, nil
}
