package scan

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Batch is immutable once stored. It owns the findings normalized from it.
type Batch struct {
	ID        shared.ID
	Name      string
	Type      BatchType
	Results   json.RawMessage // Raw upload, stored as-is
	CreatedAt time.Time
}

// NewBatch creates a new scan batch.
func NewBatch(name string, batchType BatchType, results []byte) (*Batch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "name is required", shared.ErrValidation)
	}
	if !batchType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "invalid batch type", shared.ErrValidation)
	}

	return &Batch{
		ID:        shared.NewID(),
		Name:      name,
		Type:      batchType,
		Results:   json.RawMessage(results),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ResultsForStorage returns the payload in a form a jsonb column accepts.
// JSONL uploads are not a single JSON document, so they are stored as a
// JSON string. PostgreSQL rejects NUL in jsonb, so NUL characters and
// \u0000 escapes are dropped.
func (b *Batch) ResultsForStorage() ([]byte, error) {
	if b.Type == BatchTypeJSON && json.Valid(b.Results) {
		return dropNULEscapes(b.Results), nil
	}
	return json.Marshal(strings.ReplaceAll(string(b.Results), "\x00", ""))
}

// dropNULEscapes removes \u0000 escapes from a valid JSON document. Other
// escapes, including an escaped backslash followed by "u0000", are kept.
func dropNULEscapes(doc []byte) []byte {
	if !bytes.Contains(doc, nulEscape) {
		return doc
	}
	out := make([]byte, 0, len(doc))
	for i := 0; i < len(doc); i++ {
		if doc[i] != '\\' || i+1 >= len(doc) {
			out = append(out, doc[i])
			continue
		}
		if bytes.HasPrefix(doc[i:], nulEscape) {
			i += len(nulEscape) - 1
			continue
		}
		out = append(out, doc[i], doc[i+1])
		i++
	}
	return out
}

var nulEscape = []byte(`\u0000`)
