package shared

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies findings, assets, batches and users. New ids are UUIDv7,
// so ids created later sort later, which keeps btree inserts local.
type ID struct {
	value uuid.UUID
}

// NewID returns a fresh time ordered id.
func NewID() ID {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return ID{value: u}
}

// IDFromString parses the canonical textual form of an id.
func IDFromString(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: invalid id %q", ErrValidation, s)
	}
	return ID{value: u}, nil
}

func (id ID) String() string { return id.value.String() }

// IsZero reports whether id is unset.
func (id ID) IsZero() bool { return id.value == uuid.Nil }

// Equals compares two ids.
func (id ID) Equals(other ID) bool { return id.value == other.value }

// MarshalText makes ids render as strings in JSON, YAML and map keys.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.value.String()), nil
}

// UnmarshalText parses the form written by MarshalText.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := IDFromString(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value stores ids in uuid columns.
func (id ID) Value() (driver.Value, error) {
	return id.value.String(), nil
}

// Scan reads uuid columns, which lib/pq returns as text or bytes.
func (id *ID) Scan(src any) error {
	var err error
	switch v := src.(type) {
	case string:
		id.value, err = uuid.Parse(v)
	case []byte:
		id.value, err = uuid.ParseBytes(v)
	default:
		err = fmt.Errorf("cannot scan %T into ID", src)
	}
	return err
}

// IDStrings converts ids for use as a postgres text array.
func IDStrings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
