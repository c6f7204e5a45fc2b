package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pq.Error{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"foreign key violation", &pq.Error{Code: "23503"}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestNullIDs(t *testing.T) {
	id := shared.NewID()

	assert.False(t, nullID(nil).Valid)
	assert.Equal(t, id.String(), nullID(&id).String)
	assert.False(t, nullIDValue(shared.ID{}).Valid)

	parsed := parseNullID(sql.NullString{String: id.String(), Valid: true})
	require.NotNil(t, parsed)
	assert.Equal(t, id, *parsed)

	assert.Nil(t, parseNullID(sql.NullString{}))
	assert.Nil(t, parseNullID(sql.NullString{String: "garbage", Valid: true}))
}

func TestNullStrings(t *testing.T) {
	assert.False(t, nullString("").Valid)
	assert.Equal(t, "x", nullStringValue(nullString("x")))
	assert.Equal(t, "", nullStringValue(sql.NullString{}))
	assert.Nil(t, nullTimeValue(sql.NullTime{}))
}
