package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

func TestNew(t *testing.T) {
	u, err := New(" Alice@Example.com ", "Alice", true)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email())
	assert.True(t, u.IsIngestRecipient())
	assert.Equal(t, "Alice", u.DisplayName())

	_, err = New("not-an-email", "x", false)
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestDisplayName_FallsBackToEmail(t *testing.T) {
	u, err := New("bob@example.com", "", false)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.DisplayName())
	assert.False(t, u.IsIngestRecipient())
}

func TestIsIngestRecipient_Inactive(t *testing.T) {
	now := time.Now()
	u := Reconstitute(shared.NewID(), "c@example.com", "C", StatusInactive, true, now, now)
	assert.False(t, u.IsIngestRecipient())
}
