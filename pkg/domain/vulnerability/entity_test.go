package vulnerability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		raw  string
		want Severity
	}{
		{"critical", SeverityCritical},
		{"CRITICAL", SeverityCritical},
		{" High ", SeverityHigh},
		{"moderate", SeverityMedium},
		{"medium", SeverityMedium},
		{"low", SeverityLow},
		{"info", SeverityInfo},
		{"informational", SeverityInfo},
		{"", SeverityInfo},
		{"unknown", SeverityInfo},
		{"bananas", SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.raw))
		})
	}
}

func TestParseSeverity_AlwaysCanonical(t *testing.T) {
	canonical := map[Severity]bool{}
	for _, s := range AllSeverities() {
		canonical[s] = true
	}

	for _, raw := range []string{"x", "CRIT", "sev-1", "\t", "999", "Médium", "warning"} {
		assert.True(t, canonical[ParseSeverity(raw)], "raw=%q", raw)
	}
}

func TestNewFinding_Defaults(t *testing.T) {
	scanID := shared.NewID()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	f, err := NewFinding(FindingParams{
		ScanID:    scanID,
		Severity:  Severity("whatever"),
		Host:      "   ",
		CreatedAt: created,
	})
	require.NoError(t, err)

	assert.False(t, f.ID().IsZero())
	assert.Equal(t, scanID, f.ScanID())
	assert.Equal(t, UnknownHost, f.Host())
	assert.Equal(t, SeverityInfo, f.Severity())
	assert.Equal(t, FindingStatusOpen, f.Status())
	assert.Equal(t, created, f.MatchedAt())
	assert.Nil(t, f.AssignedTo())
}

func TestNewFinding_RequiresScan(t *testing.T) {
	_, err := NewFinding(FindingParams{Host: "h1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScanRequired))
	assert.True(t, shared.IsValidation(err))
}

func TestFinding_UpdateStatus(t *testing.T) {
	f, err := NewFinding(FindingParams{ScanID: shared.NewID(), Host: "h1", Severity: SeverityHigh})
	require.NoError(t, err)

	require.NoError(t, f.UpdateStatus(FindingStatusInProgress))
	assert.Equal(t, FindingStatusInProgress, f.Status())

	err = f.UpdateStatus(FindingStatusInProgress)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	require.NoError(t, f.UpdateStatus(FindingStatusClosed))
	assert.True(t, f.IsClosed())

	require.NoError(t, f.UpdateStatus(FindingStatusOpen))
	assert.ErrorIs(t, f.UpdateStatus(FindingStatus("done")), ErrInvalidStatusTransition)
}

func TestFinding_Assign(t *testing.T) {
	f, err := NewFinding(FindingParams{ScanID: shared.NewID(), Host: "h1"})
	require.NoError(t, err)

	assert.Error(t, f.Assign(shared.ID{}))

	user := shared.NewID()
	require.NoError(t, f.Assign(user))
	require.NotNil(t, f.AssignedTo())
	assert.Equal(t, user, *f.AssignedTo())

	f.Unassign()
	assert.False(t, f.IsAssigned())
}

func TestReconstitute_KeepsUnknownSeverity(t *testing.T) {
	now := time.Now().UTC()
	f := Reconstitute(shared.NewID(), shared.NewID(), "", "tpl", "tpl", "unknown", "h1",
		now, "", true, "hash", "", "bogus", nil, now, now)

	assert.Equal(t, SeverityUnknown, f.Severity())
	assert.Equal(t, FindingStatusOpen, f.Status())
}

func TestParseFindingStatus(t *testing.T) {
	s, err := ParseFindingStatus("In_Progress")
	require.NoError(t, err)
	assert.Equal(t, FindingStatusInProgress, s)

	_, err = ParseFindingStatus("resolved")
	assert.True(t, shared.IsValidation(err))
}
