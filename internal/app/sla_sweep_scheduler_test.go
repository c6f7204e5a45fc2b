package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanledger/pkg/domain/notification"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/sla"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
	"github.com/openctemio/scanledger/pkg/logger"
)

func newTestSweep(findings *mockFindingRepo, users *mockUserRepo, d NotificationDispatcher) *SLASweepScheduler {
	s := NewSLASweepScheduler(findings, users, nil, SLASweepSchedulerConfig{Enabled: true}, logger.NewNop())
	s.now = func() time.Time { return fixedNow }
	if d != nil {
		s.SetDispatcher(d)
	}
	return s
}

func TestSLASweep_Sweep(t *testing.T) {
	findings := newMockFindingRepo(
		newFinding(vulnerability.SeverityCritical, 4), // breached
		newFinding(vulnerability.SeverityCritical, 9), // breached
		newFinding(vulnerability.SeverityLow, 31),     // breached
		newFinding(vulnerability.SeverityHigh, 5),     // due soon
		newFinding(vulnerability.SeverityInfo, 1),     // within
	)
	alice := newUser("alice", true)
	bob := newUser("bob", true)
	carol := newUser("carol", false)
	d := &mockDispatcher{failFor: map[shared.ID]bool{bob.ID(): true}}

	s := newTestSweep(findings, newMockUserRepo(alice, bob, carol), d)

	result, err := s.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCounts{Breached: 3, DueSoon: 1, WithinSLA: 1}, result.Status)
	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, 1, result.NotifyErrors)

	require.Len(t, d.sent, 1)
	sent := d.sent[0]
	assert.Equal(t, alice.ID(), sent.RecipientID)
	assert.Equal(t, notification.RelatedItemSLAReport, sent.RelatedItemType)
	assert.Equal(t, "2026-05-20", sent.RelatedItemID)
	assert.Equal(t, "3 open findings have breached their SLA (2 critical, 1 low).", sent.Message)

	assert.Equal(t, 3.0, testutil.ToFloat64(SLAFindings.WithLabelValues(sla.StatusBreached.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(SLAFindings.WithLabelValues(sla.StatusDueSoon.String())))
}

func TestSLASweep_NoBreachesNoNotifications(t *testing.T) {
	d := &mockDispatcher{}
	s := newTestSweep(
		newMockFindingRepo(newFinding(vulnerability.SeverityMedium, 1)),
		newMockUserRepo(newUser("alice", true)),
		d,
	)

	result, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Status.Breached)
	assert.Empty(t, d.sent)
}

func TestSLASweep_RecipientLookupFails(t *testing.T) {
	users := newMockUserRepo()
	users.listErr = errBoom
	s := newTestSweep(newMockFindingRepo(newFinding(vulnerability.SeverityCritical, 30)), users, &mockDispatcher{})

	result, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.NotifyErrors)
}

func TestSLASweep_ListFails(t *testing.T) {
	findings := newMockFindingRepo()
	findings.listErr = errBoom

	_, err := newTestSweep(findings, newMockUserRepo(), nil).Sweep(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestSLASweep_StartStop(t *testing.T) {
	s := NewSLASweepScheduler(newMockFindingRepo(), newMockUserRepo(), nil,
		SLASweepSchedulerConfig{Enabled: true, Cron: "*/5 * * * *"}, logger.NewNop())
	require.NoError(t, s.Start())
	s.Stop()

	bad := NewSLASweepScheduler(newMockFindingRepo(), newMockUserRepo(), nil,
		SLASweepSchedulerConfig{Enabled: true, Cron: "every day"}, logger.NewNop())
	assert.Error(t, bad.Start())

	disabled := NewSLASweepScheduler(newMockFindingRepo(), newMockUserRepo(), nil,
		SLASweepSchedulerConfig{}, logger.NewNop())
	require.NoError(t, disabled.Start())
	disabled.Stop()
}

func TestBreachMessage(t *testing.T) {
	msg := breachMessage(4, map[vulnerability.Severity]int{
		vulnerability.SeverityHigh: 1,
		vulnerability.SeverityInfo: 3,
	})
	assert.Equal(t, "4 open findings have breached their SLA (1 high, 3 info).", msg)
	assert.Equal(t, "0 open findings have breached their SLA.", breachMessage(0, nil))

	msg = breachMessage(3, map[vulnerability.Severity]int{
		vulnerability.SeverityCritical: 1,
		vulnerability.SeverityUnknown:  2,
	})
	assert.Equal(t, "3 open findings have breached their SLA (1 critical, 2 unknown).", msg)
}
