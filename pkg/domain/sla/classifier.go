package sla

import (
	"time"

	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

// Status is the SLA standing of an open finding.
type Status string

const (
	StatusBreached  Status = "breached"
	StatusDueSoon   Status = "due_soon"
	StatusWithinSLA Status = "within_sla"
)

func (s Status) String() string {
	return string(s)
}

const day = 24 * time.Hour

// Evaluation is the result of classifying one finding at a point in time.
type Evaluation struct {
	Status            Status    `json:"status"`
	TargetDays        int       `json:"target_days"`
	DaysSinceCreation int       `json:"days_since_creation"`
	DaysRemaining     int       `json:"days_remaining"`
	DaysOverdue       int       `json:"days_overdue"`
	DeadlineAt        time.Time `json:"deadline_at"`
}

// DaysSince returns the whole days elapsed from createdAt to now.
// A createdAt in the future counts as zero days.
func DaysSince(createdAt, now time.Time) int {
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / day)
}

// Classify evaluates a finding of the given severity created at createdAt
// against now.
func (p *Policy) Classify(severity vulnerability.Severity, createdAt, now time.Time) Evaluation {
	target := p.GetDaysForSeverity(severity)
	since := DaysSince(createdAt, now)
	remaining := target - since

	ev := Evaluation{
		TargetDays:        target,
		DaysSinceCreation: since,
		DaysRemaining:     remaining,
		DeadlineAt:        p.CalculateDeadline(severity, createdAt),
	}

	switch {
	case remaining < 0:
		ev.Status = StatusBreached
		ev.DaysOverdue = -remaining
	case remaining <= p.dueSoonDays:
		ev.Status = StatusDueSoon
	default:
		ev.Status = StatusWithinSLA
	}
	return ev
}

// ClassifyFinding evaluates f against now. ok is false for closed findings,
// which take no part in SLA accounting.
func (p *Policy) ClassifyFinding(f *vulnerability.Finding, now time.Time) (ev Evaluation, ok bool) {
	if f.IsClosed() {
		return Evaluation{}, false
	}
	return p.Classify(f.Severity(), f.CreatedAt(), now), true
}
