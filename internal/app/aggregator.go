package app

import (
	"time"

	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/sla"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

// UnassignedLabel groups findings with no assignee.
const UnassignedLabel = "Unassigned"

// AgingBucket is a closed day range. Max < 0 means open-ended.
type AgingBucket struct {
	Label string
	Min   int
	Max   int
}

// Contains reports whether days falls in the bucket.
func (b AgingBucket) Contains(days int) bool {
	return days >= b.Min && (b.Max < 0 || days <= b.Max)
}

// AgingBuckets are the fixed age ranges, youngest first.
var AgingBuckets = []AgingBucket{
	{Label: "0-7 days", Min: 0, Max: 7},
	{Label: "8-14 days", Min: 8, Max: 14},
	{Label: "15-30 days", Min: 15, Max: 30},
	{Label: "31-60 days", Min: 31, Max: 60},
	{Label: "60+ days", Min: 61, Max: -1},
}

// AgingBucketFor returns the label of the bucket days falls in.
func AgingBucketFor(days int) string {
	for _, b := range AgingBuckets {
		if b.Contains(days) {
			return b.Label
		}
	}
	return AgingBuckets[0].Label
}

// StatusCounts totals open findings by SLA status.
type StatusCounts struct {
	Breached  int `json:"breached" yaml:"breached"`
	DueSoon   int `json:"due_soon" yaml:"due_soon"`
	WithinSLA int `json:"within_sla" yaml:"within_sla"`
}

// Total returns the number of classified findings.
func (c StatusCounts) Total() int {
	return c.Breached + c.DueSoon + c.WithinSLA
}

// Summary holds the four distributions of one finding set. All of them
// are derived from the same pass, so they always agree on the total.
type Summary struct {
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Total       int            `json:"total" yaml:"total"`
	Status      StatusCounts   `json:"status" yaml:"status"`
	BySeverity  map[string]int `json:"by_severity" yaml:"by_severity"`
	ByAge       map[string]int `json:"by_age" yaml:"by_age"`
	ByAssignee  map[string]int `json:"by_assignee" yaml:"by_assignee"`
}

// Summarize classifies every unclosed finding against policy at now and
// builds the status, severity, aging and assignee distributions in a
// single traversal. Closed findings are skipped. names maps assignee ids
// to display names; an id missing from names is reported by its string
// form. Severity keys appear only for severities present in findings;
// every aging bucket is always present.
func Summarize(findings []*vulnerability.Finding, policy *sla.Policy, names map[shared.ID]string, now time.Time) Summary {
	s := Summary{
		GeneratedAt: now,
		BySeverity:  make(map[string]int),
		ByAge:       make(map[string]int, len(AgingBuckets)),
		ByAssignee:  make(map[string]int),
	}
	for _, b := range AgingBuckets {
		s.ByAge[b.Label] = 0
	}

	for _, f := range findings {
		ev, ok := policy.ClassifyFinding(f, now)
		if !ok {
			continue
		}
		s.Total++

		switch ev.Status {
		case sla.StatusBreached:
			s.Status.Breached++
		case sla.StatusDueSoon:
			s.Status.DueSoon++
		default:
			s.Status.WithinSLA++
		}

		s.BySeverity[f.Severity().String()]++
		s.ByAge[AgingBucketFor(ev.DaysSinceCreation)]++
		s.ByAssignee[assigneeLabel(f.AssignedTo(), names)]++
	}
	return s
}

func assigneeLabel(id *shared.ID, names map[shared.ID]string) string {
	if id == nil {
		return UnassignedLabel
	}
	if name, ok := names[*id]; ok && name != "" {
		return name
	}
	return id.String()
}

// assigneeIDs returns the distinct assignees of the unclosed findings.
func assigneeIDs(findings []*vulnerability.Finding) []shared.ID {
	seen := make(map[shared.ID]struct{})
	ids := make([]shared.ID, 0)
	for _, f := range findings {
		id := f.AssignedTo()
		if id == nil || f.IsClosed() {
			continue
		}
		if _, ok := seen[*id]; ok {
			continue
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	return ids
}
