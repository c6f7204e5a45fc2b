// Package sla maps finding severities to remediation targets and classifies
// open findings against them. Classification is never stored; it is
// recomputed against the evaluation clock on every read.
package sla

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

// DefaultSLADays contains the default remediation days per severity.
var DefaultSLADays = map[string]int{
	"critical": 3,
	"high":     7,
	"medium":   14,
	"low":      30,
	"info":     90,
}

// DefaultDueSoonDays is how close to the deadline a finding becomes due soon.
const DefaultDueSoonDays = 3

// Policy is a severity to target-days mapping.
type Policy struct {
	criticalDays int
	highDays     int
	mediumDays   int
	lowDays      int
	infoDays     int
	dueSoonDays  int
}

// DefaultPolicy returns the policy built from DefaultSLADays.
func DefaultPolicy() *Policy {
	return &Policy{
		criticalDays: DefaultSLADays["critical"],
		highDays:     DefaultSLADays["high"],
		mediumDays:   DefaultSLADays["medium"],
		lowDays:      DefaultSLADays["low"],
		infoDays:     DefaultSLADays["info"],
		dueSoonDays:  DefaultDueSoonDays,
	}
}

// NewPolicy starts from the defaults and applies per-severity overrides.
// Keys are severity names; unknown keys and non-positive values are rejected.
func NewPolicy(overrides map[string]int) (*Policy, error) {
	p := DefaultPolicy()

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		days := overrides[k]
		if days <= 0 {
			return nil, fmt.Errorf("%w: %s days must be positive, got %d", ErrInvalidPolicy, k, days)
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "critical":
			p.criticalDays = days
		case "high":
			p.highDays = days
		case "medium":
			p.mediumDays = days
		case "low":
			p.lowDays = days
		case "info":
			p.infoDays = days
		default:
			return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidPolicy, k)
		}
	}
	return p, nil
}

func (p *Policy) CriticalDays() int { return p.criticalDays }
func (p *Policy) HighDays() int     { return p.highDays }
func (p *Policy) MediumDays() int   { return p.mediumDays }
func (p *Policy) LowDays() int      { return p.lowDays }
func (p *Policy) InfoDays() int     { return p.infoDays }
func (p *Policy) DueSoonDays() int  { return p.dueSoonDays }

// GetDaysForSeverity returns the target remediation days for a severity.
// Unknown and info severities share the info target.
func (p *Policy) GetDaysForSeverity(severity vulnerability.Severity) int {
	switch severity {
	case vulnerability.SeverityCritical:
		return p.criticalDays
	case vulnerability.SeverityHigh:
		return p.highDays
	case vulnerability.SeverityMedium:
		return p.mediumDays
	case vulnerability.SeverityLow:
		return p.lowDays
	default:
		return p.infoDays
	}
}

// CalculateDeadline returns the remediation deadline for a finding.
func (p *Policy) CalculateDeadline(severity vulnerability.Severity, createdAt time.Time) time.Time {
	return createdAt.AddDate(0, 0, p.GetDaysForSeverity(severity))
}

// Days returns the policy as a severity name to days map.
func (p *Policy) Days() map[string]int {
	return map[string]int{
		"critical": p.criticalDays,
		"high":     p.highDays,
		"medium":   p.mediumDays,
		"low":      p.lowDays,
		"info":     p.infoDays,
	}
}
