// Package vulnerability holds the Finding aggregate: one normalized
// vulnerability occurrence tied to a scan batch and a host.
package vulnerability

import (
	"fmt"
	"strings"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Severity is the canonical severity of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"

	// SeverityUnknown is only produced when reconstituting rows written by
	// other producers. Normalization never yields it.
	SeverityUnknown Severity = "unknown"
)

// AllSeverities lists the severities normalization can produce, most severe first.
func AllSeverities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

func (s Severity) String() string {
	return string(s)
}

// IsValid reports whether s is one of the stored severity values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo, SeverityUnknown:
		return true
	}
	return false
}

// ParseSeverity maps scanner-specific severity text onto a canonical
// severity. Anything unrecognized becomes SeverityInfo.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical", "crit":
		return SeverityCritical
	case "high", "error", "severe":
		return SeverityHigh
	case "medium", "moderate", "warning", "med":
		return SeverityMedium
	case "low", "minor":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// severityFromStore keeps "unknown" rows intact instead of folding them into info.
func severityFromStore(raw string) Severity {
	if s := Severity(raw); s.IsValid() {
		return s
	}
	return ParseSeverity(raw)
}

// FindingStatus is the remediation workflow state of a finding.
type FindingStatus string

const (
	FindingStatusOpen       FindingStatus = "open"
	FindingStatusInProgress FindingStatus = "in_progress"
	FindingStatusClosed     FindingStatus = "closed"
)

func (s FindingStatus) String() string {
	return string(s)
}

// IsValid reports whether s is a known status.
func (s FindingStatus) IsValid() bool {
	switch s {
	case FindingStatusOpen, FindingStatusInProgress, FindingStatusClosed:
		return true
	}
	return false
}

// IsClosed reports whether the finding is excluded from SLA accounting.
func (s FindingStatus) IsClosed() bool {
	return s == FindingStatusClosed
}

// ParseFindingStatus parses a status string.
func ParseFindingStatus(raw string) (FindingStatus, error) {
	s := FindingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: invalid finding status %q", shared.ErrValidation, raw)
	}
	return s, nil
}

// allowedTransitions lists legal status changes.
var allowedTransitions = map[FindingStatus][]FindingStatus{
	FindingStatusOpen:       {FindingStatusInProgress, FindingStatusClosed},
	FindingStatusInProgress: {FindingStatusOpen, FindingStatusClosed},
	FindingStatusClosed:     {FindingStatusOpen},
}

// CanTransitionTo reports whether the status may change to next.
func (s FindingStatus) CanTransitionTo(next FindingStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
