package vulnerability

import (
	"fmt"
	"strings"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// UnknownHost is used when a record carries no host.
const UnknownHost = "unknown"

// Finding is one vulnerability occurrence observed on a host in a scan batch.
type Finding struct {
	id             shared.ID
	scanID         shared.ID
	externalVulnID string
	templateID     string
	templateName   string
	severity       Severity
	host           string
	matchedAt      time.Time
	matcherName    string
	matcherStatus  bool
	contentHash    string
	description    string
	status         FindingStatus
	assignedTo     *shared.ID
	createdAt      time.Time
	updatedAt      time.Time
}

// FindingParams contains the normalized fields of a new finding.
type FindingParams struct {
	ScanID         shared.ID
	ExternalVulnID string
	TemplateID     string
	TemplateName   string
	Severity       Severity
	Host           string
	MatchedAt      time.Time
	MatcherName    string
	MatcherStatus  bool
	ContentHash    string
	Description    string
	CreatedAt      time.Time
}

// NewFinding creates an open, unassigned finding.
func NewFinding(p FindingParams) (*Finding, error) {
	if p.ScanID.IsZero() {
		return nil, ErrScanRequired
	}

	host := strings.TrimSpace(p.Host)
	if host == "" {
		host = UnknownHost
	}

	severity := p.Severity
	if !severity.IsValid() || severity == SeverityUnknown {
		severity = ParseSeverity(string(p.Severity))
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	matchedAt := p.MatchedAt
	if matchedAt.IsZero() {
		matchedAt = createdAt
	}

	return &Finding{
		id:             shared.NewID(),
		scanID:         p.ScanID,
		externalVulnID: p.ExternalVulnID,
		templateID:     p.TemplateID,
		templateName:   p.TemplateName,
		severity:       severity,
		host:           host,
		matchedAt:      matchedAt,
		matcherName:    p.MatcherName,
		matcherStatus:  p.MatcherStatus,
		contentHash:    p.ContentHash,
		description:    p.Description,
		status:         FindingStatusOpen,
		createdAt:      createdAt,
		updatedAt:      createdAt,
	}, nil
}

// Reconstitute recreates a Finding from persistence.
func Reconstitute(
	id, scanID shared.ID,
	externalVulnID, templateID, templateName, severity, host string,
	matchedAt time.Time,
	matcherName string,
	matcherStatus bool,
	contentHash, description, status string,
	assignedTo *shared.ID,
	createdAt, updatedAt time.Time,
) *Finding {
	st := FindingStatus(status)
	if !st.IsValid() {
		st = FindingStatusOpen
	}
	return &Finding{
		id:             id,
		scanID:         scanID,
		externalVulnID: externalVulnID,
		templateID:     templateID,
		templateName:   templateName,
		severity:       severityFromStore(severity),
		host:           host,
		matchedAt:      matchedAt,
		matcherName:    matcherName,
		matcherStatus:  matcherStatus,
		contentHash:    contentHash,
		description:    description,
		status:         st,
		assignedTo:     assignedTo,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// Getters

func (f *Finding) ID() shared.ID          { return f.id }
func (f *Finding) ScanID() shared.ID      { return f.scanID }
func (f *Finding) ExternalVulnID() string { return f.externalVulnID }
func (f *Finding) TemplateID() string     { return f.templateID }
func (f *Finding) TemplateName() string   { return f.templateName }
func (f *Finding) Severity() Severity     { return f.severity }
func (f *Finding) Host() string           { return f.host }
func (f *Finding) MatchedAt() time.Time   { return f.matchedAt }
func (f *Finding) MatcherName() string    { return f.matcherName }
func (f *Finding) MatcherStatus() bool    { return f.matcherStatus }
func (f *Finding) ContentHash() string    { return f.contentHash }
func (f *Finding) Description() string    { return f.description }
func (f *Finding) Status() FindingStatus  { return f.status }
func (f *Finding) AssignedTo() *shared.ID { return f.assignedTo }
func (f *Finding) CreatedAt() time.Time   { return f.createdAt }
func (f *Finding) UpdatedAt() time.Time   { return f.updatedAt }
func (f *Finding) IsClosed() bool         { return f.status.IsClosed() }
func (f *Finding) IsAssigned() bool       { return f.assignedTo != nil }

// UpdateStatus moves the finding through the remediation workflow.
func (f *Finding) UpdateStatus(next FindingStatus) error {
	if !next.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatusTransition, next)
	}
	if !f.status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, f.status, next)
	}
	f.status = next
	f.updatedAt = time.Now().UTC()
	return nil
}

// Assign sets the responsible user.
func (f *Finding) Assign(userID shared.ID) error {
	if userID.IsZero() {
		return fmt.Errorf("%w: assignee id is required", shared.ErrValidation)
	}
	f.assignedTo = &userID
	f.updatedAt = time.Now().UTC()
	return nil
}

// Unassign clears the responsible user.
func (f *Finding) Unassign() {
	f.assignedTo = nil
	f.updatedAt = time.Now().UTC()
}
