package scanresult

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/asset"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

// UnknownValue is the placeholder for identifiers a record does not carry.
const UnknownValue = "unknown"

// Normalize maps one raw record onto a canonical Finding owned by scanID.
// It is safe for concurrent use.
func (p *Parser) Normalize(scanID shared.ID, fields map[string]any, ingestedAt time.Time) (*vulnerability.Finding, error) {
	v := newFieldView(fields)
	ingestedAt = ingestedAt.UTC()

	host := asset.NormalizeHost(firstNonEmpty(v, "", hostRules...))
	if host == "" {
		host = vulnerability.UnknownHost
	}

	templateID := firstNonEmpty(v, UnknownValue, templateIDRules...)

	matchedAt, ok := firstTime(v, matchedAtRules...)
	if !ok {
		matchedAt = ingestedAt
	}

	contentHash := firstNonEmpty(v, "", contentHashRules...)
	if contentHash == "" {
		contentHash = fallbackContentHash(host, templateID, ingestedAt)
	}

	return vulnerability.NewFinding(vulnerability.FindingParams{
		ScanID:         scanID,
		ExternalVulnID: firstNonEmpty(v, "", externalVulnIDRules...),
		TemplateID:     templateID,
		TemplateName:   firstNonEmpty(v, templateID, templateNameRules...),
		Severity:       vulnerability.ParseSeverity(firstNonEmpty(v, string(vulnerability.SeverityInfo), severityRules...)),
		Host:           host,
		MatchedAt:      matchedAt,
		MatcherName:    firstNonEmpty(v, "", matcherNameRules...),
		MatcherStatus:  matcherStatus(v),
		ContentHash:    contentHash,
		Description:    firstNonEmpty(v, "", descriptionRules...),
		CreatedAt:      ingestedAt,
	})
}

// matcherStatus is true unless the source explicitly says false.
func matcherStatus(v *fieldView) bool {
	s := firstNonEmpty(v, "", matcherStatusRules...)
	return !strings.EqualFold(s, "false")
}

// fallbackContentHash derives a dedup key from host, template and ingest time.
func fallbackContentHash(host, templateID string, ingestedAt time.Time) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		host,
		templateID,
		ingestedAt.Format(time.RFC3339Nano),
	}, "|")))
	return hex.EncodeToString(sum[:])
}
