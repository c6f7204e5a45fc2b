package asset

import "github.com/openctemio/scanledger/pkg/domain/vulnerability"

// Severity weights used by CalculateRiskScore.
var severityWeights = map[vulnerability.Severity]int{
	vulnerability.SeverityCritical: 10,
	vulnerability.SeverityHigh:     7,
	vulnerability.SeverityMedium:   4,
	vulnerability.SeverityLow:      1,
	vulnerability.SeverityInfo:     0,
	vulnerability.SeverityUnknown:  0,
}

// SeverityWeight returns the risk contribution of one finding of the given severity.
func SeverityWeight(s vulnerability.Severity) int {
	return severityWeights[s]
}

// CalculateRiskScore sums severity weights over the findings of one host.
// The result does not depend on input order.
func CalculateRiskScore(findings []*vulnerability.Finding) int {
	score := 0
	for _, f := range findings {
		score += SeverityWeight(f.Severity())
	}
	return score
}
