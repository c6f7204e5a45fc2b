package ingest

import (
	"sort"

	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

// addRecordError appends a record error to the output, respecting the limit.
// RecordErrorCount always reflects the full number.
func addRecordError(output *Output, limit int, re RecordError) {
	output.RecordErrorCount++
	if len(output.LineErrors) < limit {
		output.LineErrors = append(output.LineErrors, re)
	}
}

// hostGroup is the slice of one batch's findings that share a host.
type hostGroup struct {
	host     string
	findings []*vulnerability.Finding
}

// groupByHost partitions findings by host, ordered by host.
func groupByHost(findings []*vulnerability.Finding) []hostGroup {
	byHost := make(map[string][]*vulnerability.Finding)
	for _, f := range findings {
		byHost[f.Host()] = append(byHost[f.Host()], f)
	}

	groups := make([]hostGroup, 0, len(byHost))
	for host, fs := range byHost {
		groups = append(groups, hostGroup{host: host, findings: fs})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].host < groups[j].host
	})
	return groups
}

// severityCounts counts findings per severity.
func severityCounts(findings []*vulnerability.Finding) map[vulnerability.Severity]int {
	counts := make(map[vulnerability.Severity]int)
	for _, f := range findings {
		counts[f.Severity()]++
	}
	return counts
}
