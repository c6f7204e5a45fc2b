package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/openctemio/scanledger/internal/app"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the SLA dashboard summary",
	Example: `  scanledger summary
  scanledger summary -o yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := newClient().Get(cmd.Context(), "/api/v1/dashboard/summary")
		if err != nil {
			return err
		}

		var s app.Summary
		if err := unmarshal(body, &s); err != nil {
			return err
		}
		return printSummary(cmd.OutOrStdout(), &s)
	},
}

func printSummary(w io.Writer, s *app.Summary) error {
	if ok, err := printStructured(w, flagOutput, s); ok {
		return err
	}

	fmt.Fprintf(w, "Open findings: %d (as of %s)\n\n", s.Total, s.GeneratedAt.Format("2006-01-02 15:04:05"))

	t := newTable(w, "SLA STATUS", "COUNT")
	t.AddRow("breached", itoa(s.Status.Breached))
	t.AddRow("due soon", itoa(s.Status.DueSoon))
	t.AddRow("within sla", itoa(s.Status.WithinSLA))
	if err := t.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	t = newTable(w, "SEVERITY", "COUNT")
	for _, sev := range append(vulnerability.AllSeverities(), vulnerability.SeverityUnknown) {
		if n, ok := s.BySeverity[sev.String()]; ok {
			t.AddRow(sev.String(), itoa(n))
		}
	}
	if err := t.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	t = newTable(w, "AGE", "COUNT")
	for _, b := range app.AgingBuckets {
		t.AddRow(b.Label, itoa(s.ByAge[b.Label]))
	}
	if err := t.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	t = newTable(w, "ASSIGNEE", "COUNT")
	for _, name := range slices.Sorted(maps.Keys(s.ByAssignee)) {
		t.AddRow(name, itoa(s.ByAssignee[name]))
	}
	return t.Flush()
}
