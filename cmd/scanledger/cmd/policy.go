package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/openctemio/scanledger/internal/app"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show the SLA remediation windows in effect",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := newClient().Get(cmd.Context(), "/api/v1/sla/policy")
		if err != nil {
			return err
		}

		var p app.SLAPolicyView
		if err := unmarshal(body, &p); err != nil {
			return err
		}
		return printPolicy(cmd.OutOrStdout(), &p)
	},
}

func printPolicy(w io.Writer, p *app.SLAPolicyView) error {
	if ok, err := printStructured(w, flagOutput, p); ok {
		return err
	}

	t := newTable(w, "SEVERITY", "DAYS")
	for _, sev := range vulnerability.AllSeverities() {
		if d, ok := p.Days[sev.String()]; ok {
			t.AddRow(sev.String(), itoa(d))
		}
	}
	t.AddRow("(due soon)", itoa(p.DueSoonDays))
	return t.Flush()
}
