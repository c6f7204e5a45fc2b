package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openctemio/scanledger/internal/infra/http/handler"
)

var assetsCmd = &cobra.Command{
	Use:   "assets [HOST]",
	Short: "List assets, or show one asset by host",
	Example: `  scanledger assets --limit 20
  scanledger assets api.example.com -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			body, err := client.Get(cmd.Context(), assetPath(args[0]))
			if err != nil {
				return err
			}
			var a handler.AssetResponse
			if err := unmarshal(body, &a); err != nil {
				return err
			}
			return printAssets(out, []handler.AssetResponse{a}, &a)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		path := "/api/v1/assets"
		if limit > 0 {
			path = fmt.Sprintf("%s?limit=%d", path, limit)
		}

		body, err := client.Get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var list handler.ListResponse[handler.AssetResponse]
		if err := unmarshal(body, &list); err != nil {
			return err
		}
		return printAssets(out, list.Data, list)
	},
}

func init() {
	assetsCmd.Flags().Int("limit", 0, "Maximum number of assets (server default when 0)")
}

// printAssets renders rows as a table, or raw as JSON/YAML.
func printAssets(w io.Writer, rows []handler.AssetResponse, raw any) error {
	if ok, err := printStructured(w, flagOutput, raw); ok {
		return err
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No assets found.")
		return err
	}

	t := newTable(w, "HOST", "IP", "ROOT DOMAIN", "VULNS", "RISK", "UPDATED")
	for _, a := range rows {
		t.AddRow(
			a.FQDNOrIP,
			orDash(a.IPAddress),
			orDash(a.RootDomain),
			itoa(a.VulnerabilityCount),
			itoa(a.RiskScore),
			a.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return t.Flush()
}
