package cmd

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
)

var (
	version string

	// Global flags
	flagConfig  string
	flagAPIURL  string
	flagOutput  string
	flagVerbose bool

	settings = defaultSettings()
)

var rootCmd = &cobra.Command{
	Use:   "scanledger",
	Short: "Vulnerability scan ingestion CLI",
	Long: `scanledger uploads scanner output to a scanledger server and reads back
the asset inventory and the SLA dashboard.

Connection settings come from --api-url, SCANLEDGER_API_URL, or the YAML
file named by --config.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return initSettings() },
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file (env: SCANLEDGER_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Override API URL (env: SCANLEDGER_API_URL)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(migrateCmd)
}

// initSettings layers the config file, then the environment, then flags.
func initSettings() error {
	path := flagConfig
	if path == "" {
		path = os.Getenv("SCANLEDGER_CONFIG")
	}
	if path != "" {
		s, err := loadSettings(path)
		if err != nil {
			return err
		}
		settings = s
	}

	if v := os.Getenv("SCANLEDGER_API_URL"); v != "" {
		settings.APIURL = v
	}
	if flagAPIURL != "" {
		settings.APIURL = flagAPIURL
	}

	switch flagOutput {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unsupported output format %q", flagOutput)
	}
	return nil
}

func newClient() *Client {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewClient(settings.APIURL, timeout, flagVerbose)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scanledger version %s\n", version)
		fmt.Printf("  Go:       %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
