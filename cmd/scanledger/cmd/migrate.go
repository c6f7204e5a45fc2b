package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/openctemio/scanledger/internal/config"
	"github.com/openctemio/scanledger/internal/infra/postgres"
	"github.com/openctemio/scanledger/pkg/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `migrate applies the embedded SQL migrations directly to the database.

The connection is read from the server's DB_* environment variables; any
field set under "database:" in the --config file takes precedence.`,
}

func init() {
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, closeDB, err := openRunner(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			applied, err := runner.Up(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", applied)
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, closeDB, err := openRunner(cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			return runner.Down(cmd.Context())
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, closeDB, err := openRunner(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			states, err := runner.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printMigrationStates(cmd.OutOrStdout(), states)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, statusCmd)
}

func openRunner(cmd *cobra.Command) (*migrations.Runner, func(), error) {
	dbCfg := databaseConfig(config.LoadDatabase(), settings.Database)

	db, err := postgres.New(&dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	runner := migrations.NewRunner(db.DB, migrations.Embedded(), cmd.OutOrStdout())
	return runner, func() { _ = db.Close() }, nil
}

// databaseConfig overlays the non-empty file settings on base.
func databaseConfig(base config.DatabaseConfig, s DatabaseSettings) config.DatabaseConfig {
	if s.Host != "" {
		base.Host = s.Host
	}
	if s.Port != 0 {
		base.Port = s.Port
	}
	if s.User != "" {
		base.User = s.User
	}
	if s.Password != "" {
		base.Password = s.Password
	}
	if s.Name != "" {
		base.Name = s.Name
	}
	if s.SSLMode != "" {
		base.SSLMode = s.SSLMode
	}
	return base
}

func printMigrationStates(w io.Writer, states []migrations.State) error {
	if ok, err := printStructured(w, flagOutput, states); ok {
		return err
	}

	table := newTable(w, "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, st := range states {
		status, appliedAt := "pending", "-"
		if st.Applied() {
			status = "applied"
			appliedAt = st.AppliedAt.Local().Format(time.DateTime)
		}
		table.AddRow(st.Version, st.Name, status, appliedAt)
	}
	return table.Flush()
}
