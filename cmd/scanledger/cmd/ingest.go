package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/openctemio/scanledger/pkg/parsers/scanresult"
)

// batchResult mirrors the pipeline output returned by POST /api/v1/batches.
type batchResult struct {
	BatchID            string        `json:"batch_id" yaml:"batch_id"`
	BatchName          string        `json:"batch_name" yaml:"batch_name"`
	Format             string        `json:"format" yaml:"format"`
	Stage              string        `json:"stage" yaml:"stage"`
	FailedAt           string        `json:"failed_at,omitempty" yaml:"failed_at,omitempty"`
	RecordsTotal       int           `json:"records_total" yaml:"records_total"`
	FindingsProcessed  int           `json:"findings_processed" yaml:"findings_processed"`
	AssetsCreated      int           `json:"assets_created" yaml:"assets_created"`
	AssetsUpdated      int           `json:"assets_updated" yaml:"assets_updated"`
	NotificationsSent  int           `json:"notifications_sent" yaml:"notifications_sent"`
	NotificationErrors int           `json:"notification_errors" yaml:"notification_errors"`
	RecordErrorCount   int           `json:"record_error_count" yaml:"record_error_count"`
	LineErrors         []lineError   `json:"line_errors,omitempty" yaml:"line_errors,omitempty"`
	HostErrors         []hostFailure `json:"host_errors,omitempty" yaml:"host_errors,omitempty"`
	Error              string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type lineError struct {
	Line  int    `json:"line" yaml:"line"`
	Error string `json:"error" yaml:"error"`
}

type hostFailure struct {
	Host  string `json:"host" yaml:"host"`
	Error string `json:"error" yaml:"error"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE",
	Short: "Upload a JSON or JSONL scan batch",
	Example: `  scanledger ingest nuclei-2024-05-01.jsonl
  scanledger ingest results.json --name "weekly external"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		if _, err := scanresult.DetectFormat(args[0]); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read batch: %w", err)
		}

		body, err := newClient().Upload(cmd.Context(), args[0], name, data)
		if err != nil {
			// A batch that failed to parse still reports its line errors.
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
				var failed struct {
					Details *batchResult `json:"details"`
				}
				if unmarshal(body, &failed) == nil && failed.Details != nil {
					_ = printBatchResult(cmd.OutOrStdout(), failed.Details)
				}
			}
			return err
		}

		var result batchResult
		if err := unmarshal(body, &result); err != nil {
			return err
		}
		return printBatchResult(cmd.OutOrStdout(), &result)
	},
}

func init() {
	ingestCmd.Flags().String("name", "", "Batch name (defaults to the file name)")
}

func printBatchResult(w io.Writer, r *batchResult) error {
	if ok, err := printStructured(w, flagOutput, r); ok {
		return err
	}

	fmt.Fprintf(w, "Batch:      %s (%s)\n", orDash(r.BatchName), orDash(r.BatchID))
	fmt.Fprintf(w, "Format:     %s\n", orDash(r.Format))
	fmt.Fprintf(w, "Stage:      %s\n", r.Stage)
	if r.FailedAt != "" {
		fmt.Fprintf(w, "Failed at:  %s: %s\n", r.FailedAt, r.Error)
	}
	fmt.Fprintf(w, "Records:    %d total, %d processed, %d rejected\n", r.RecordsTotal, r.FindingsProcessed, r.RecordErrorCount)
	fmt.Fprintf(w, "Assets:     %d created, %d updated\n", r.AssetsCreated, r.AssetsUpdated)
	fmt.Fprintf(w, "Notified:   %d sent, %d failed\n", r.NotificationsSent, r.NotificationErrors)

	if len(r.LineErrors) > 0 {
		fmt.Fprintln(w)
		t := newTable(w, "LINE", "ERROR")
		for _, e := range r.LineErrors {
			t.AddRow(itoa(e.Line), e.Error)
		}
		if err := t.Flush(); err != nil {
			return err
		}
	}
	if len(r.HostErrors) > 0 {
		fmt.Fprintln(w)
		t := newTable(w, "HOST", "ERROR")
		for _, e := range r.HostErrors {
			t.AddRow(e.Host, e.Error)
		}
		return t.Flush()
	}
	return nil
}
