package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"carinspect/internal/inspection"
	"carinspect/internal/reportstore"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect stored reports",
	}
	reportCmd.AddCommand(newReportListCommand(ctx))
	reportCmd.AddCommand(newReportShowCommand(ctx))
	reportCmd.AddCommand(newReportDeleteCommand(ctx))
	return reportCmd
}

func openStore(ctx *commandContext) (*reportstore.SQLite, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := reportstore.OpenSQLite(cfg.Paths.ReportDB)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	return store, nil
}

func newReportListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch reportstore.Status(status) {
			case "", reportstore.StatusCompleted, reportstore.StatusFailed:
			default:
				return fmt.Errorf("unsupported --status %q (want completed or failed)", status)
			}
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), reportstore.ListOptions{Status: reportstore.Status(status), Limit: limit})
			if err != nil {
				return err
			}
			if records == nil {
				records = []reportstore.Record{}
			}
			return emit(cmd, ctx, records, func(w io.Writer, _ bool) error {
				if len(records) == 0 {
					return writeLines(w, "No reports stored")
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					outcome := orDash(rec.Severity)
					if rec.Status == reportstore.StatusFailed {
						outcome = rec.ErrorCategory + ": " + rec.ErrorMessage
					}
					rows = append(rows, []string{
						rec.Token,
						rec.CreatedAt.Local().Format("2006-01-02 15:04"),
						string(rec.Status),
						rec.VehicleType,
						outcome,
						strconv.FormatFloat(rec.Confidence, 'f', 1, 64),
					})
				}
				return writeLines(w, renderTable(
					[]string{"Token", "Created", "Status", "Vehicle", "Severity", "Confidence"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show completed or failed runs")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of reports (0 for all)")
	return cmd
}

func newReportShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <token>",
		Short: "Print a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Get(cmd.Context(), args[0])
			if errors.Is(err, reportstore.ErrNotFound) {
				return fmt.Errorf("no report stored for token %s", args[0])
			}
			if err != nil {
				return err
			}
			var report inspection.Report
			if len(rec.Report) > 0 {
				if err := json.Unmarshal(rec.Report, &report); err != nil {
					return fmt.Errorf("decode stored report: %w", err)
				}
			}
			return emit(cmd, ctx, rec, func(w io.Writer, colorize bool) error {
				if rec.Status == reportstore.StatusFailed {
					if err := writeLines(w, renderStatusLine("Run", statusError, rec.ErrorCategory+": "+rec.ErrorMessage, colorize), ""); err != nil {
						return err
					}
				}
				if report.Token == "" {
					return nil
				}
				return renderReport(w, report, colorize)
			})
		},
	}
}

func newReportDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <token>",
		Short: "Remove a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no report stored for token %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted report %s\n", args[0])
			return nil
		},
	}
}
