package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"carinspect/internal/inspection"
	"carinspect/internal/reportstore"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var req inspection.Request
	var noStore bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full inspection over a video or photo set",
		Example: `  carinspect analyze --video walkaround.mp4 --audio idle.m4a
  carinspect analyze --image front.jpg --image side.jpg --bolt-photo hood.jpg -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.loggerValue()

			opts := []inspection.Option{inspection.WithLogger(logger)}
			if !noStore {
				store, err := reportstore.OpenSQLite(cfg.Paths.ReportDB)
				if err != nil {
					return fmt.Errorf("open report store: %w", err)
				}
				defer store.Close()
				opts = append(opts, inspection.WithStore(store))
			}
			runner, err := inspection.NewRunner(cfg, opts...)
			if err != nil {
				return err
			}
			report, err := runner.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return emit(cmd, ctx, report, func(w io.Writer, colorize bool) error {
				return renderReport(w, report, colorize)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.VideoPath, "video", "", "Walk-around video")
	flags.StringArrayVar(&req.ImagePaths, "image", nil, "Photo of the vehicle (repeatable, in walk-around order)")
	flags.StringVar(&req.AudioPath, "audio", "", "Engine idle clip")
	flags.StringVar(&req.BoltPhoto, "bolt-photo", "", "Close-up of fender or hood bolts")
	flags.StringVar(&req.PanelPhoto, "panel-photo", "", "Close-up of a panel for the repaint check")
	flags.StringVar(&req.VehicleType, "vehicle-type", "", "Vehicle type shown in the commentary")
	flags.StringVar(&req.Scenario, "scenario", "", "Inspection scenario shown in the commentary")
	flags.BoolVar(&req.Electric, "electric", false, "Vehicle is electric (skips the engine-sound check)")
	flags.StringVar(&req.Token, "token", "", "Run token (default: random)")
	flags.BoolVar(&noStore, "no-store", false, "Do not persist the report")
	cmd.MarkFlagsMutuallyExclusive("video", "image")
	cmd.MarkFlagsOneRequired("video", "image")
	return cmd
}

func renderReport(w io.Writer, report inspection.Report, colorize bool) error {
	lines := renderSectionHeader("Inspection "+report.Token, colorize)
	lines = append(lines,
		renderStatusLine("Capture quality", okKind(report.Quality.OK), report.Quality.Message, colorize),
		renderStatusLine("Coverage", okKind(report.Coverage.OK), fmt.Sprintf("%.0f%% (%d frames)", report.Coverage.CoverageRatio*100, report.Coverage.FramesUsed), colorize),
		renderStatusLine("Damage", riskKind(report.Damage.Summary.Severity), damageSummary(report), colorize),
	)
	if bolt := report.Tamper.Bolt; bolt != nil {
		lines = append(lines, renderStatusLine("Bolt tamper", riskKind(string(bolt.Label)), fmt.Sprintf("%s (%.2f)", bolt.Label, bolt.Score), colorize))
	}
	if paint := report.Tamper.Paint; paint != nil {
		lines = append(lines, renderStatusLine("Repaint", riskKind(string(paint.Label)), fmt.Sprintf("%s (%.2f)", paint.Label, paint.Score), colorize))
	}
	if audio := report.Audio; audio != nil {
		lines = append(lines, renderStatusLine("Engine sound", riskKind(audio.RiskLevel), audio.RiskLevel, colorize))
	}
	lines = append(lines,
		renderStatusLine("Confidence", confidenceKind(report.Confidence.Level), fmt.Sprintf("%.1f (%s)", report.Confidence.Score, report.Confidence.Level), colorize),
		"",
	)
	if err := writeLines(w, lines...); err != nil {
		return err
	}

	if len(report.Evidence) > 0 {
		rows := make([][]string, 0, len(report.Evidence))
		for _, item := range report.Evidence {
			rows = append(rows, []string{item.PublicPath, item.Severity, item.Caption})
		}
		if err := writeLines(w, renderTable([]string{"Evidence", "Severity", "Caption"}, rows, nil), ""); err != nil {
			return err
		}
	}

	hints := append(append([]string{}, report.Quality.Hints...), report.Coverage.Hints...)
	hints = append(hints, report.Confidence.Reasons...)
	if len(hints) > 0 {
		if err := writeLines(w, renderSectionHeader("Notes", colorize)...); err != nil {
			return err
		}
		for _, hint := range hints {
			if err := writeLines(w, "  - "+hint); err != nil {
				return err
			}
		}
		if err := writeLines(w, ""); err != nil {
			return err
		}
	}

	header := "Commentary (" + report.Commentary.Method + ")"
	if err := writeLines(w, renderSectionHeader(header, colorize)...); err != nil {
		return err
	}
	return writeLines(w, strings.TrimSpace(report.Commentary.Text))
}

func damageSummary(report inspection.Report) string {
	summary := report.Damage.Summary
	if report.Damage.Method == "" || report.Damage.Method == "none" {
		return report.Damage.Message
	}
	parts := []string{summary.Severity, "via " + report.Damage.Method}
	for _, lc := range summary.SuspectedLabels {
		parts = append(parts, lc.Label+" x"+strconv.Itoa(lc.Count))
	}
	return strings.Join(parts, ", ")
}

func okKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusWarn
}
