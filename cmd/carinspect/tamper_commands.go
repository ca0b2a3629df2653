package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"carinspect/internal/tamper"
)

func newTamperCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tamper",
		Short: "Check close-up photos for signs of repair",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "bolt <photo>",
		Short: "Look for tool marks and cracked paint on fender or hood bolts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report, err := tamper.CheckBoltFile(args[0], cfg.Tamper.Bolt)
			if err != nil {
				return err
			}
			return emit(cmd, ctx, report, func(w io.Writer, colorize bool) error {
				rows := make([][]string, 0, len(report.Bolts))
				for _, b := range report.Bolts {
					rows = append(rows, []string{
						fmt.Sprintf("(%d,%d)-(%d,%d)", b.Box[0], b.Box[1], b.Box[2], b.Box[3]),
						fmt.Sprintf("%.2f", b.ToolMark),
						fmt.Sprintf("%.2f", b.PaintCrack),
						fmt.Sprintf("%.2f", b.Score),
					})
				}
				lines := []string{renderStatusLine("Bolt tamper", riskKind(string(report.Label)), fmt.Sprintf("%s (%.2f) %s", report.Label, report.Score, report.Reason), colorize)}
				if len(rows) > 0 {
					lines = append(lines, renderTable([]string{"Region", "Tool mark", "Paint crack", "Score"}, rows,
						[]columnAlignment{alignLeft, alignRight, alignRight, alignRight}))
				}
				return writeLines(w, lines...)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "paint <photo>",
		Short: "Look for repaint texture and color mismatch on a panel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report, err := tamper.CheckPaintFile(args[0], cfg.Tamper.Paint)
			if err != nil {
				return err
			}
			return emit(cmd, ctx, report, func(w io.Writer, colorize bool) error {
				f := report.Features
				return writeLines(w,
					renderStatusLine("Repaint", riskKind(string(report.Label)), fmt.Sprintf("%s (%.2f) %s", report.Label, report.Score, report.Reason), colorize),
					renderFields([]kv{
						{"L std", fmt.Sprintf("%.2f", f.LStd)},
						{"a std", fmt.Sprintf("%.2f", f.AStd)},
						{"b std", fmt.Sprintf("%.2f", f.BStd)},
						{"HF energy", fmt.Sprintf("%.2f", f.HFEnergy)},
						{"Edge vs center", fmt.Sprintf("%.2f", f.EdgeVsCenter)},
					}),
				)
			})
		},
	})
	return cmd
}
