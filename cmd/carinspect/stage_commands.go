package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"carinspect/internal/config"
	"carinspect/internal/coverage"
	"carinspect/internal/damage"
	"carinspect/internal/deps"
	"carinspect/internal/engineaudio"
	"carinspect/internal/frames"
	"carinspect/internal/media/video"
	"carinspect/internal/quality"
)

// captureFlags selects the capture for the quality and frames commands.
type captureFlags struct {
	video  string
	images []string
}

func (f *captureFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.video, "video", "", "Walk-around video")
	cmd.Flags().StringArrayVar(&f.images, "image", nil, "Photo of the vehicle (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("video", "image")
	cmd.MarkFlagsOneRequired("video", "image")
}

func (f *captureFlags) source(cfg *config.Config) video.Source {
	if f.video != "" {
		return video.NewFFmpegSource(f.video, cfg.FFmpegBinary(), deps.FFprobeFor(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
	}
	return video.NewImageSource(f.images)
}

func newStageCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newQualityCommand(ctx),
		newFramesCommand(ctx),
		newCoverageCommand(ctx),
		newDamageCommand(ctx),
		newTamperCommand(ctx),
		newAudioCommand(ctx),
	}
}

func newQualityCommand(ctx *commandContext) *cobra.Command {
	var capture captureFlags
	cmd := &cobra.Command{
		Use:   "quality",
		Short: "Check whether a capture is usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := quality.Check(cmd.Context(), capture.source(cfg), cfg.Quality, ctx.loggerValue())
			return emit(cmd, ctx, report, func(w io.Writer, colorize bool) error {
				lines := []string{renderStatusLine("Capture quality", okKind(report.OK), report.Message, colorize)}
				lines = append(lines, renderFields([]kv{
					{"Source", report.Source},
					{"Resolution", fmt.Sprintf("%dx%d", report.Width, report.Height)},
					{"Duration", fmt.Sprintf("%.1fs", report.DurationSeconds)},
					{"Sampled frames", strconv.Itoa(report.SampledFrames)},
					{"Blur (mean)", fmt.Sprintf("%.1f", report.BlurMean)},
					{"Exposure (mean)", fmt.Sprintf("%.1f", report.ExposureMean)},
					{"Shake", fmt.Sprintf("%.2f", report.ShakeScore)},
					{"Flags", strings.Join(report.Flags.Raised(), ", ")},
				}))
				for _, hint := range report.Hints {
					lines = append(lines, "  - "+hint)
				}
				return writeLines(w, lines...)
			})
		},
	}
	capture.register(cmd)
	return cmd
}

func newFramesCommand(ctx *commandContext) *cobra.Command {
	var capture captureFlags
	var outDir string
	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Sample representative stills from a capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(outDir)
			if dir == "" {
				dir = filepath.Join(cfg.Paths.WorkDir, "frames-"+uuid.NewString()[:8])
			}
			result, err := frames.Extract(cmd.Context(), capture.source(cfg), dir, cfg.Frames, ctx.loggerValue())
			if err != nil {
				return err
			}
			return emit(cmd, ctx, result, func(w io.Writer, colorize bool) error {
				rows := make([][]string, 0, len(result.Frames))
				for i, frame := range result.Frames {
					rows = append(rows, []string{strconv.Itoa(i + 1), frame})
				}
				return writeLines(w,
					renderStatusLine("Frames", okKind(result.OK), result.Message, colorize),
					renderTable([]string{"#", "Path"}, rows, []columnAlignment{alignRight, alignLeft}),
				)
			})
		},
	}
	capture.register(cmd)
	cmd.Flags().StringVar(&outDir, "out", "", "Directory for the stills (default: a new directory under paths.work_dir)")
	return cmd
}

func newCoverageCommand(ctx *commandContext) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "coverage [frame...]",
		Short: "Estimate how much of the vehicle the stills cover",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stills, err := framePaths(args, dir)
			if err != nil {
				return err
			}
			report := coverage.Estimate(stills, cfg.Coverage)
			return emit(cmd, ctx, report, func(w io.Writer, colorize bool) error {
				lines := []string{
					renderStatusLine("Coverage", okKind(report.OK), fmt.Sprintf("%.0f%% of %d cells", report.CoverageRatio*100, report.Cells), colorize),
				}
				for _, hint := range report.Hints {
					lines = append(lines, "  - "+hint)
				}
				return writeLines(w, lines...)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Read every .jpg/.png still in this directory, in name order")
	return cmd
}

func newDamageCommand(ctx *commandContext) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "damage [frame...]",
		Short: "Score stills for visible damage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stills, err := framePaths(args, dir)
			if err != nil {
				return err
			}
			logger := ctx.loggerValue()
			capability := damage.Probe(cmd.Context(), cfg.Detector, logger)
			result := damage.NewEngine(capability, cfg.Damage, logger).Infer(cmd.Context(), stills)
			return emit(cmd, ctx, result, func(w io.Writer, colorize bool) error {
				rows := make([][]string, 0, len(result.Findings))
				for _, f := range result.Findings {
					detail := f.Label
					score := f.Confidence
					if f.Signals != nil {
						detail = fmt.Sprintf("scratch %.2f dent %.2f paint %.2f", f.Signals.Scratch, f.Signals.Dent, f.Signals.Repaint)
						score = f.Score
					}
					rows = append(rows, []string{filepath.Base(f.Frame), f.Type, detail, fmt.Sprintf("%.2f", score)})
				}
				return writeLines(w,
					renderStatusLine("Damage", riskKind(result.Summary.Severity), fmt.Sprintf("%s (%s)", orDash(result.Summary.Severity), result.Method), colorize),
					renderTable([]string{"Frame", "Type", "Detail", "Score"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}),
				)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Read every .jpg/.png still in this directory, in name order")
	return cmd
}

func newAudioCommand(ctx *commandContext) *cobra.Command {
	var electric bool
	cmd := &cobra.Command{
		Use:   "audio <clip>",
		Short: "Score an engine idle recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := engineaudio.Analyze(cmd.Context(), engineaudio.Request{
				Path:     args[0],
				Electric: electric,
				FFmpeg:   cfg.FFmpegBinary(),
			}, cfg.Audio, ctx.loggerValue())
			return emit(cmd, ctx, report, func(w io.Writer, colorize bool) error {
				lines := []string{renderStatusLine("Engine sound", riskKind(report.RiskLevel), report.RiskLevel+": "+report.Message, colorize)}
				if !report.Skipped {
					s := report.Signals
					lines = append(lines, renderFields([]kv{
						{"Duration", fmt.Sprintf("%.1fs", s.DurationSeconds)},
						{"RMS", fmt.Sprintf("%.4f", s.RMS)},
						{"Peak", fmt.Sprintf("%.4f", s.Peak)},
						{"Clipping", fmt.Sprintf("%.4f", s.ClippingRatio)},
						{"Roughness", fmt.Sprintf("%.4f", s.Roughness)},
						{"Bands (low/mid/high)", fmt.Sprintf("%.2f / %.2f / %.2f", s.BandLow, s.BandMid, s.BandHigh)},
						{"Risk score", fmt.Sprintf("%.2f", s.RiskScore)},
					}))
				}
				for _, hint := range report.Hints {
					lines = append(lines, "  - "+hint)
				}
				return writeLines(w, lines...)
			})
		},
	}
	cmd.Flags().BoolVar(&electric, "electric", false, "Vehicle is electric")
	return cmd
}

// framePaths combines positional stills with the sorted stills of dir.
func framePaths(args []string, dir string) ([]string, error) {
	paths := append([]string{}, args...)
	if dir = strings.TrimSpace(dir); dir != "" {
		var found []string
		for _, pattern := range []string{"*.jpg", "*.jpeg", "*.png"} {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, err
			}
			found = append(found, matches...)
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, errors.New("no stills given (pass paths or --dir)")
	}
	return paths, nil
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
