package engineaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"carinspect/internal/config"
	"carinspect/internal/logging"
	"carinspect/internal/services"
)

var commandContext = exec.CommandContext

// Risk levels.
const (
	RiskNone    = "none"
	RiskUnknown = "unknown"
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
)

const minTranscodedBytes = 1000

// Request names the clip to analyze.
type Request struct {
	Path     string
	Electric bool
	FFmpeg   string
}

// Signals are the acoustic measurements behind the risk score.
type Signals struct {
	DurationSeconds float64 `json:"duration_sec"`
	RMS             float64 `json:"rms"`
	Peak            float64 `json:"peak"`
	ClippingRatio   float64 `json:"clipping_ratio"`
	Roughness       float64 `json:"roughness"`
	BandLow         float64 `json:"band_low"`
	BandMid         float64 `json:"band_mid"`
	BandHigh        float64 `json:"band_high"`
	RiskScore       float64 `json:"risk_score"`
}

// Report is the engine audio stage output. Skipped reports carry no signals.
type Report struct {
	OK        bool     `json:"ok"`
	Skipped   bool     `json:"skipped"`
	Message   string   `json:"message"`
	RiskLevel string   `json:"risk_level"`
	Signals   Signals  `json:"signals"`
	Hints     []string `json:"hints"`
}

// Analyze transcodes the clip to mono PCM with ffmpeg and scores it. Electric
// vehicles, missing clips, and transcode failures are skipped rather than
// failed.
func Analyze(ctx context.Context, req Request, cfg config.Audio, logger *slog.Logger) Report {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "engineaudio"))
	if req.Electric {
		return Report{OK: true, Skipped: true, Message: "Electric vehicle selected; engine sound analysis skipped.", RiskLevel: RiskNone, Hints: []string{}}
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return skipped("No engine sound clip was provided.", "Record the engine at idle with the hood open to enable this check.")
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return skipped("Engine sound clip not found.", "Record the engine at idle with the hood open to enable this check.")
	}

	samples, err := transcode(ctx, req, cfg)
	if err != nil {
		logging.WarnWithContext(logger, "engine audio transcode failed", "audio_transcode",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "check that ffmpeg is installed and the clip has an audio track"),
			logging.String(logging.FieldImpact, "engine sound analysis skipped"),
		)
		return skipped("Audio could not be extracted (ffmpeg missing or no audio track).",
			"Engine sound analysis needs a clear engine sound track and a working ffmpeg.")
	}

	report := AnalyzeSamples(samples, cfg.SampleRate, cfg)
	logger.Info("engine audio analyzed",
		logging.String("risk_level", report.RiskLevel),
		logging.Float64("risk_score", report.Signals.RiskScore),
		logging.Float64("duration_sec", report.Signals.DurationSeconds),
	)
	return report
}

func skipped(message, hint string) Report {
	return Report{OK: true, Skipped: true, Message: message, RiskLevel: RiskUnknown, Hints: []string{hint}}
}

// transcode runs ffmpeg into a private temp directory that is removed on
// every exit path, under cfg.TimeoutSeconds.
func transcode(ctx context.Context, req Request, cfg config.Audio) ([]float64, error) {
	binary := strings.TrimSpace(req.FFmpeg)
	if binary == "" {
		binary = "ffmpeg"
	}
	dir, err := os.MkdirTemp("", "carinspect-audio-")
	if err != nil {
		return nil, fmt.Errorf("audio temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := filepath.Join(dir, "engine.pcm")
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", req.Path,
		"-t", strconv.FormatFloat(cfg.MaxSeconds, 'f', -1, 64),
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-c:a", "pcm_s16le",
		out,
	}
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	cmd.WaitDelay = time.Second
	if output, err := cmd.CombinedOutput(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "engineaudio", "transcode", fmt.Sprintf("ffmpeg exceeded %s", timeout), err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "engineaudio", "transcode", strings.TrimSpace(string(output)), err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "engineaudio", "read pcm", "ffmpeg produced no output", err)
	}
	if len(data) <= minTranscodedBytes {
		return nil, services.Wrap(services.ErrExternalTool, "engineaudio", "read pcm", fmt.Sprintf("only %d bytes of audio", len(data)), nil)
	}
	return decodePCM16(data), nil
}

// decodePCM16 converts little-endian signed 16-bit samples to [-1, 1).
func decodePCM16(data []byte) []float64 {
	samples := make([]float64, len(data)/2)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768
	}
	return samples
}
