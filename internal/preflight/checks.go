package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"carinspect/internal/config"
	"carinspect/internal/damage"
	"carinspect/internal/deps"
	"carinspect/internal/logging"
	"carinspect/internal/narrative"
	"carinspect/internal/notifications"
)

const llmCheckTimeout = 30 * time.Second

// CheckLLM sends a one-line prompt through the configured narrative provider.
func CheckLLM(ctx context.Context, cfg config.LLMConfig, opts ...narrative.ProviderOption) Result {
	const name = "Narrative LLM"
	switch cfg.Provider {
	case "", config.ProviderNone, config.ProviderAuto:
		return Result{Name: name, Passed: true, Detail: "Disabled (template commentary)"}
	}
	provider, err := narrative.NewProvider(cfg, opts...)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()
	if _, err := provider.Generate(checkCtx, "Reply with the single word OK."); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (%s)", provider.Name(), cfg.Model)}
}

// CheckNotifications reports whether ntfy notifications are configured and,
// when send is set, publishes a test message.
func CheckNotifications(ctx context.Context, cfg *config.Config, send bool) Result {
	const name = "Notifications"
	topic := cfg.Notifications.NtfyTopic
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled (no ntfy topic)"}
	}
	if !send {
		return Result{Name: name, Passed: true, Detail: topic}
	}
	if err := notifications.NewService(cfg).Publish(ctx, notifications.EventTest, nil); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: topic + " (test sent)"}
}

// CheckDetector reports whether damage analysis will run in detector mode.
func CheckDetector(ctx context.Context, cfg config.Detector) Result {
	const name = "Damage detector"
	switch c := damage.Probe(ctx, cfg, logging.NewNop()).(type) {
	case damage.Available:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (detector mode)", cfg.Command)}
	case damage.Unavailable:
		if !cfg.Enabled {
			return Result{Name: name, Passed: true, Detail: "Disabled (heuristic mode)"}
		}
		return Result{Name: name, Detail: c.Reason + " (heuristic mode)"}
	default:
		return Result{Name: name, Detail: "unknown capability"}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps reports the media tools. ffmpeg and ffprobe are needed for
// video input and engine audio; photo-only runs work without them.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for video decoding and engine audio",
		},
	}
	requirements = append(requirements, deps.Requirement{
		Name:        "FFprobe",
		Command:     deps.FFprobeFor(cfg.FFmpegBinary(), cfg.FFprobeBinary()),
		Description: "Required for video metadata",
	})
	if cfg.Detector.Enabled {
		requirements = append(requirements, deps.Requirement{
			Name:        "Detector",
			Command:     cfg.Detector.Command,
			Description: "Object detector for damage analysis",
			Optional:    true,
		})
	}
	return deps.CheckBinaries(requirements)
}

func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
