package frames

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"carinspect/internal/config"
	"carinspect/internal/logging"
	"carinspect/internal/media/video"
)

// Result lists the stills written for downstream stages.
type Result struct {
	OK        bool     `json:"ok"`
	Message   string   `json:"message"`
	FramesDir string   `json:"frames_dir"`
	Frames    []string `json:"frames"`
	Count     int      `json:"count"`
	Stride    int      `json:"stride"`
}

// Extract samples evenly spaced frames from src, downsizes them to
// opts.LongSide, and writes them as JPEG stills under outDir. The error
// return is reserved for invalid arguments and an unusable outDir; decode
// problems are reported through Result.
func Extract(ctx context.Context, src video.Source, outDir string, opts config.Frames, logger *slog.Logger) (Result, error) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "frames"))
	if src == nil {
		return Result{}, errors.New("extract frames: nil source")
	}
	if strings.TrimSpace(outDir) == "" {
		return Result{}, errors.New("extract frames: output directory required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("extract frames: create output directory: %w", err)
	}

	result := Result{FramesDir: outDir, Frames: []string{}}
	info, err := src.Info(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "capture unreadable", "frames_open", logging.Error(err))
		result.Message = "The video could not be opened."
		return result, nil
	}

	result.Stride = SamplingStride(info, opts)
	readErr := src.Frames(ctx, video.ReadOptions{Stride: result.Stride, Limit: opts.MaxFrames}, func(frame video.Frame) error {
		path := filepath.Join(outDir, frameName(len(result.Frames)))
		img := Downsize(frame.Image, opts.LongSide)
		if err := imaging.Save(img, path, imaging.JPEGQuality(opts.JPEGQuality)); err != nil {
			logging.WarnWithContext(logger, "frame write failed", "frames_write",
				logging.Error(err),
				logging.Int("index", frame.Index),
				logging.String(logging.FieldImpact, "frame skipped"),
			)
			return nil
		}
		result.Frames = append(result.Frames, path)
		return nil
	})
	if readErr != nil {
		logging.WarnWithContext(logger, "frame decode stopped early", "frames_decode",
			logging.Error(readErr),
			logging.Int("saved", len(result.Frames)),
		)
	}

	result.Count = len(result.Frames)
	result.OK = result.Count >= opts.MinFrames
	if result.OK {
		result.Message = "Frame extraction complete."
	} else {
		result.Message = "Not enough frames could be extracted; the video may be too short or corrupt."
	}
	logger.Info("frames extracted",
		logging.Bool("ok", result.OK),
		logging.Int("count", result.Count),
		logging.Int("stride", result.Stride),
	)
	return result, nil
}

// SamplingStride picks a stride that keeps samples at least MinGapSeconds
// apart while spreading MaxFrames across the whole clip. Photo sets use
// every still; clips with unknown length fall back to every 10th frame.
func SamplingStride(info video.Info, opts config.Frames) int {
	if info.Kind == video.KindImages {
		return 1
	}
	fps := info.FPS
	if fps <= 0 || info.FrameCount <= 0 {
		fps = opts.FallbackFPS
	}
	if fps <= 0 || float64(info.FrameCount)/fps <= 0.1 {
		return 10
	}
	gap := max(1, int(opts.MinGapSeconds*fps))
	spread := 1
	if opts.MaxFrames > 0 {
		spread = max(1, info.FrameCount/opts.MaxFrames)
	}
	return max(gap, spread)
}

// Downsize shrinks img so its longer side is at most longSide, preserving
// aspect ratio. Smaller images are returned unchanged.
func Downsize(img image.Image, longSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := max(w, h)
	if longSide <= 0 || long <= longSide {
		return img
	}
	scale := float64(longSide) / float64(long)
	return imaging.Resize(img, max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale)), imaging.Box)
}

func frameName(seq int) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("frame_%03d_%s.jpg", seq, token[:8])
}
