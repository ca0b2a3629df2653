package quality

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"carinspect/internal/config"
	"carinspect/internal/logging"
	"carinspect/internal/media/video"
	"carinspect/internal/vision"
)

// Flags are the six independent capture problems the gate can raise.
type Flags struct {
	TooShort  bool `json:"too_short"`
	TooLowRes bool `json:"too_low_res"`
	TooDark   bool `json:"too_dark"`
	TooBright bool `json:"too_bright"`
	TooBlurry bool `json:"too_blurry"`
	TooShaky  bool `json:"too_shaky"`
}

// Raised lists the names of the flags that are set, in declaration order.
func (f Flags) Raised() []string {
	var out []string
	for _, item := range []struct {
		name string
		set  bool
	}{
		{"too_short", f.TooShort},
		{"too_low_res", f.TooLowRes},
		{"too_dark", f.TooDark},
		{"too_bright", f.TooBright},
		{"too_blurry", f.TooBlurry},
		{"too_shaky", f.TooShaky},
	} {
		if item.set {
			out = append(out, item.name)
		}
	}
	return out
}

// Report describes the technical quality of a capture.
type Report struct {
	OK              bool    `json:"ok"`
	Message         string  `json:"message"`
	Source          string  `json:"source"`
	DurationSeconds float64 `json:"duration_sec"`
	FPS             float64 `json:"fps"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameCount      int     `json:"frame_count"`
	SampledFrames   int     `json:"sampled_frames"`

	BlurMean     float64 `json:"blur_score_mean"`
	BlurP10      float64 `json:"blur_score_p10"`
	ExposureMean float64 `json:"exposure_mean"`
	ExposureP10  float64 `json:"exposure_p10"`
	ExposureP90  float64 `json:"exposure_p90"`
	ShakeScore   float64 `json:"shake_score"`
	MotionScore  float64 `json:"motion_score"`

	Flags
	Hints []string `json:"hints"`
}

// Check samples frames from src at th.SampleStride (every still for photo
// sets) and scores sharpness, exposure, and camera shake. Unreadable sources
// and sources that yield no frames produce ok=false with every flag raised.
func Check(ctx context.Context, src video.Source, th config.Quality, logger *slog.Logger) Report {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "quality"))
	if src == nil {
		return failure("No capture was provided. Upload a walk-around video of the vehicle.", th)
	}

	info, err := src.Info(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "capture unreadable", "quality_open",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the file exists and ffprobe can read it"),
			logging.String(logging.FieldImpact, "quality gate reports failure"),
		)
		return failure("The video could not be opened (possible codec or format problem). Try recording again with a different device or browser.", th)
	}

	isVideo := info.Kind != video.KindImages
	stride := th.SampleStride
	if !isVideo {
		stride = 1
	}
	var (
		blurs     []float64
		exposures []float64
		shakes    []float64
		motions   []float64
		prev      *vision.Plane
	)
	corners := vision.CornerOptions{MaxCorners: th.MaxCorners, Quality: th.CornerQuality, MinDistance: float64(th.CornerMinDistance)}
	readErr := src.Frames(ctx, video.ReadOptions{Stride: stride, Limit: th.MaxSamples}, func(frame video.Frame) error {
		gray := vision.Gray(frame.Image)
		blurs = append(blurs, vision.Laplacian(gray).Variance())
		exposures = append(exposures, gray.Mean())
		if isVideo && prev != nil && prev.W == gray.W && prev.H == gray.H {
			if shake, motion, ok := dominantMotion(prev, gray, corners, th.MinTrackedPoints); ok {
				shakes = append(shakes, shake)
				motions = append(motions, motion)
			}
		}
		prev = gray
		return nil
	})
	if readErr != nil {
		logging.WarnWithContext(logger, "frame decode stopped early", "quality_decode",
			logging.Error(readErr),
			logging.Int("decoded", len(blurs)),
		)
	}
	if len(blurs) == 0 {
		return failure("No frames could be decoded from the capture. Try recording again with a different device or browser.", th)
	}

	report := Report{
		Source:        info.Kind,
		FPS:           info.FPS,
		Width:         info.Width,
		Height:        info.Height,
		FrameCount:    info.FrameCount,
		SampledFrames: len(blurs),
		BlurMean:      vision.Mean(blurs),
		BlurP10:       vision.Percentile(blurs, 10),
		ExposureMean:  vision.Mean(exposures),
		ExposureP10:   vision.Percentile(exposures, 10),
		ExposureP90:   vision.Percentile(exposures, 90),
		ShakeScore:    vision.Mean(shakes),
		MotionScore:   vision.Mean(motions),
	}
	if isVideo {
		report.DurationSeconds = info.DurationSeconds
		if report.DurationSeconds <= 0 && info.FPS > 0 && info.FrameCount > 0 {
			report.DurationSeconds = float64(info.FrameCount) / info.FPS
		}
		report.TooShort = report.DurationSeconds < th.MinDurationSeconds
	}
	report.TooLowRes = report.Width < th.MinWidth || report.Height < th.MinHeight
	report.TooDark = report.ExposureMean < th.DarkMean || report.ExposureP90 < th.DarkP90
	report.TooBright = report.ExposureMean > th.BrightMean || report.ExposureP10 > th.BrightP10
	report.TooBlurry = report.BlurMean < th.BlurMean || report.BlurP10 < th.BlurP10
	report.TooShaky = report.ShakeScore > th.ShakeMax
	report.Hints = hintsFor(report.Flags, th)

	report.OK = !(report.TooShort || report.TooLowRes || (report.TooDark && report.TooBright) || report.TooBlurry)
	if report.OK {
		report.Message = "Video quality is sufficient."
	} else {
		report.Message = "Video quality may reduce analysis accuracy."
	}

	logger.Info("quality gate complete",
		logging.Bool("ok", report.OK),
		logging.Int("sampled", report.SampledFrames),
		logging.Float64("blur_mean", report.BlurMean),
		logging.Float64("exposure_mean", report.ExposureMean),
		logging.Float64("shake", report.ShakeScore),
		logging.Strings("flags", report.Raised()),
	)
	return report
}

// dominantMotion tracks corners from prev to next. Shake is the magnitude of
// the median displacement vector; motion is the median displacement magnitude.
func dominantMotion(prev, next *vision.Plane, opts vision.CornerOptions, minTracked int) (float64, float64, bool) {
	pts := vision.GoodFeatures(prev, opts)
	if len(pts) == 0 {
		return 0, 0, false
	}
	moved, status := vision.TrackFlow(prev, next, pts, vision.DefaultFlowOptions())
	dxs := make([]float64, 0, len(pts))
	dys := make([]float64, 0, len(pts))
	mags := make([]float64, 0, len(pts))
	for i, ok := range status {
		if !ok {
			continue
		}
		dx := moved[i].X - pts[i].X
		dy := moved[i].Y - pts[i].Y
		dxs = append(dxs, dx)
		dys = append(dys, dy)
		mags = append(mags, math.Hypot(dx, dy))
	}
	if len(dxs) < minTracked {
		return 0, 0, false
	}
	return math.Hypot(vision.Median(dxs), vision.Median(dys)), vision.Median(mags), true
}

func hintsFor(f Flags, th config.Quality) []string {
	hints := make([]string, 0, 6)
	if f.TooShort {
		hints = append(hints, fmt.Sprintf("Video is too short. At least %d seconds is recommended.", int(th.MinDurationSeconds)))
	}
	if f.TooLowRes {
		hints = append(hints, "Resolution is low. Film closer and sharper (1080p if possible).")
	}
	if f.TooDark {
		hints = append(hints, "Footage is dark. Film somewhere brighter or add a light.")
	}
	if f.TooBright {
		hints = append(hints, "Footage is overexposed. Avoid backlight and lower the exposure.")
	}
	if f.TooBlurry {
		hints = append(hints, "Footage is blurry. Clean the lens, hold still for 1-2 seconds, then move slowly.")
	}
	if f.TooShaky {
		hints = append(hints, "The camera is shaking a lot. Hold it with both hands and move slowly and steadily.")
	}
	return hints
}

func failure(message string, th config.Quality) Report {
	flags := Flags{
		TooShort:  true,
		TooLowRes: true,
		TooDark:   true,
		TooBright: true,
		TooBlurry: true,
		TooShaky:  true,
	}
	return Report{
		OK:      false,
		Message: message,
		Flags:   flags,
		Hints:   hintsFor(flags, th),
	}
}
