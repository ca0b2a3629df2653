package evidence

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"carinspect/internal/damage"
	"carinspect/internal/frames"
	"carinspect/internal/logging"
	"carinspect/internal/media/video"
)

var boxColor = color.NRGBA{R: 230, G: 40, B: 40, A: 255}

// Options controls where thumbnails go and how they look.
type Options struct {
	OutputDir    string
	PublicPrefix string
	Token        string
	MaxImages    int
	LongSide     int
	JPEGQuality  int
	Annotate     bool
}

// Item is one persisted thumbnail.
type Item struct {
	Path       string  `json:"path"`
	PublicPath string  `json:"image_path"`
	Caption    string  `json:"caption"`
	Severity   string  `json:"severity"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Select writes up to opts.MaxImages thumbnails for the strongest findings
// of result. Frames that cannot be read or written are skipped.
func Select(ctx context.Context, result damage.Result, opts Options, logger *slog.Logger) []Item {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "evidence"))
	items := []Item{}
	if opts.MaxImages <= 0 || len(result.Findings) == 0 {
		return items
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		logging.WarnWithContext(logger, "evidence output directory not set", "evidence_dir",
			logging.String(logging.FieldImpact, "no evidence thumbnails"),
		)
		return items
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		logging.WarnWithContext(logger, "evidence directory unavailable", "evidence_dir",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no evidence thumbnails"),
		)
		return items
	}

	severity := result.Summary.Severity
	if severity == "" {
		severity = damage.SeverityMedium
	}
	detector := result.Method == damage.MethodDetector
	picked := rank(result.Findings, detector, opts.MaxImages)

	for i, finding := range picked {
		if ctx.Err() != nil {
			break
		}
		img, err := video.OpenImage(finding.Frame)
		if err != nil {
			logger.Debug("evidence frame unreadable", logging.String("frame", finding.Frame), logging.Error(err))
			continue
		}
		if detector && opts.Annotate && len(finding.Box) == 4 {
			img = drawBox(img, finding.Box)
		}
		img = frames.Downsize(img, opts.LongSide)

		name := fmt.Sprintf("suspicious_%d.jpg", i+1)
		out := filepath.Join(opts.OutputDir, name)
		if err := imaging.Save(img, out, imaging.JPEGQuality(opts.JPEGQuality)); err != nil {
			logging.WarnWithContext(logger, "evidence write failed", "evidence_write",
				logging.Error(err),
				logging.String("path", out),
				logging.String(logging.FieldImpact, "thumbnail skipped"),
			)
			continue
		}

		item := Item{
			Path:       out,
			PublicPath: path.Join("/", opts.PublicPrefix, opts.Token, "suspicious", name),
			Severity:   severity,
			Source:     finding.Frame,
		}
		if detector {
			item.Caption = fmt.Sprintf("Possible %s signal", labelOr(finding.Label))
			item.Confidence = finding.Confidence
		} else {
			item.Caption = signalCaption(finding.Signals)
		}
		items = append(items, item)
	}

	logger.Info("evidence selected",
		logging.Int("candidates", len(picked)),
		logging.Int("written", len(items)),
		logging.String("method", result.Method),
	)
	return items
}

func rank(findings []damage.Finding, byConfidence bool, limit int) []damage.Finding {
	ordered := append([]damage.Finding(nil), findings...)
	if byConfidence {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Confidence > ordered[j].Confidence
		})
	}
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered
}

func signalCaption(sig *damage.Signals) string {
	var s damage.Signals
	if sig != nil {
		s = *sig
	}
	return fmt.Sprintf("Scratch: %.2f · Dent: %.2f · Paint: %.2f", s.Scratch, s.Dent, s.Repaint)
}

func labelOr(label string) string {
	label = strings.TrimSpace(strings.ReplaceAll(label, "_", " "))
	if label == "" {
		return "damage"
	}
	return label
}

// drawBox outlines box (x1, y1, x2, y2 in source pixels) with a stroke that
// scales with the image size.
func drawBox(img image.Image, box []float64) image.Image {
	bounds := img.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)

	rect := image.Rect(int(box[0]), int(box[1]), int(box[2]), int(box[3])).Intersect(canvas.Bounds())
	if rect.Empty() {
		return canvas
	}
	stroke := max(2, max(bounds.Dx(), bounds.Dy())/300)
	src := image.NewUniform(boxColor)
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+stroke),
		image.Rect(rect.Min.X, rect.Max.Y-stroke, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+stroke, rect.Max.Y),
		image.Rect(rect.Max.X-stroke, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, edge := range edges {
		draw.Draw(canvas, edge.Intersect(rect), src, image.Point{}, draw.Src)
	}
	return canvas
}
