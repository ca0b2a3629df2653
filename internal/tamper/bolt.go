package tamper

import (
	"fmt"
	"image"
	"math"
	"sort"

	"carinspect/internal/config"
	"carinspect/internal/media/video"
	"carinspect/internal/vision"
)

// BoltRegion is one scored fastener candidate. Box is [x1, y1, x2, y2]
// including padding.
type BoltRegion struct {
	Box        [4]int  `json:"box"`
	ToolMark   float64 `json:"tool_mark"`
	PaintCrack float64 `json:"paint_crack"`
	Score      float64 `json:"score"`
}

// BoltReport is the fastener tamper verdict for one close-up photo.
type BoltReport struct {
	Label  Verdict      `json:"label"`
	Score  float64      `json:"score"`
	Reason string       `json:"reason"`
	Bolts  []BoltRegion `json:"bolts"`
	Image  string       `json:"image,omitempty"`
}

// CheckBolt looks for fastener-like regions and scores wrench marks and
// cracked paint around the strongest ones. The verdict is taken from the
// mean of the two best regions.
func CheckBolt(img image.Image, cfg config.Bolt) BoltReport {
	if img == nil {
		return BoltReport{Label: Insufficient, Reason: "No image was provided.", Bolts: []BoltRegion{}}
	}
	gray := vision.Gray(img)
	boxes := boltCandidates(gray, cfg)
	if len(boxes) == 0 {
		return BoltReport{
			Label:  Insufficient,
			Reason: "No bolt-like regions found; a closer, sharper photo is needed.",
			Bolts:  []BoltRegion{},
		}
	}

	bounds := gray.Bounds()
	regions := make([]BoltRegion, 0, len(boxes))
	scores := make([]float64, 0, len(boxes))
	for _, box := range boxes {
		pad := int(float64(max(box.Dx(), box.Dy())) * cfg.PadRatio)
		roi := image.Rect(box.Min.X-pad, box.Min.Y-pad, box.Max.X+pad, box.Max.Y+pad).Intersect(bounds)
		roiGray := gray.Crop(roi)

		tool := math.Min(1, vision.Laplacian(roiGray).MeanAbs()/25)
		crack := math.Min(1, vision.Canny(roiGray, 50, 160).Fraction()/0.18)
		score := vision.Clip01(cfg.ToolMarkWeight*tool + cfg.PaintCrackWeight*crack)

		scores = append(scores, score)
		regions = append(regions, BoltRegion{
			Box:        [4]int{roi.Min.X, roi.Min.Y, roi.Max.X, roi.Max.Y},
			ToolMark:   tool,
			PaintCrack: crack,
			Score:      score,
		})
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	top := scores[:min(2, len(scores))]
	final := vision.Mean(top)

	report := BoltReport{Label: classify(final, cfg.Detected, cfg.Suspected), Score: final, Bolts: regions}
	switch report.Label {
	case Detected:
		report.Reason = "Strong wrench marks and paint cracking around the fastener."
	case Suspected:
		report.Reason = "Possible removal and refit; evidence is moderate, a sharper close-up is recommended."
	default:
		report.Reason = "Not enough evidence of removal and refit."
	}
	return report
}

// CheckBoltFile decodes path and runs CheckBolt.
func CheckBoltFile(path string, cfg config.Bolt) (BoltReport, error) {
	img, err := video.OpenImage(path)
	if err != nil {
		return BoltReport{}, fmt.Errorf("bolt check: %w", err)
	}
	report := CheckBolt(img, cfg)
	report.Image = path
	return report, nil
}

// boltCandidates returns outer edge boxes whose area and aspect ratio fit a
// bolt head, largest first.
func boltCandidates(gray *vision.Plane, cfg config.Bolt) []image.Rectangle {
	edges := vision.Canny(vision.GaussianBlur(gray, 5, 0), 60, 160)
	maxArea := float64(gray.W*gray.H) * cfg.MaxAreaRatio
	var out []image.Rectangle
	for _, box := range vision.ExternalBoxes(edges) {
		area := float64(box.Dx() * box.Dy())
		if area < cfg.MinArea || area > maxArea {
			continue
		}
		aspect := float64(box.Dx()) / float64(max(1, box.Dy()))
		if aspect < cfg.MinAspect || aspect > cfg.MaxAspect {
			continue
		}
		out = append(out, box)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Dx()*out[i].Dy() > out[j].Dx()*out[j].Dy()
	})
	if len(out) > cfg.MaxCandidates {
		out = out[:cfg.MaxCandidates]
	}
	return out
}
