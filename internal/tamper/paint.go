package tamper

import (
	"fmt"
	"image"
	"math"

	"carinspect/internal/config"
	"carinspect/internal/media/video"
	"carinspect/internal/vision"
)

// PaintFeatures are the panel consistency measurements. Channel values use
// the 8-bit Lab scale.
type PaintFeatures struct {
	LStd         float64 `json:"l_std"`
	AStd         float64 `json:"a_std"`
	BStd         float64 `json:"b_std"`
	HFEnergy     float64 `json:"hf_energy"`
	EdgeVsCenter float64 `json:"edge_vs_center"`
}

// PaintReport is the local repaint verdict for one panel photo.
type PaintReport struct {
	Label    Verdict       `json:"label"`
	Score    float64       `json:"score"`
	Reason   string        `json:"reason"`
	Features PaintFeatures `json:"features"`
	Image    string        `json:"image,omitempty"`
}

// CheckPaint scores colour dispersion, texture energy, and how much noisier
// the border band is than the panel centre.
func CheckPaint(img image.Image, cfg config.Paint) PaintReport {
	if img == nil || img.Bounds().Empty() {
		return PaintReport{Label: Insufficient, Reason: "No image was provided."}
	}
	feats := paintFeatures(img)

	score := math.Min(1, feats.AStd/12)*cfg.AWeight +
		math.Min(1, feats.BStd/12)*cfg.BWeight +
		math.Min(1, feats.HFEnergy/18)*cfg.TextureWeight +
		math.Min(1, math.Max(0, feats.EdgeVsCenter)/25)*cfg.EdgeWeight
	score = vision.Clip01(score)

	report := PaintReport{Label: classify(score, cfg.Detected, cfg.Suspected), Score: score, Features: feats}
	switch report.Label {
	case Detected:
		report.Reason = "Strong colour or texture inconsistency within the panel."
	case Suspected:
		report.Reason = "Possible local repaint or later refinishing; evidence is moderate."
	default:
		report.Reason = "Not enough evidence of repaint."
	}
	return report
}

// CheckPaintFile decodes path and runs CheckPaint.
func CheckPaintFile(path string, cfg config.Paint) (PaintReport, error) {
	img, err := video.OpenImage(path)
	if err != nil {
		return PaintReport{}, fmt.Errorf("paint check: %w", err)
	}
	report := CheckPaint(img, cfg)
	report.Image = path
	return report, nil
}

func paintFeatures(img image.Image) PaintFeatures {
	lab := vision.Lab(img)
	h, w := lab.L.H, lab.L.W
	feats := PaintFeatures{
		LStd:     lab.L.Std(),
		AStd:     lab.A.Std(),
		BStd:     lab.B.Std(),
		HFEnergy: vision.Laplacian(vision.Gray(img)).MeanAbs(),
	}

	band := int(math.Max(6, float64(min(h, w))*0.06))
	// Corners belong to two bands and are counted twice.
	strips := []image.Rectangle{
		image.Rect(0, 0, w, band),
		image.Rect(0, max(0, h-band), w, h),
		image.Rect(0, 0, band, h),
		image.Rect(max(0, w-band), 0, w, h),
	}
	center := image.Rect(0, 0, w, h)
	if h > 2*band && w > 2*band {
		center = image.Rect(band, band, w-band, h-band)
	}

	var edgeStd float64
	for _, channel := range []*vision.Plane{lab.L, lab.A, lab.B} {
		var edge []float64
		for _, strip := range strips {
			edge = append(edge, channel.Crop(strip).Pix...)
		}
		edgeStd += vision.PopStd(edge)
	}
	centerLab := lab.Crop(center)
	centerStd := centerLab.L.Std() + centerLab.A.Std() + centerLab.B.Std()
	feats.EdgeVsCenter = edgeStd - centerStd
	return feats
}
