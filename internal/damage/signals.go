package damage

import (
	"image"

	"carinspect/internal/config"
	"carinspect/internal/vision"
)

// Signals are the three heuristic damage proxies, each rescaled to [0,1].
type Signals struct {
	Scratch float64 `json:"scratch_like"`
	Dent    float64 `json:"dent_like"`
	Repaint float64 `json:"repaint_like"`
}

// Weighted combines the signals with the configured weights.
func (s Signals) Weighted(cfg config.Damage) float64 {
	return cfg.ScratchWeight*s.Scratch + cfg.DentWeight*s.Dent + cfg.RepaintWeight*s.Repaint
}

// HeuristicSignals scores one frame without a learned model:
//   - scratch: Canny edge density above a 3% floor
//   - dent: Laplacian variance above a flat-panel floor
//   - repaint: saturation and value dispersion
//
// Frames smaller than 10px on either side score zero.
func HeuristicSignals(img image.Image) Signals {
	if img == nil {
		return Signals{}
	}
	b := img.Bounds()
	if b.Dx() < 10 || b.Dy() < 10 {
		return Signals{}
	}

	gray := vision.Gray(img)
	edgeDensity := vision.Canny(gray, 60, 160).Fraction()
	lapVar := vision.Laplacian(gray).Variance()
	sat, val := vision.HSV(img)

	repaint := vision.Clip01((sat.Std()-30)/70)*0.6 + vision.Clip01((val.Std()-35)/80)*0.4
	return Signals{
		Scratch: vision.Clip01((edgeDensity - 0.03) / 0.10),
		Dent:    vision.Clip01((lapVar - 150) / 900),
		Repaint: vision.Clip01(repaint),
	}
}
