package vision

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Plane is a single-channel float image stored row-major.
type Plane struct {
	W, H int
	Pix  []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(w, h int) *Plane {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Plane{W: w, H: h, Pix: make([]float64, w*h)}
}

// At returns the value at (x, y) with reflect-101 border handling.
func (p *Plane) At(x, y int) float64 {
	return p.Pix[reflect101(y, p.H)*p.W+reflect101(x, p.W)]
}

// Clamped returns the value at (x, y) replicating border pixels.
func (p *Plane) Clamped(x, y int) float64 {
	return p.Pix[clampInt(y, 0, p.H-1)*p.W+clampInt(x, 0, p.W-1)]
}

// Bilinear samples the plane at a fractional position, replicating borders.
func (p *Plane) Bilinear(x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)
	a := p.Clamped(x0, y0)
	b := p.Clamped(x0+1, y0)
	c := p.Clamped(x0, y0+1)
	d := p.Clamped(x0+1, y0+1)
	return (a*(1-fx)+b*fx)*(1-fy) + (c*(1-fx)+d*fx)*fy
}

// Bounds returns the plane rectangle anchored at the origin.
func (p *Plane) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.W, p.H)
}

// Empty reports whether the plane has no pixels.
func (p *Plane) Empty() bool {
	return p == nil || len(p.Pix) == 0
}

// Crop copies the part of the plane inside r.
func (p *Plane) Crop(r image.Rectangle) *Plane {
	r = r.Intersect(p.Bounds())
	out := NewPlane(r.Dx(), r.Dy())
	for y := 0; y < out.H; y++ {
		src := (r.Min.Y+y)*p.W + r.Min.X
		copy(out.Pix[y*out.W:(y+1)*out.W], p.Pix[src:src+out.W])
	}
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty plane.
func (p *Plane) Mean() float64 {
	if p.Empty() {
		return 0
	}
	return stat.Mean(p.Pix, nil)
}

// Variance returns the population variance, matching numpy's var().
func (p *Plane) Variance() float64 {
	if p.Empty() {
		return 0
	}
	_, variance := stat.PopMeanVariance(p.Pix, nil)
	return variance
}

// Std returns the population standard deviation.
func (p *Plane) Std() float64 {
	return math.Sqrt(p.Variance())
}

// MeanAbs returns the mean absolute value.
func (p *Plane) MeanAbs() float64 {
	if p.Empty() {
		return 0
	}
	abs := make([]float64, len(p.Pix))
	for i, v := range p.Pix {
		abs[i] = math.Abs(v)
	}
	return floats.Sum(abs) / float64(len(abs))
}

// Gray converts an image to 0-255 luma using BT.601 weights, rounded to whole
// levels the way an 8-bit grayscale conversion would.
func Gray(img image.Image) *Plane {
	nrgba := imaging.Clone(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	out := NewPlane(w, h)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			out.Pix[y*w+x] = math.Round(0.299*float64(row[i]) + 0.587*float64(row[i+1]) + 0.114*float64(row[i+2]))
		}
	}
	return out
}

func reflect101(i, n int) int {
	if n <= 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clip01 clamps v to [0, 1]; NaN maps to 0.
func Clip01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
