package vision

import "math"

// smallGaussian holds the fixed binomial kernels used when sigma is derived
// from the kernel size.
var smallGaussian = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// GaussianKernel returns a normalized 1-D kernel. sigma <= 0 derives sigma
// from ksize.
func GaussianKernel(ksize int, sigma float64) []float64 {
	if ksize < 1 {
		ksize = 1
	}
	if ksize%2 == 0 {
		ksize++
	}
	if sigma <= 0 {
		if k, ok := smallGaussian[ksize]; ok {
			return append([]float64(nil), k...)
		}
		sigma = 0.3*((float64(ksize)-1)*0.5-1) + 0.8
	}
	kernel := make([]float64, ksize)
	half := ksize / 2
	sum := 0.0
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianBlur applies a separable Gaussian with reflect-101 borders.
func GaussianBlur(p *Plane, ksize int, sigma float64) *Plane {
	return separable(p, GaussianKernel(ksize, sigma), GaussianKernel(ksize, sigma))
}

func separable(p *Plane, kx, ky []float64) *Plane {
	tmp := NewPlane(p.W, p.H)
	hx := len(kx) / 2
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			sum := 0.0
			for i, k := range kx {
				sum += k * p.At(x+i-hx, y)
			}
			tmp.Pix[y*p.W+x] = sum
		}
	}
	out := NewPlane(p.W, p.H)
	hy := len(ky) / 2
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			sum := 0.0
			for i, k := range ky {
				sum += k * tmp.At(x, y+i-hy)
			}
			out.Pix[y*p.W+x] = sum
		}
	}
	return out
}

// Laplacian applies the 4-neighbour 3x3 Laplacian.
func Laplacian(p *Plane) *Plane {
	out := NewPlane(p.W, p.H)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			out.Pix[y*p.W+x] = p.At(x-1, y) + p.At(x+1, y) + p.At(x, y-1) + p.At(x, y+1) - 4*p.At(x, y)
		}
	}
	return out
}

// Sobel returns the horizontal and vertical 3x3 Sobel derivatives.
func Sobel(p *Plane) (gx, gy *Plane) {
	gx = NewPlane(p.W, p.H)
	gy = NewPlane(p.W, p.H)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			tl, tc, tr := p.At(x-1, y-1), p.At(x, y-1), p.At(x+1, y-1)
			ml, mr := p.At(x-1, y), p.At(x+1, y)
			bl, bc, br := p.At(x-1, y+1), p.At(x, y+1), p.At(x+1, y+1)
			gx.Pix[y*p.W+x] = (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy.Pix[y*p.W+x] = (bl + 2*bc + br) - (tl + 2*tc + tr)
		}
	}
	return gx, gy
}

// AbsDiff returns |a - b| per pixel. Planes must share dimensions.
func AbsDiff(a, b *Plane) *Plane {
	out := NewPlane(a.W, a.H)
	for i := range out.Pix {
		out.Pix[i] = math.Abs(a.Pix[i] - b.Pix[i])
	}
	return out
}

// PyrDown blurs and halves the plane.
func PyrDown(p *Plane) *Plane {
	blurred := GaussianBlur(p, 5, 0)
	w, h := (p.W+1)/2, (p.H+1)/2
	out := NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*w+x] = blurred.Clamped(2*x, 2*y)
		}
	}
	return out
}
