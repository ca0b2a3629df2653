package vision

import (
	"math"
	"sort"
)

// Point is a sub-pixel image position.
type Point struct {
	X, Y float64
}

// CornerOptions configures Shi-Tomasi corner selection.
type CornerOptions struct {
	MaxCorners  int
	Quality     float64
	MinDistance float64
}

// GoodFeatures selects strong corners by minimum eigenvalue of the 3x3
// structure tensor, strongest first, at least MinDistance apart.
func GoodFeatures(p *Plane, opts CornerOptions) []Point {
	if p.W < 3 || p.H < 3 {
		return nil
	}
	gx, gy := Sobel(p)
	w, h := p.W, p.H
	xx, xy, yy := NewPlane(w, h), NewPlane(w, h), NewPlane(w, h)
	for i := range gx.Pix {
		xx.Pix[i] = gx.Pix[i] * gx.Pix[i]
		xy.Pix[i] = gx.Pix[i] * gy.Pix[i]
		yy.Pix[i] = gy.Pix[i] * gy.Pix[i]
	}
	box := []float64{1, 1, 1}
	xx, xy, yy = separable(xx, box, box), separable(xy, box, box), separable(yy, box, box)

	eig := NewPlane(w, h)
	maxEig := 0.0
	for i := range eig.Pix {
		a, b, c := xx.Pix[i]/2, xy.Pix[i], yy.Pix[i]/2
		v := (a + c) - math.Sqrt((a-c)*(a-c)+b*b)
		eig.Pix[i] = v
		if v > maxEig {
			maxEig = v
		}
	}
	if maxEig <= 0 {
		return nil
	}
	threshold := opts.Quality * maxEig

	type candidate struct {
		x, y int
		v    float64
	}
	var candidates []candidate
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := eig.Pix[y*w+x]
			if v <= threshold {
				continue
			}
			if !isLocalMax(eig, x, y) {
				continue
			}
			candidates = append(candidates, candidate{x, y, v})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].v > candidates[j].v })

	minDist2 := opts.MinDistance * opts.MinDistance
	var out []Point
	for _, c := range candidates {
		if opts.MaxCorners > 0 && len(out) >= opts.MaxCorners {
			break
		}
		pt := Point{X: float64(c.x), Y: float64(c.y)}
		tooClose := false
		for _, kept := range out {
			dx, dy := kept.X-pt.X, kept.Y-pt.Y
			if dx*dx+dy*dy < minDist2 {
				tooClose = true
				break
			}
		}
		if !tooClose {
			out = append(out, pt)
		}
	}
	return out
}

func isLocalMax(p *Plane, x, y int) bool {
	v := p.Pix[y*p.W+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if (dx != 0 || dy != 0) && p.Clamped(x+dx, y+dy) > v {
				return false
			}
		}
	}
	return true
}

// FlowOptions configures pyramidal Lucas-Kanade tracking.
type FlowOptions struct {
	WindowRadius int
	Levels       int
	MaxIter      int
	Epsilon      float64
}

// DefaultFlowOptions mirrors a 21x21 window over a four level pyramid.
func DefaultFlowOptions() FlowOptions {
	return FlowOptions{WindowRadius: 10, Levels: 3, MaxIter: 20, Epsilon: 0.01}
}

type pyramidLevel struct {
	img, gx, gy *Plane
}

func buildPyramid(p *Plane, levels int) []pyramidLevel {
	out := make([]pyramidLevel, 0, levels+1)
	cur := p
	for l := 0; l <= levels; l++ {
		gx, gy := centralDiff(cur)
		out = append(out, pyramidLevel{img: cur, gx: gx, gy: gy})
		if cur.W < 16 || cur.H < 16 {
			break
		}
		cur = PyrDown(cur)
	}
	return out
}

func centralDiff(p *Plane) (gx, gy *Plane) {
	gx, gy = NewPlane(p.W, p.H), NewPlane(p.W, p.H)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			gx.Pix[y*p.W+x] = (p.Clamped(x+1, y) - p.Clamped(x-1, y)) / 2
			gy.Pix[y*p.W+x] = (p.Clamped(x, y+1) - p.Clamped(x, y-1)) / 2
		}
	}
	return gx, gy
}

// TrackFlow follows points from prev to next. The returned slice holds the new
// positions; status[i] is false when point i could not be tracked.
func TrackFlow(prev, next *Plane, pts []Point, opts FlowOptions) ([]Point, []bool) {
	out := make([]Point, len(pts))
	status := make([]bool, len(pts))
	if len(pts) == 0 || prev.W != next.W || prev.H != next.H {
		return out, status
	}
	if opts.WindowRadius <= 0 {
		opts = DefaultFlowOptions()
	}
	pp := buildPyramid(prev, opts.Levels)
	np := buildPyramid(next, opts.Levels)
	top := len(pp) - 1
	if len(np)-1 < top {
		top = len(np) - 1
	}
	r := opts.WindowRadius

	for i, pt := range pts {
		gX, gY := 0.0, 0.0
		ok := true
		for l := top; l >= 0 && ok; l-- {
			scale := math.Ldexp(1, -l)
			px, py := pt.X*scale, pt.Y*scale
			lvlP, lvlN := pp[l], np[l]

			var sxx, sxy, syy float64
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					ix := lvlP.gx.Bilinear(px+float64(dx), py+float64(dy))
					iy := lvlP.gy.Bilinear(px+float64(dx), py+float64(dy))
					sxx += ix * ix
					sxy += ix * iy
					syy += iy * iy
				}
			}
			det := sxx*syy - sxy*sxy
			area := float64((2*r + 1) * (2*r + 1))
			minEig := ((sxx + syy) - math.Sqrt((sxx-syy)*(sxx-syy)+4*sxy*sxy)) / 2 / area
			if det < 1e-9 || minEig < 1e-4 {
				ok = false
				break
			}

			vX, vY := 0.0, 0.0
			for iter := 0; iter < opts.MaxIter; iter++ {
				var bx, by float64
				for dy := -r; dy <= r; dy++ {
					for dx := -r; dx <= r; dx++ {
						x0, y0 := px+float64(dx), py+float64(dy)
						diff := lvlP.img.Bilinear(x0, y0) - lvlN.img.Bilinear(x0+gX+vX, y0+gY+vY)
						bx += diff * lvlP.gx.Bilinear(x0, y0)
						by += diff * lvlP.gy.Bilinear(x0, y0)
					}
				}
				eX := (syy*bx - sxy*by) / det
				eY := (sxx*by - sxy*bx) / det
				vX += eX
				vY += eY
				if eX*eX+eY*eY < opts.Epsilon*opts.Epsilon {
					break
				}
			}
			if l > 0 {
				gX, gY = 2*(gX+vX), 2*(gY+vY)
			} else {
				gX, gY = gX+vX, gY+vY
			}
		}
		nx, ny := pt.X+gX, pt.Y+gY
		if !ok || math.IsNaN(nx) || math.IsNaN(ny) || nx < 0 || ny < 0 || nx > float64(prev.W-1) || ny > float64(prev.H-1) {
			continue
		}
		out[i] = Point{X: nx, Y: ny}
		status[i] = true
	}
	return out, status
}
