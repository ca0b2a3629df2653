package vision

import (
	"image"
	"sort"
)

// Mask is a binary image.
type Mask struct {
	W, H int
	Bits []bool
}

// NewMask allocates an empty mask.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Bits: make([]bool, w*h)}
}

// Threshold marks pixels strictly greater than t.
func Threshold(p *Plane, t float64) *Mask {
	m := NewMask(p.W, p.H)
	for i, v := range p.Pix {
		m.Bits[i] = v > t
	}
	return m
}

// Fraction returns the share of set pixels.
func (m *Mask) Fraction() float64 {
	return m.FractionIn(image.Rect(0, 0, m.W, m.H))
}

// FractionIn returns the share of set pixels inside r.
func (m *Mask) FractionIn(r image.Rectangle) float64 {
	r = r.Intersect(image.Rect(0, 0, m.W, m.H))
	if r.Empty() {
		return 0
	}
	set := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if m.Bits[y*m.W+x] {
				set++
			}
		}
	}
	return float64(set) / float64(r.Dx()*r.Dy())
}

// MedianBlur applies a k x k median filter. On a binary mask the median is a
// majority vote; borders replicate edge pixels.
func MedianBlur(m *Mask, k int) *Mask {
	if k < 3 {
		return &Mask{W: m.W, H: m.H, Bits: append([]bool(nil), m.Bits...)}
	}
	if k%2 == 0 {
		k++
	}
	half := k / 2
	rows := make([]int, m.W*m.H)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			n := 0
			for dx := -half; dx <= half; dx++ {
				if m.Bits[y*m.W+clampInt(x+dx, 0, m.W-1)] {
					n++
				}
			}
			rows[y*m.W+x] = n
		}
	}
	out := NewMask(m.W, m.H)
	majority := k * k / 2
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			n := 0
			for dy := -half; dy <= half; dy++ {
				n += rows[clampInt(y+dy, 0, m.H-1)*m.W+x]
			}
			out.Bits[y*m.W+x] = n > majority
		}
	}
	return out
}

// Component is an 8-connected region of set pixels.
type Component struct {
	Box    image.Rectangle
	Pixels int
}

// Components labels 8-connected regions.
func Components(m *Mask) []Component {
	seen := make([]bool, len(m.Bits))
	var out []Component
	stack := make([]int, 0, 64)
	for start, set := range m.Bits {
		if !set || seen[start] {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		comp := Component{Box: image.Rect(start%m.W, start/m.W, start%m.W+1, start/m.W+1)}
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp.Pixels++
			x, y := idx%m.W, idx/m.W
			comp.Box = comp.Box.Union(image.Rect(x, y, x+1, y+1))
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
						continue
					}
					n := ny*m.W + nx
					if m.Bits[n] && !seen[n] {
						seen[n] = true
						stack = append(stack, n)
					}
				}
			}
		}
		out = append(out, comp)
	}
	return out
}

// ExternalBoxes returns bounding boxes of edge regions that are not enclosed
// by a larger region's box, largest first.
func ExternalBoxes(m *Mask) []image.Rectangle {
	comps := Components(m)
	boxes := make([]image.Rectangle, 0, len(comps))
	for _, c := range comps {
		boxes = append(boxes, c.Box)
	}
	sort.SliceStable(boxes, func(i, j int) bool {
		return area(boxes[i]) > area(boxes[j])
	})
	var out []image.Rectangle
	for _, b := range boxes {
		enclosed := false
		for _, kept := range out {
			if b.In(kept) && b != kept {
				enclosed = true
				break
			}
		}
		if !enclosed {
			out = append(out, b)
		}
	}
	return out
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
