package vision

import "math"

// Canny runs the Canny edge detector with 3x3 Sobel gradients and L1
// magnitude. Pixels above high seed edges; pixels above low extend them.
func Canny(p *Plane, low, high float64) *Mask {
	if low > high {
		low, high = high, low
	}
	gx, gy := Sobel(p)
	w, h := p.W, p.H
	mag := NewPlane(w, h)
	for i := range mag.Pix {
		mag.Pix[i] = math.Abs(gx.Pix[i]) + math.Abs(gy.Pix[i])
	}

	const tan22 = 0.4142135623730951
	// 0 = not edge, 1 = weak, 2 = strong
	state := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag.Pix[i]
			if m <= low {
				continue
			}
			ax, ay := math.Abs(gx.Pix[i]), math.Abs(gy.Pix[i])
			var n1, n2 float64
			switch {
			case ay <= ax*tan22:
				n1, n2 = mag.Clamped(x-1, y), mag.Clamped(x+1, y)
			case ay > ax/tan22:
				n1, n2 = mag.Clamped(x, y-1), mag.Clamped(x, y+1)
			case (gx.Pix[i] > 0) == (gy.Pix[i] > 0):
				n1, n2 = mag.Clamped(x-1, y-1), mag.Clamped(x+1, y+1)
			default:
				n1, n2 = mag.Clamped(x+1, y-1), mag.Clamped(x-1, y+1)
			}
			if m < n1 || m < n2 {
				continue
			}
			if m > high {
				state[i] = 2
			} else {
				state[i] = 1
			}
		}
	}

	out := NewMask(w, h)
	stack := make([]int, 0, 256)
	for i, s := range state {
		if s == 2 && !out.Bits[i] {
			out.Bits[i] = true
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := ny*w + nx
					if state[n] > 0 && !out.Bits[n] {
						out.Bits[n] = true
						stack = append(stack, n)
					}
				}
			}
		}
	}
	return out
}
