package vision

import (
	"image"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// LabPlanes holds CIE L*a*b* channels on the 8-bit scale: L in 0-255,
// a and b offset by 128.
type LabPlanes struct {
	L, A, B *Plane
}

// Lab converts an image to L*a*b* planes (D65).
func Lab(img image.Image) LabPlanes {
	nrgba := imaging.Clone(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	out := LabPlanes{L: NewPlane(w, h), A: NewPlane(w, h), B: NewPlane(w, h)}
	cache := make(map[[3]uint8][3]float64)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < w; x++ {
			key := [3]uint8{row[x*4], row[x*4+1], row[x*4+2]}
			lab, ok := cache[key]
			if !ok {
				c := colorful.Color{R: float64(key[0]) / 255, G: float64(key[1]) / 255, B: float64(key[2]) / 255}
				l, a, b := c.Lab()
				lab = [3]float64{l * 255, a*100 + 128, b*100 + 128}
				cache[key] = lab
			}
			i := y*w + x
			out.L.Pix[i], out.A.Pix[i], out.B.Pix[i] = lab[0], lab[1], lab[2]
		}
	}
	return out
}

// Crop returns the three channels restricted to r.
func (l LabPlanes) Crop(r image.Rectangle) LabPlanes {
	return LabPlanes{L: l.L.Crop(r), A: l.A.Crop(r), B: l.B.Crop(r)}
}

// HSV returns saturation and value planes on a 0-255 scale.
func HSV(img image.Image) (sat, val *Plane) {
	nrgba := imaging.Clone(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	sat, val = NewPlane(w, h), NewPlane(w, h)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < w; x++ {
			c := colorful.Color{R: float64(row[x*4]) / 255, G: float64(row[x*4+1]) / 255, B: float64(row[x*4+2]) / 255}
			_, s, v := c.Hsv()
			sat.Pix[y*w+x] = s * 255
			val.Pix[y*w+x] = v * 255
		}
	}
	return sat, val
}
