package testsupport

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// Solid returns a uniformly coloured image.
func Solid(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

// Checker returns a sharp black/white style checkerboard with the given cell
// size and the two gray levels.
func Checker(w, h, cell int, dark, light uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if cell < 1 {
		cell = 1
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := dark
			if (x/cell+y/cell)%2 == 0 {
				v = light
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// Noise returns deterministic per-pixel colour noise around mid gray.
func Noise(w, h int, seed uint64, amplitude float64) *image.NRGBA {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := 128 + (rng.Float64()*2-1)*amplitude
			img.Pix[i+c] = uint8(math.Max(0, math.Min(255, v)))
		}
		img.Pix[i+3] = 255
	}
	return img
}

// Scene returns a smooth textured scene panned horizontally by offset pixels,
// so a sequence with growing offsets reads as camera motion.
func Scene(w, h, offset int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx := float64(x + offset)
			sy := float64(y)
			v := 128 + 70*math.Sin(sx/9)*math.Cos(sy/13) + 40*math.Sin((sx+sy)/23)
			g := uint8(math.Max(0, math.Min(255, v)))
			img.SetNRGBA(x, y, color.NRGBA{R: g, G: uint8(255 - int(g)/2), B: g / 2, A: 255})
		}
	}
	return img
}

// SaveImage encodes img at path, choosing the format from the extension.
func SaveImage(t testing.TB, path string, img image.Image) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}

// WriteFrames saves each image as frame_NNN.png under dir and returns the paths.
func WriteFrames(t testing.TB, dir string, imgs []image.Image) []string {
	t.Helper()
	paths := make([]string, 0, len(imgs))
	for i, img := range imgs {
		name := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
		paths = append(paths, SaveImage(t, name, img))
	}
	return paths
}

// Repeat returns n references to the same image.
func Repeat(img image.Image, n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = img
	}
	return out
}
