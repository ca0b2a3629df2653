package vision

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
)

func flat(w, h int, v float64) *Plane {
	p := NewPlane(w, h)
	for i := range p.Pix {
		p.Pix[i] = v
	}
	return p
}

func squarePlane(w, h, x0, y0, size int) *Plane {
	p := flat(w, h, 20)
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			p.Pix[y*w+x] = 220
		}
	}
	return p
}

func TestGrayUsesLumaWeights(t *testing.T) {
	img := imaging.New(2, 1, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	g := Gray(img)
	if g.Pix[0] != 76 || g.Pix[1] != 150 {
		t.Fatalf("unexpected luma: %v", g.Pix)
	}
}

func TestFlatPlaneHasNoHighFrequency(t *testing.T) {
	p := flat(16, 12, 128)
	if v := Laplacian(p).Variance(); v != 0 {
		t.Fatalf("expected zero laplacian variance, got %v", v)
	}
	if f := Canny(p, 60, 160).Fraction(); f != 0 {
		t.Fatalf("expected no edges, got %v", f)
	}
	blurred := GaussianBlur(p, 5, 0)
	if math.Abs(blurred.Mean()-128) > 1e-9 {
		t.Fatalf("blur changed flat mean: %v", blurred.Mean())
	}
}

func TestCannyFindsSquareOutline(t *testing.T) {
	p := squarePlane(40, 40, 10, 10, 20)
	edges := Canny(p, 60, 160)
	if edges.Fraction() == 0 {
		t.Fatal("expected edges around the square")
	}
	boxes := ExternalBoxes(edges)
	if len(boxes) != 1 {
		t.Fatalf("expected a single external box, got %v", boxes)
	}
	if b := boxes[0]; b.Dx() < 18 || b.Dx() > 24 || b.Dy() < 18 || b.Dy() > 24 {
		t.Fatalf("unexpected box %v", b)
	}
}

func TestMedianBlurRemovesSpeckle(t *testing.T) {
	m := NewMask(20, 20)
	m.Bits[5*20+5] = true
	for y := 10; y < 18; y++ {
		for x := 10; x < 18; x++ {
			m.Bits[y*20+x] = true
		}
	}
	out := MedianBlur(m, 5)
	if out.Bits[5*20+5] {
		t.Fatal("expected isolated pixel removed")
	}
	if !out.Bits[14*20+14] {
		t.Fatal("expected solid block interior kept")
	}
	if got := out.FractionIn(image.Rect(10, 10, 18, 18)); got < 0.5 {
		t.Fatalf("expected block mostly kept, got %v", got)
	}
}

func TestComponentsAndExternalBoxes(t *testing.T) {
	m := NewMask(30, 30)
	// outer ring with an inner dot
	for i := 2; i < 20; i++ {
		m.Bits[2*30+i] = true
		m.Bits[19*30+i] = true
		m.Bits[i*30+2] = true
		m.Bits[i*30+19] = true
	}
	m.Bits[10*30+10] = true
	m.Bits[25*30+25] = true
	if got := len(Components(m)); got != 3 {
		t.Fatalf("expected 3 components, got %d", got)
	}
	if got := len(ExternalBoxes(m)); got != 2 {
		t.Fatalf("expected enclosed dot dropped, got %d", got)
	}
}

func TestLabNeutralGray(t *testing.T) {
	img := imaging.New(4, 4, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	lab := Lab(img)
	if math.Abs(lab.A.Mean()-128) > 0.5 || math.Abs(lab.B.Mean()-128) > 0.5 {
		t.Fatalf("expected neutral a/b near 128, got %v %v", lab.A.Mean(), lab.B.Mean())
	}
	if lab.A.Std() > 1e-9 {
		t.Fatalf("expected zero a std, got %v", lab.A.Std())
	}
	sat, val := HSV(img)
	if sat.Mean() != 0 || math.Abs(val.Mean()-128) > 1e-9 {
		t.Fatalf("unexpected hsv: %v %v", sat.Mean(), val.Mean())
	}
}

func TestPercentileInterpolatesBetweenRanks(t *testing.T) {
	ten := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	tests := []struct {
		values []float64
		p      float64
		want   float64
	}{
		{ten, 10, 1.9},
		{ten, 90, 9.1},
		{ten, 50, 5.5},
		{ten, 0, 1},
		{ten, 100, 10},
		{ten, 150, 10},
		{[]float64{3, 1}, 25, 1.5},
		{[]float64{7}, 90, 7},
	}
	for _, tc := range tests {
		if got := Percentile(tc.values, tc.p); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Percentile(%v, %v) = %v, want %v", tc.values, tc.p, got, tc.want)
		}
	}
}

func TestStats(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	if Median(values) != 2.5 {
		t.Fatalf("unexpected median %v", Median(values))
	}
	if Mean(values) != 2.5 {
		t.Fatalf("unexpected mean %v", Mean(values))
	}
	if Percentile(values, 0) != 1 || Percentile(values, 100) != 4 {
		t.Fatal("unexpected percentile extremes")
	}
	if p := Percentile(values, 50); p < 1 || p > 4 {
		t.Fatalf("percentile out of range: %v", p)
	}
	if Percentile(nil, 10) != 0 || Median(nil) != 0 || PopStd(nil) != 0 {
		t.Fatal("expected zeros for empty input")
	}
	if Clip01(math.NaN()) != 0 || Clip01(2) != 1 || Clip01(-1) != 0 {
		t.Fatal("unexpected clip")
	}
}

func texturedPlane(w, h, shiftX, shiftY int) *Plane {
	p := NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := float64(x-shiftX), float64(y-shiftY)
			p.Pix[y*w+x] = 128 + 60*math.Sin(sx/5)*math.Cos(sy/7) + 30*math.Sin((sx+sy)/11)
		}
	}
	return p
}

func TestTrackFlowRecoversShift(t *testing.T) {
	prev := texturedPlane(96, 96, 0, 0)
	next := texturedPlane(96, 96, 3, 2)
	pts := GoodFeatures(prev, CornerOptions{MaxCorners: 40, Quality: 0.01, MinDistance: 7})
	if len(pts) < 10 {
		t.Fatalf("expected corners, got %d", len(pts))
	}
	moved, status := TrackFlow(prev, next, pts, DefaultFlowOptions())
	var dxs, dys []float64
	for i, ok := range status {
		if !ok {
			continue
		}
		dxs = append(dxs, moved[i].X-pts[i].X)
		dys = append(dys, moved[i].Y-pts[i].Y)
	}
	if len(dxs) < 5 {
		t.Fatalf("expected most points tracked, got %d", len(dxs))
	}
	if dx, dy := Median(dxs), Median(dys); math.Abs(dx-3) > 0.5 || math.Abs(dy-2) > 0.5 {
		t.Fatalf("expected shift (3,2), got (%.2f,%.2f)", dx, dy)
	}
}
