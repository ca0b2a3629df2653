package video

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func solid(w, h int, v uint8) image.Image {
	return imaging.New(w, h, color.NRGBA{R: v, G: v, B: v, A: 255})
}

func collect(t *testing.T, src Source, opts ReadOptions) []int {
	t.Helper()
	var got []int
	if err := src.Frames(context.Background(), opts, func(f Frame) error {
		got = append(got, f.Index)
		return nil
	}); err != nil {
		t.Fatalf("Frames returned error: %v", err)
	}
	return got
}

func TestMemorySourceStrideAndLimit(t *testing.T) {
	frames := make([]image.Image, 10)
	for i := range frames {
		frames[i] = solid(8, 6, uint8(i*10))
	}
	src := NewMemorySource(frames, 5)

	info, err := src.Info(context.Background())
	if err != nil {
		t.Fatalf("Info returned error: %v", err)
	}
	if info.Kind != KindVideo || info.Width != 8 || info.Height != 6 || info.DurationSeconds != 2 {
		t.Fatalf("unexpected info: %+v", info)
	}

	if got := collect(t, src, ReadOptions{Stride: 3}); len(got) != 4 || got[3] != 9 {
		t.Fatalf("unexpected stride indices: %v", got)
	}
	if got := collect(t, src, ReadOptions{Stride: 2, Limit: 2}); len(got) != 2 || got[1] != 2 {
		t.Fatalf("unexpected limited indices: %v", got)
	}
}

func TestMemorySourceStop(t *testing.T) {
	src := NewMemorySource([]image.Image{solid(2, 2, 0), solid(2, 2, 1), solid(2, 2, 2)}, 0)
	calls := 0
	err := src.Frames(context.Background(), ReadOptions{}, func(Frame) error {
		calls++
		return ErrStop
	})
	if err != nil || calls != 1 {
		t.Fatalf("expected clean stop after one frame, got err=%v calls=%d", err, calls)
	}
	if _, err := NewMemorySource(nil, 30).Info(context.Background()); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestImageSourceSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.png")
	if err := imaging.Save(solid(12, 9, 128), good); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := filepath.Join(dir, "b.jpg")
	if err := imaging.Save(solid(12, 9, 64), second); err != nil {
		t.Fatalf("save: %v", err)
	}
	src := NewImageSource([]string{filepath.Join(dir, "missing.jpg"), good, second})

	info, err := src.Info(context.Background())
	if err != nil {
		t.Fatalf("Info returned error: %v", err)
	}
	if info.Kind != KindImages || info.Width != 12 || info.Height != 9 || info.FrameCount != 3 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if got := collect(t, src, ReadOptions{}); len(got) != 2 || got[0] != 1 {
		t.Fatalf("expected two readable stills, got %v", got)
	}

	if _, err := NewImageSource([]string{filepath.Join(dir, "missing.jpg")}).Info(context.Background()); err == nil {
		t.Fatal("expected error when nothing is readable")
	}
}

func TestFFmpegFrameArgs(t *testing.T) {
	src := NewFFmpegSource("/tmp/in.mp4", "", "")
	args := strings.Join(src.frameArgs(ReadOptions{Stride: 7, Limit: 140}), " ")
	for _, want := range []string{"-i /tmp/in.mp4", `select=not(mod(n\,7))`, "-frames:v 140", "-pix_fmt rgb24 pipe:1"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in %q", want, args)
		}
	}
	plain := strings.Join(src.frameArgs(ReadOptions{Stride: 1}), " ")
	if strings.Contains(plain, "select=") || strings.Contains(plain, "-frames:v") {
		t.Fatalf("unexpected selection args: %q", plain)
	}
}

func TestRGB24ToRGBA(t *testing.T) {
	img := rgb24ToRGBA([]byte{10, 20, 30, 40, 50, 60}, 2, 1)
	r, g, b, a := img.At(1, 0).RGBA()
	if r>>8 != 40 || g>>8 != 50 || b>>8 != 60 || a>>8 != 255 {
		t.Fatalf("unexpected pixel: %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}
