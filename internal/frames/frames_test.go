package frames_test

import (
	"context"
	"image"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/disintegration/imaging"

	"carinspect/internal/config"
	"carinspect/internal/frames"
	"carinspect/internal/media/video"
	"carinspect/internal/testsupport"
)

func smallOpts() config.Frames {
	opts := config.Default().Frames
	opts.LongSide = 64
	return opts
}

func sceneFrames(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = testsupport.Scene(128, 72, i*3)
	}
	return out
}

func TestExtractWritesResizedStills(t *testing.T) {
	dir := t.TempDir()
	src := video.NewMemorySource(sceneFrames(40), 10)

	result, err := frames.Extract(context.Background(), src, dir, smallOpts(), nil)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if !result.OK || result.Count != 10 || result.Stride != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
	pattern := regexp.MustCompile(`^frame_\d{3}_[0-9a-f]{8}\.jpg$`)
	for i, path := range result.Frames {
		if filepath.Dir(path) != dir || !pattern.MatchString(filepath.Base(path)) {
			t.Fatalf("unexpected frame path %q", path)
		}
		if i == 0 {
			img, err := imaging.Open(path)
			if err != nil {
				t.Fatalf("open frame: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 36 {
				t.Fatalf("expected 64x36 frame, got %v", b)
			}
		}
	}
}

func TestExtractTooFewFrames(t *testing.T) {
	src := video.NewMemorySource(sceneFrames(12), 10)
	result, err := frames.Extract(context.Background(), src, t.TempDir(), smallOpts(), nil)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if result.OK || result.Count != 3 {
		t.Fatalf("expected 3 frames and ok=false, got %+v", result)
	}
	if result.Message == "" {
		t.Fatal("expected diagnostic message")
	}
}

func TestExtractUnreadableSource(t *testing.T) {
	result, err := frames.Extract(context.Background(), video.NewImageSource(nil), t.TempDir(), smallOpts(), nil)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if result.OK || result.Count != 0 || result.Frames == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestExtractContractErrors(t *testing.T) {
	if _, err := frames.Extract(context.Background(), nil, t.TempDir(), smallOpts(), nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	src := video.NewMemorySource(sceneFrames(1), 1)
	if _, err := frames.Extract(context.Background(), src, " ", smallOpts(), nil); err == nil {
		t.Fatal("expected error for empty output dir")
	}
}

func TestSamplingStride(t *testing.T) {
	opts := config.Default().Frames
	tests := []struct {
		name string
		info video.Info
		want int
	}{
		{"gap dominates", video.Info{FPS: 30, FrameCount: 300}, 12},
		{"spread dominates", video.Info{FPS: 30, FrameCount: 3600}, 100},
		{"unknown length", video.Info{}, 10},
		{"photos", video.Info{Kind: video.KindImages, FrameCount: 5}, 1},
	}
	for _, tc := range tests {
		if got := frames.SamplingStride(tc.info, opts); got != tc.want {
			t.Fatalf("%s: stride = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestDownsizeKeepsSmallImages(t *testing.T) {
	img := testsupport.Checker(40, 20, 4, 0, 255)
	if got := frames.Downsize(img, 64); got != image.Image(img) {
		t.Fatal("expected small image returned unchanged")
	}
}
