package evidence_test

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"carinspect/internal/damage"
	"carinspect/internal/evidence"
	"carinspect/internal/testsupport"
)

func options(dir string) evidence.Options {
	return evidence.Options{
		OutputDir:    dir,
		PublicPrefix: "/analysis_frames",
		Token:        "tok123",
		MaxImages:    4,
		LongSide:     64,
		JPEGQuality:  85,
		Annotate:     true,
	}
}

func TestSelectDetectorRanksByConfidence(t *testing.T) {
	src := t.TempDir()
	a := testsupport.SaveImage(t, filepath.Join(src, "a.png"), testsupport.Solid(200, 100, color.Gray{Y: 128}))
	b := testsupport.SaveImage(t, filepath.Join(src, "b.png"), testsupport.Solid(200, 100, color.Gray{Y: 128}))
	result := damage.Result{
		OK:      true,
		Method:  damage.MethodDetector,
		Summary: damage.Summary{Severity: damage.SeverityHigh},
		Findings: []damage.Finding{
			{Frame: a, Type: "detection", Label: "scratch", Confidence: 0.55},
			{Frame: b, Type: "detection", Label: "door_dent", Confidence: 0.91, Box: []float64{20, 20, 120, 80}},
			{Frame: filepath.Join(src, "missing.png"), Type: "detection", Label: "dent", Confidence: 0.7},
		},
	}
	opts := options(filepath.Join(t.TempDir(), "suspicious"))
	opts.LongSide = 400
	items := evidence.Select(context.Background(), result, opts, nil)
	if len(items) != 2 {
		t.Fatalf("expected two items, got %+v", items)
	}
	if items[0].Caption != "Possible door dent signal" || items[0].Source != b {
		t.Fatalf("expected highest confidence first, got %+v", items[0])
	}
	if items[0].PublicPath != "/analysis_frames/tok123/suspicious/suspicious_1.jpg" {
		t.Fatalf("unexpected public path %q", items[0].PublicPath)
	}
	if filepath.Base(items[1].Path) != "suspicious_3.jpg" {
		t.Fatalf("expected rank-based name with gap for missing frame, got %q", items[1].Path)
	}
	for _, item := range items {
		if item.Severity != damage.SeverityHigh {
			t.Fatalf("expected overall severity, got %q", item.Severity)
		}
	}

	img, err := imaging.Open(items[0].Path)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("expected original size below long side, got %v", b)
	}
	r, g, _, _ := img.At(60, 20).RGBA()
	if int(r>>8) < int(g>>8)+40 {
		t.Fatalf("expected annotated box edge to be red, got r=%d g=%d", r>>8, g>>8)
	}
	r, g, _, _ = img.At(160, 50).RGBA()
	if d := int(r>>8) - int(g>>8); d > 20 || d < -20 {
		t.Fatalf("expected untouched gray outside the box, got r=%d g=%d", r>>8, g>>8)
	}
}

func TestSelectHeuristicKeepsOrderAndCaptionsSignals(t *testing.T) {
	src := t.TempDir()
	paths := testsupport.WriteFrames(t, src, testsupport.Repeat(testsupport.Solid(40, 30, color.Gray{Y: 90}), 6))
	findings := make([]damage.Finding, 0, len(paths))
	for i, p := range paths {
		findings = append(findings, damage.Finding{
			Frame:   p,
			Type:    "heuristic",
			Signals: &damage.Signals{Scratch: 0.1 * float64(i), Dent: 0.25, Repaint: 0.5},
		})
	}
	result := damage.Result{OK: true, Method: damage.MethodHeuristic, Findings: findings}
	opts := options(t.TempDir())
	opts.MaxImages = 3
	opts.LongSide = 20
	items := evidence.Select(context.Background(), result, opts, nil)
	if len(items) != 3 {
		t.Fatalf("expected cap of three, got %d", len(items))
	}
	if items[1].Caption != "Scratch: 0.10 · Dent: 0.25 · Paint: 0.50" {
		t.Fatalf("unexpected caption %q", items[1].Caption)
	}
	if items[0].Source != paths[0] {
		t.Fatalf("expected engine order preserved")
	}
	img, err := imaging.Open(items[0].Path)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 15 {
		t.Fatalf("expected downsized thumbnail 20x15, got %v", b)
	}
	if items[0].Severity != damage.SeverityMedium {
		t.Fatalf("expected medium default severity, got %q", items[0].Severity)
	}
}

func TestSelectNeverFails(t *testing.T) {
	result := damage.Result{Method: damage.MethodHeuristic, Findings: []damage.Finding{{Frame: "/nonexistent/frame.jpg"}}}
	if items := evidence.Select(context.Background(), result, options(t.TempDir()), nil); len(items) != 0 {
		t.Fatalf("expected no items for unreadable frames, got %+v", items)
	}

	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	opts := options(filepath.Join(blocker, "sub"))
	if items := evidence.Select(context.Background(), result, opts, nil); len(items) != 0 {
		t.Fatalf("expected no items when output dir cannot be created")
	}

	opts = options(t.TempDir())
	opts.MaxImages = 0
	if items := evidence.Select(context.Background(), result, opts, nil); items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
	if strings.TrimSpace(opts.Token) == "" {
		t.Fatal("unexpected empty token")
	}
}
