package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carinspect/internal/frames"
	"carinspect/internal/testsupport"
)

func TestQualityYAMLOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	args := append([]string{"quality", "-o", "yaml"}, imageArgs(t, 4)...)
	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("quality: %v", err)
	}
	requireContains(t, out, "too_low_res: true")
	requireContains(t, out, "source: images")
	if strings.Contains(out, "{") {
		t.Fatalf("expected block-style yaml, got %q", out)
	}
}

func TestFramesThenCoverageAndDamage(t *testing.T) {
	env := setupCLITestEnv(t)
	outDir := filepath.Join(t.TempDir(), "stills")

	args := append([]string{"frames", "--out", outDir, "-o", "json"}, imageArgs(t, 6)...)
	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("frames: %v", err)
	}
	var result frames.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode frames: %v\n%s", err, out)
	}
	if result.Count != 6 || result.FramesDir != outDir {
		t.Fatalf("unexpected frames result: %+v", result)
	}

	out, _, err = runCLI(t, []string{"coverage", "--dir", outDir}, env.configPath)
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}
	requireContains(t, out, "Coverage:")

	out, _, err = runCLI(t, []string{"damage", "--dir", outDir}, env.configPath)
	if err != nil {
		t.Fatalf("damage: %v", err)
	}
	requireContains(t, out, "(heuristic)")
}

func TestCoverageRequiresStills(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"coverage", "--dir", t.TempDir()}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no stills") {
		t.Fatalf("expected missing stills error, got %v", err)
	}
}

func TestTamperCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	panel := testsupport.SaveImage(t, filepath.Join(dir, "panel.png"), testsupport.Noise(200, 150, 7, 40))

	out, _, err := runCLI(t, []string{"tamper", "paint", panel}, env.configPath)
	if err != nil {
		t.Fatalf("tamper paint: %v", err)
	}
	requireContains(t, out, "Repaint:")
	requireContains(t, out, "HF energy")

	out, _, err = runCLI(t, []string{"tamper", "bolt", panel, "-o", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("tamper bolt: %v", err)
	}
	var bolt map[string]any
	if err := json.Unmarshal([]byte(out), &bolt); err != nil {
		t.Fatalf("decode bolt report: %v", err)
	}
	if _, ok := bolt["label"]; !ok {
		t.Fatalf("expected label in bolt report, got %v", bolt)
	}

	if _, _, err := runCLI(t, []string{"tamper", "bolt", filepath.Join(dir, "missing.png")}, env.configPath); err == nil {
		t.Fatal("expected error for unreadable photo")
	}
}

func TestAudioElectricSkips(t *testing.T) {
	env := setupCLITestEnv(t)
	clip := filepath.Join(t.TempDir(), "idle.m4a")
	if err := os.WriteFile(clip, []byte("not audio"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	out, _, err := runCLI(t, []string{"audio", clip, "--electric", "-o", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("audio: %v", err)
	}
	var report map[string]any
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode audio report: %v", err)
	}
	if report["risk_level"] != "none" || report["skipped"] != true {
		t.Fatalf("expected electric skip, got %v", report)
	}
}

func TestFramePathsCombinesArgsAndDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	got, err := framePaths([]string{"first.png"}, dir)
	if err != nil {
		t.Fatalf("framePaths: %v", err)
	}
	want := []string{"first.png", filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.png")}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("framePaths = %v, want %v", got, want)
	}
}
