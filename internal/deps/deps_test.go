package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	present := filepath.Join(t.TempDir(), "present")
	writeStub(t, present, "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary", Optional: true},
		{Name: "Unset"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" || !results[1].Optional {
		t.Fatalf("expected missing optional binary with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}
}

func TestResolveCompanionPrefersSibling(t *testing.T) {
	tmp := t.TempDir()
	ffmpeg := filepath.Join(tmp, executableName("ffmpeg"))
	ffprobe := filepath.Join(tmp, executableName("ffprobe"))
	writeStub(t, ffmpeg, "exit 0")
	writeStub(t, ffprobe, "exit 0")

	status := ResolveCompanion(ffmpeg, "ffprobe")
	if !status.Available || status.Command != ffprobe {
		t.Fatalf("expected sibling ffprobe %q, got %#v", ffprobe, status)
	}
}

func TestResolveCompanionPathFallback(t *testing.T) {
	tmp := t.TempDir()
	ffmpeg := filepath.Join(tmp, executableName("ffmpeg"))
	writeStub(t, ffmpeg, "exit 0")

	binDir := filepath.Join(tmp, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	ffprobe := filepath.Join(binDir, executableName("ffprobe"))
	writeStub(t, ffprobe, "exit 0")
	t.Setenv("PATH", binDir)

	status := ResolveCompanion(ffmpeg, "ffprobe")
	if !status.Available || status.Command != ffprobe {
		t.Fatalf("expected PATH ffprobe %q, got %#v", ffprobe, status)
	}
}

func TestResolveCompanionNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	status := ResolveCompanion(filepath.Join(t.TempDir(), "ffmpeg"), "ffprobe")
	if status.Available || status.Detail == "" {
		t.Fatalf("expected resolution failure, got %#v", status)
	}
}

func TestVersionReadsFirstLine(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	writeStub(t, stub, `printf 'ffmpeg version 7.1 Copyright\nbuilt with gcc\n'`)
	if got := Version(context.Background(), stub); got != "ffmpeg version 7.1 Copyright" {
		t.Fatalf("unexpected version line %q", got)
	}
	if got := Version(context.Background(), filepath.Join(t.TempDir(), "missing")); got != "" {
		t.Fatalf("expected empty version for missing binary, got %q", got)
	}
}

func TestFFprobeFor(t *testing.T) {
	tmp := t.TempDir()
	ffmpeg := filepath.Join(tmp, executableName("ffmpeg"))
	ffprobe := filepath.Join(tmp, executableName("ffprobe"))
	writeStub(t, ffmpeg, "exit 0")
	writeStub(t, ffprobe, "exit 0")

	if got := FFprobeFor(ffmpeg, "ffprobe"); got != ffprobe {
		t.Fatalf("expected sibling ffprobe, got %q", got)
	}
	if got := FFprobeFor(ffmpeg, "/opt/custom/ffprobe"); got != "/opt/custom/ffprobe" {
		t.Fatalf("expected explicit ffprobe kept, got %q", got)
	}
	t.Setenv("PATH", "")
	if got := FFprobeFor("ffmpeg", ""); got != "ffprobe" {
		t.Fatalf("expected bare default, got %q", got)
	}
}
