package preflight

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"carinspect/internal/config"
	"carinspect/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || result.Detail == "" {
		t.Fatalf("expected failure with detail for missing dir, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_PreparedDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if last := results[len(results)-1]; !strings.Contains(last.Detail, "heuristic") {
		t.Fatalf("expected disabled detector to report heuristic mode, got %q", last.Detail)
	}
}

func TestCheckDetectorEnabledButMissing(t *testing.T) {
	result := CheckDetector(context.Background(), config.Detector{Enabled: true, Command: "clearly-not-a-detector"})
	if result.Passed || !strings.Contains(result.Detail, "not found") {
		t.Fatalf("expected missing detector failure, got %+v", result)
	}
}

func TestCheckSystemDepsWithStubs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg", "ffprobe"))
	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe only, got %+v", statuses)
	}
	for _, s := range statuses {
		if !s.Available {
			t.Fatalf("expected stubbed %s to be available: %s", s.Name, s.Detail)
		}
	}

	cfg.Detector.Enabled = true
	cfg.Detector.Command = "clearly-not-a-detector"
	statuses = CheckSystemDeps(cfg)
	if len(statuses) != 3 || statuses[2].Available || !statuses[2].Optional {
		t.Fatalf("expected optional missing detector, got %+v", statuses)
	}
}

func TestCheckLLM(t *testing.T) {
	if result := CheckLLM(context.Background(), config.LLMConfig{Provider: config.ProviderNone}); !result.Passed {
		t.Fatalf("expected disabled provider to pass, got %+v", result)
	}
	if result := CheckLLM(context.Background(), config.LLMConfig{Provider: config.ProviderOpenRouter}); result.Passed {
		t.Fatal("expected missing key to fail")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"OK"}}]}`)
	}))
	defer srv.Close()
	result := CheckLLM(context.Background(), config.LLMConfig{
		Provider: config.ProviderOpenRouter,
		APIKey:   "k",
		BaseURL:  srv.URL,
		Model:    "m",
	})
	if !result.Passed {
		t.Fatalf("expected reachable provider, got %+v", result)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer failing.Close()
	result = CheckLLM(context.Background(), config.LLMConfig{
		Provider: config.ProviderOpenRouter,
		APIKey:   "k",
		BaseURL:  failing.URL,
		Model:    "m",
	})
	if result.Passed || result.Detail == "" {
		t.Fatalf("expected failure detail, got %+v", result)
	}
}

func TestCheckNotifications(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if r := CheckNotifications(context.Background(), cfg, true); !r.Passed || !strings.Contains(r.Detail, "Disabled") {
		t.Fatalf("expected disabled notifications to pass, got %+v", r)
	}

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Title") != "carinspect - Test" {
			http.Error(w, "bad title", http.StatusBadRequest)
		}
	}))
	defer srv.Close()
	cfg.Notifications.NtfyTopic = srv.URL

	if r := CheckNotifications(context.Background(), cfg, false); !r.Passed || hits.Load() != 0 {
		t.Fatalf("expected configured check without sending, got %+v (hits %d)", r, hits.Load())
	}
	if r := CheckNotifications(context.Background(), cfg, true); !r.Passed || hits.Load() != 1 {
		t.Fatalf("expected test notification, got %+v (hits %d)", r, hits.Load())
	}
}
