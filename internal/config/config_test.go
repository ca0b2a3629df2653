package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"carinspect/internal/config"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY", "OPENAI_MODEL", "CARINSPECT_DETECTOR_MODEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearProviderEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "carinspect", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.PublicEvidencePrefix != "/analysis_frames" {
		t.Fatalf("unexpected public prefix: %q", cfg.Paths.PublicEvidencePrefix)
	}
	if cfg.LLM.Provider != config.ProviderNone {
		t.Fatalf("expected provider none without credentials, got %q", cfg.LLM.Provider)
	}
	if cfg.Quality.MinDurationSeconds != 10 || cfg.Frames.MaxFrames != 36 || cfg.Coverage.Grid != 6 {
		t.Fatalf("unexpected calibrated defaults: %+v %+v %+v", cfg.Quality, cfg.Frames, cfg.Coverage)
	}
	if len(cfg.Detector.Labels) != len(config.DefaultDamageLabels) {
		t.Fatalf("expected default damage labels, got %v", cfg.Detector.Labels)
	}
}

func TestLoadAutoProviderPicksOpenAIFromEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-test")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.Provider != config.ProviderOpenAI {
		t.Fatalf("expected openai provider, got %q", cfg.LLM.Provider)
	}
	llm := cfg.GetLLM()
	if llm.APIKey != "sk-test" || llm.Model != "gpt-test" {
		t.Fatalf("unexpected llm settings: %+v", llm)
	}
}

func TestLoadExplicitProviderDefaultsModel(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "ak-test")

	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[llm]\nprovider = \"anthropic\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	llm := cfg.GetLLM()
	if llm.APIKey != "ak-test" {
		t.Fatalf("expected key from env, got %q", llm.APIKey)
	}
	if llm.Model == "" {
		t.Fatal("expected provider default model")
	}
}

func TestLoadOverridesThresholds(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	content := strings.Join([]string{
		"[quality]",
		"min_duration_seconds = 5",
		"[tamper.bolt]",
		"detected = 0.9",
		"[detector]",
		"labels = [\" Scratch \", \"scratch\", \"DENT\"]",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Quality.MinDurationSeconds != 5 {
		t.Fatalf("expected override, got %v", cfg.Quality.MinDurationSeconds)
	}
	if cfg.Quality.MinWidth != 720 {
		t.Fatalf("expected untouched default, got %d", cfg.Quality.MinWidth)
	}
	if cfg.Audio.HighBandWeight != 0.5 || cfg.Audio.HighBandHz[0] != 1500 || cfg.Audio.RoughnessWeight != 0.35 {
		t.Fatalf("unexpected audio overrides: %+v", cfg.Audio)
	}
	if cfg.Tamper.Bolt.Detected != 0.9 {
		t.Fatalf("expected bolt detected override, got %v", cfg.Tamper.Bolt.Detected)
	}
	if got := strings.Join(cfg.Detector.Labels, ","); got != "scratch,dent" {
		t.Fatalf("unexpected normalized labels: %q", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"coverage order", func(c *config.Config) { c.Coverage.Low = 0.9 }, "coverage.low"},
		{"detector command", func(c *config.Config) { c.Detector.Enabled = true }, "detector.command"},
		{"frames quality", func(c *config.Config) { c.Frames.JPEGQuality = 0 }, "frames.jpeg_quality"},
		{"bolt tiers", func(c *config.Config) { c.Tamper.Bolt.Suspected = 0.95 }, "tamper.bolt.suspected"},
		{"provider", func(c *config.Config) { c.LLM.Provider = "bogus" }, "llm.provider"},
		{"confidence levels", func(c *config.Config) { c.Confidence.LowBelow = 80 }, "confidence.low_below"},
		{"audio weight", func(c *config.Config) { c.Audio.HighBandWeight = 1.5 }, "audio.high_band_weight"},
		{"audio scale", func(c *config.Config) { c.Audio.RoughnessScale = 0 }, "audio.roughness_scale"},
		{"audio band order", func(c *config.Config) { c.Audio.MidBandHz = []float64{1200, 250} }, "audio.mid_band_hz"},
		{"audio band nyquist", func(c *config.Config) { c.Audio.HighBandHz = []float64{1200, 9000} }, "audio.high_band_hz"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.LLM.Provider = config.ProviderNone
			cfg.Paths.EvidenceDir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if decoded.Frames.MaxFrames != config.Default().Frames.MaxFrames {
		t.Fatalf("sample max_frames diverges from default: %d", decoded.Frames.MaxFrames)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.EvidenceDir = filepath.Join(base, "evidence")
	cfg.Paths.ReportDB = filepath.Join(base, "db", "reports.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{"work", "logs", "evidence", "db"} {
		if info, err := os.Stat(filepath.Join(base, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
