package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carinspect/internal/config"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[coverage]\nlow = 0.9\nmedium = 0.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "coverage.low") {
		t.Fatalf("expected coverage validation error, got %v", err)
	}
}

func TestConfigShowRedactsAPIKey(t *testing.T) {
	env := setupCLITestEnv(t, func(cfg *config.Config) {
		cfg.LLM.Provider = config.ProviderOpenAI
		cfg.LLM.APIKey = "sk-secret"
	})

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "sk-secret") {
		t.Fatalf("expected api key to be redacted, got %q", out)
	}
	requireContains(t, out, "[frames]")

	out, _, err = runCLI(t, []string{"config", "show", "-o", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("config show json: %v", err)
	}
	var tree map[string]map[string]any
	if err := json.Unmarshal([]byte(out), &tree); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if tree["llm"]["api_key"] != "<redacted>" || tree["llm"]["provider"] != "openai" {
		t.Fatalf("unexpected llm section: %v", tree["llm"])
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"config", "validate", "-o", "xml"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--output") {
		t.Fatalf("expected output format error, got %v", err)
	}
}
