package narrative_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carinspect/internal/confidence"
	"carinspect/internal/config"
	"carinspect/internal/coverage"
	"carinspect/internal/damage"
	"carinspect/internal/engineaudio"
	"carinspect/internal/narrative"
	"carinspect/internal/quality"
)

func heuristicInput() narrative.Input {
	return narrative.Input{
		VehicleType: "station wagon",
		Quality:     quality.Report{OK: true, DurationSeconds: 14, Width: 1280, Height: 720, Hints: []string{"Hold the phone steadier."}},
		Coverage:    coverage.Report{OK: true, CoverageRatio: 0.3, Hints: []string{"Coverage is low."}},
		Damage: damage.Result{
			OK:     true,
			Method: damage.MethodHeuristic,
			Summary: damage.Summary{
				Severity:   damage.SeverityLow,
				SignalsAvg: &damage.Signals{Scratch: 0.1234, Dent: 0.5, Repaint: 0},
			},
		},
		Audio:      &engineaudio.Report{OK: true, RiskLevel: engineaudio.RiskMedium, Hints: []string{"a1", "a2", "a3"}},
		Confidence: &confidence.Report{Score: 52, Level: confidence.LevelMedium},
	}
}

func llmConfig(provider, baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:        provider,
		APIKey:          "test-key",
		BaseURL:         baseURL,
		Model:           "test-model",
		TimeoutSeconds:  1,
		Temperature:     0.4,
		MaxOutputTokens: 420,
	}
}

func TestFallbackWithoutProvider(t *testing.T) {
	commentary := narrative.NewGenerator(nil, config.LLMConfig{}, nil).Generate(context.Background(), heuristicInput())
	if !commentary.OK || commentary.Method != narrative.MethodFallback {
		t.Fatalf("unexpected commentary: %+v", commentary)
	}
	text := commentary.Text
	for _, want := range []string{
		"for the Station Wagon",
		"Visual damage signal level: **LOW**",
		"Engine sound risk level: **MEDIUM**",
		"Report confidence: **MEDIUM** (Score: 52.0/100)",
		"- Scratch-like signal: 0.12 | Dent-like signal: 0.50 | Paint/tone inconsistency: 0.00",
		"- Hold the phone steadier.",
		"- Coverage is low.",
		"- a2",
		"**Recommended Next Steps**",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in fallback text:\n%s", want, text)
		}
	}
	if strings.Contains(text, "- a3") {
		t.Fatalf("expected audio hints capped at two:\n%s", text)
	}
	if !strings.HasSuffix(text, narrative.Disclaimer) {
		t.Fatalf("expected disclaimer at the end:\n%s", text)
	}
}

func TestFallbackDetectorLabelsAndEmptyRisks(t *testing.T) {
	in := narrative.Input{
		Damage: damage.Result{
			Method: damage.MethodDetector,
			Summary: damage.Summary{
				Severity:        damage.SeverityHigh,
				SuspectedLabels: []damage.LabelCount{{Label: "door_dent", Count: 4}, {Label: "scratch", Count: 2}},
			},
		},
		Audio: &engineaudio.Report{OK: true, Skipped: true, RiskLevel: engineaudio.RiskNone},
	}
	text := narrative.Fallback(in)
	if !strings.Contains(text, "Possible areas flagged by the model: Door Dent (x4), Scratch (x2)") {
		t.Fatalf("expected detector labels bullet:\n%s", text)
	}
	if strings.Contains(text, "Engine sound risk level") || strings.Contains(text, "Report confidence") {
		t.Fatalf("expected optional sentences omitted:\n%s", text)
	}

	empty := narrative.Fallback(narrative.Input{})
	if !strings.Contains(empty, "- (no notable warnings)") || !strings.Contains(empty, "**UNKNOWN**") {
		t.Fatalf("expected placeholder bullet and unknown severity:\n%s", empty)
	}
}

func TestGenerateTimeoutFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := llmConfig(config.ProviderOpenRouter, srv.URL)
	provider, err := narrative.NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider returned error: %v", err)
	}
	started := time.Now()
	commentary := narrative.NewGenerator(provider, cfg, nil).Generate(context.Background(), heuristicInput())
	if commentary.Method != narrative.MethodFallback || commentary.Text == "" {
		t.Fatalf("expected fallback commentary, got %+v", commentary)
	}
	if !strings.Contains(commentary.Text, narrative.Disclaimer) {
		t.Fatalf("expected disclaimer in fallback text")
	}
	if elapsed := time.Since(started); elapsed > 2500*time.Millisecond {
		t.Fatalf("expected timeout near 1s, took %s", elapsed)
	}
}

func TestGenerateOpenAIResponses(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"resp_1","object":"response","status":"completed","model":"test-model","output":[{"type":"message","id":"msg_1","role":"assistant","status":"completed","content":[{"type":"output_text","text":"Overall the car looks fine.","annotations":[]}]}]}`)
	}))
	defer srv.Close()

	cfg := llmConfig(config.ProviderOpenAI, srv.URL)
	provider, err := narrative.NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider returned error: %v", err)
	}
	commentary := narrative.NewGenerator(provider, cfg, nil).Generate(context.Background(), heuristicInput())
	if commentary.Method != narrative.MethodLLM || commentary.Provider != config.ProviderOpenAI {
		t.Fatalf("expected llm commentary, got %+v", commentary)
	}
	if !strings.HasPrefix(commentary.Text, "Overall the car looks fine.") || !strings.HasSuffix(commentary.Text, narrative.Disclaimer) {
		t.Fatalf("unexpected text: %q", commentary.Text)
	}
	if captured["model"] != "test-model" || captured["max_output_tokens"] != float64(420) {
		t.Fatalf("unexpected request payload: %v", captured)
	}
	if input, _ := captured["input"].(string); !strings.Contains(input, "Vehicle type: station wagon") {
		t.Fatalf("expected prompt as input, got %v", captured["input"])
	}
}

func TestGenerateAnthropicMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"test-model","content":[{"type":"text","text":"Looks fine.\n\n`+narrative.Disclaimer+`"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	defer srv.Close()

	cfg := llmConfig(config.ProviderAnthropic, srv.URL)
	provider, err := narrative.NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider returned error: %v", err)
	}
	commentary := narrative.NewGenerator(provider, cfg, nil).Generate(context.Background(), heuristicInput())
	if commentary.Method != narrative.MethodLLM {
		t.Fatalf("expected llm commentary, got %+v", commentary)
	}
	if strings.Count(commentary.Text, narrative.Disclaimer) != 1 {
		t.Fatalf("expected disclaimer exactly once: %q", commentary.Text)
	}
}

func TestGenerateServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	for _, provider := range []string{config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderOpenRouter} {
		cfg := llmConfig(provider, srv.URL)
		p, err := narrative.NewProvider(cfg)
		if err != nil {
			t.Fatalf("%s: NewProvider returned error: %v", provider, err)
		}
		if got := narrative.NewGenerator(p, cfg, nil).Generate(context.Background(), heuristicInput()); got.Method != narrative.MethodFallback {
			t.Fatalf("%s: expected fallback, got %+v", provider, got)
		}
	}
}

func TestNewProvider(t *testing.T) {
	if p, err := narrative.NewProvider(config.LLMConfig{Provider: config.ProviderNone}); p != nil || err != nil {
		t.Fatalf("expected nil provider for none, got %v %v", p, err)
	}
	if _, err := narrative.NewProvider(config.LLMConfig{Provider: config.ProviderOpenAI}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := narrative.NewProvider(config.LLMConfig{Provider: "bogus", APIKey: "k"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestBuildPromptEmbedsReports(t *testing.T) {
	prompt := narrative.BuildPrompt(heuristicInput())
	for _, want := range []string{
		"Scenario: pre-purchase",
		"- resolution: 1280x720",
		"- coverage_ratio: 0.30",
		"- method: heuristic",
		"- risk: medium",
		"- score: 52.0",
		"Detected Risk Signals",
		narrative.Disclaimer,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected %q in prompt:\n%s", want, prompt)
		}
	}
}
