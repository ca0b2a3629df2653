package narrative

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"carinspect/internal/confidence"
	"carinspect/internal/config"
	"carinspect/internal/coverage"
	"carinspect/internal/damage"
	"carinspect/internal/engineaudio"
	"carinspect/internal/logging"
	"carinspect/internal/quality"
)

// Commentary methods.
const (
	MethodLLM      = "llm"
	MethodFallback = "fallback"
)

const defaultTimeout = 25 * time.Second

// Input bundles the structured reports and the vehicle metadata.
type Input struct {
	VehicleType string
	Scenario    string
	Quality     quality.Report
	Coverage    coverage.Report
	Damage      damage.Result
	Audio       *engineaudio.Report
	Confidence  *confidence.Report
}

// Commentary is the human-readable report text.
type Commentary struct {
	OK       bool   `json:"ok"`
	Method   string `json:"method"`
	Provider string `json:"provider,omitempty"`
	Text     string `json:"text"`
}

// Generator asks a provider for commentary and falls back to a fixed
// template on any failure.
type Generator struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewGenerator returns a generator. A nil provider always uses the template.
func NewGenerator(provider Provider, cfg config.LLMConfig, logger *slog.Logger) *Generator {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Generator{provider: provider, timeout: timeout, logger: logger}
}

// Generate always returns non-empty text ending in the disclaimer.
func (g *Generator) Generate(ctx context.Context, in Input) Commentary {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(g.logger, "narrative"))
	if g.provider == nil {
		logger.Debug("narrative method selected", logging.Args(logging.DecisionAttrs("narrative_method", MethodFallback, "no provider configured")...)...)
		return Commentary{OK: true, Method: MethodFallback, Text: Fallback(in)}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	started := time.Now()
	text, err := g.provider.Generate(callCtx, BuildPrompt(in))
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyText
	}
	if err != nil {
		logging.WarnWithContext(logger, "narrative generation failed", "narrative_generate",
			logging.Error(err),
			logging.String("provider", g.provider.Name()),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldErrorHint, "check llm credentials and provider reachability with carinspect status --check-llm"),
			logging.String(logging.FieldImpact, "fallback commentary used"),
		)
		return Commentary{OK: true, Method: MethodFallback, Text: Fallback(in)}
	}

	text = strings.TrimSpace(text)
	if !strings.Contains(text, Disclaimer) {
		text += "\n\n" + Disclaimer
	}
	logger.Info("narrative generated",
		logging.String("provider", g.provider.Name()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Commentary{OK: true, Method: MethodLLM, Provider: g.provider.Name(), Text: text}
}

func vehicleType(in Input) string {
	if v := strings.TrimSpace(in.VehicleType); v != "" {
		return v
	}
	return "car"
}

func scenario(in Input) string {
	if s := strings.TrimSpace(in.Scenario); s != "" {
		return s
	}
	return "pre-purchase"
}

func severity(in Input) string {
	if s := strings.TrimSpace(in.Damage.Summary.Severity); s != "" {
		return s
	}
	return "unknown"
}

// audioLevelOr returns the risk level of an analyzed clip, or fallback when
// audio was skipped or absent.
func audioLevelOr(in Input, fallback string) string {
	if a := in.Audio; a != nil && a.OK && !a.Skipped && a.RiskLevel != "" {
		return a.RiskLevel
	}
	return fallback
}
