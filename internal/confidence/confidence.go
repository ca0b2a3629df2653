package confidence

import (
	"math"

	"carinspect/internal/config"
	"carinspect/internal/coverage"
	"carinspect/internal/damage"
	"carinspect/internal/engineaudio"
	"carinspect/internal/quality"
)

// Confidence levels, ordered.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Inputs are the upstream reports the score is built from. Audio is nil when
// no clip was analyzed.
type Inputs struct {
	Quality      quality.Report
	Coverage     coverage.Report
	DamageMethod string
	Audio        *engineaudio.Report
}

// Adjustment is one term applied to the base score.
type Adjustment struct {
	Term  string  `json:"term"`
	Delta float64 `json:"delta"`
}

// Report is the trust placed in the generated report, not a statement about
// the vehicle's condition.
type Report struct {
	OK          bool         `json:"ok"`
	Score       float64      `json:"confidence_score"`
	Level       string       `json:"confidence_level"`
	Reasons     []string     `json:"reasons"`
	Adjustments []Adjustment `json:"adjustments"`
}

// Aggregate starts from cfg.Base, applies one penalty per raised quality
// flag, a coverage tier penalty, an audio clipping penalty, and a damage
// method adjustment, then clamps to [0,100] and rounds to one decimal.
func Aggregate(in Inputs, cfg config.Confidence) Report {
	score := cfg.Base
	adjustments := []Adjustment{}
	apply := func(term string, delta float64) {
		score += delta
		adjustments = append(adjustments, Adjustment{Term: term, Delta: delta})
	}

	q := in.Quality
	for _, flag := range []struct {
		term    string
		set     bool
		penalty float64
	}{
		{"too_short", q.TooShort, cfg.ShortPenalty},
		{"too_low_res", q.TooLowRes, cfg.LowResPenalty},
		{"too_dark", q.TooDark, cfg.DarkPenalty},
		{"too_bright", q.TooBright, cfg.BrightPenalty},
		{"too_blurry", q.TooBlurry, cfg.BlurryPenalty},
		{"too_shaky", q.TooShaky, cfg.ShakyPenalty},
	} {
		if flag.set {
			apply(flag.term, -flag.penalty)
		}
	}

	ratio := in.Coverage.CoverageRatio
	switch {
	case ratio < cfg.CoverageSevereBelow:
		apply("coverage_severe", -cfg.CoverageSeverePenalty)
	case ratio < cfg.CoverageLowBelow:
		apply("coverage_low", -cfg.CoverageLowPenalty)
	case ratio < cfg.CoverageFairBelow:
		apply("coverage_fair", -cfg.CoverageFairPenalty)
	}

	if a := in.Audio; a != nil && a.OK && !a.Skipped && a.Signals.ClippingRatio > cfg.AudioClipRatio {
		apply("audio_clipping", -cfg.AudioClipPenalty)
	}

	switch in.DamageMethod {
	case damage.MethodDetector:
		apply("method_detector", cfg.DetectorBonus)
	case damage.MethodHeuristic:
		apply("method_heuristic", -cfg.HeuristicPenalty)
	default:
		apply("method_none", -cfg.NoMethodPenalty)
	}

	score = math.Round(math.Max(0, math.Min(100, score))*10) / 10

	var reasons []string
	reasons = append(reasons, q.Hints...)
	reasons = append(reasons, in.Coverage.Hints...)
	if in.Audio != nil {
		reasons = append(reasons, in.Audio.Hints...)
	}
	if len(reasons) > cfg.MaxReasons {
		reasons = reasons[:cfg.MaxReasons]
	}
	if reasons == nil {
		reasons = []string{}
	}

	return Report{OK: true, Score: score, Level: LevelFor(score, cfg), Reasons: reasons, Adjustments: adjustments}
}

// LevelFor maps a score to its level; it is monotonic in score.
func LevelFor(score float64, cfg config.Confidence) string {
	switch {
	case score < cfg.LowBelow:
		return LevelLow
	case score < cfg.MediumBelow:
		return LevelMedium
	default:
		return LevelHigh
	}
}
