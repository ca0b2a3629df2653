package damage

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"

	"carinspect/internal/config"
	"carinspect/internal/logging"
	"carinspect/internal/media/video"
)

// Inference methods.
const (
	MethodNone      = "none"
	MethodHeuristic = "heuristic"
	MethodDetector  = "detector"
)

// Severity levels.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

var suspectKeywords = []string{"scratch", "dent", "crack", "broken", "damage", "paint"}

// LabelCount is the number of detections for one suspect label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary aggregates findings across processed frames. Detector and
// heuristic modes fill different fields.
type Summary struct {
	Severity        string       `json:"severity"`
	FramesProcessed int          `json:"frames_processed"`
	TopConfidence   float64      `json:"top_confidence,omitempty"`
	SuspectedLabels []LabelCount `json:"suspected_labels,omitempty"`
	Score           float64      `json:"score,omitempty"`
	SignalsAvg      *Signals     `json:"signals_avg,omitempty"`
}

// Finding is one notable frame (heuristic) or detection (detector).
type Finding struct {
	Frame      string    `json:"frame"`
	Type       string    `json:"type"`
	Label      string    `json:"label,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Box        []float64 `json:"box,omitempty"`
	Signals    *Signals  `json:"signals,omitempty"`
	Score      float64   `json:"score,omitempty"`
}

// Result is the damage stage output.
type Result struct {
	OK       bool      `json:"ok"`
	Message  string    `json:"message"`
	Method   string    `json:"method"`
	Summary  Summary   `json:"summary"`
	Findings []Finding `json:"findings"`
}

// Engine scores frames with a detector when one is available and with
// heuristic signals otherwise.
type Engine struct {
	capability Capability
	cfg        config.Damage
	logger     *slog.Logger
}

// NewEngine returns an engine bound to a probed capability. A nil capability
// means heuristic mode.
func NewEngine(capability Capability, cfg config.Damage, logger *slog.Logger) *Engine {
	if capability == nil {
		capability = Unavailable{Reason: "no detector supplied"}
	}
	return &Engine{capability: capability, cfg: cfg, logger: logger}
}

// Method reports the mode the engine will try first.
func (e *Engine) Method() string {
	if _, ok := e.capability.(Available); ok {
		return MethodDetector
	}
	return MethodHeuristic
}

// Infer scores the frames that exist on disk, at most cfg.MaxFrames of them
// spread evenly across the sequence. A detector failure on any frame drops
// the whole run to heuristic mode.
func (e *Engine) Infer(ctx context.Context, framePaths []string) Result {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(e.logger, "damage"))
	existing := make([]string, 0, len(framePaths))
	for _, path := range framePaths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return Result{OK: false, Message: "No frames found for damage analysis.", Method: MethodNone, Findings: []Finding{}}
	}
	frames := spread(existing, e.cfg.MaxFrames)

	if available, ok := e.capability.(Available); ok {
		result, err := e.detect(ctx, available, frames)
		if err == nil {
			logger.Info("damage analysis complete",
				logging.String("method", result.Method),
				logging.String("severity", result.Summary.Severity),
				logging.Int("findings", len(result.Findings)),
			)
			return result
		}
		logging.WarnWithContext(logger, "detector failed", "detector_predict",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run the detector command by hand on one frame"),
			logging.String(logging.FieldImpact, "damage analysis uses heuristic mode"),
		)
	}

	result := e.heuristic(frames)
	logger.Info("damage analysis complete",
		logging.String("method", result.Method),
		logging.String("severity", result.Summary.Severity),
		logging.Float64("score", result.Summary.Score),
		logging.Int("frames", result.Summary.FramesProcessed),
	)
	return result
}

func (e *Engine) detect(ctx context.Context, available Available, frames []string) (Result, error) {
	minConf := max(e.cfg.DetectorMinConfidence, available.MinConfidence)
	counts := map[string]int{}
	var topConf float64
	findings := []Finding{}
	for _, frame := range frames {
		detections, err := available.Detector.Predict(ctx, frame)
		if err != nil {
			return Result{}, err
		}
		for _, det := range detections {
			topConf = max(topConf, det.Conf)
			counts[det.Label]++
			if det.Conf >= minConf {
				findings = append(findings, Finding{
					Frame:      frame,
					Type:       MethodDetector,
					Label:      det.Label,
					Confidence: det.Conf,
					Box:        det.Box,
				})
			}
		}
	}

	suspected := suspectLabels(counts, available.Labels)
	total := 0
	for _, lc := range suspected {
		total += lc.Count
	}
	severity := SeverityLow
	switch {
	case total >= e.cfg.DetectorHighCount || topConf >= e.cfg.DetectorHighConfidence:
		severity = SeverityHigh
	case total >= e.cfg.DetectorMediumCount || topConf >= e.cfg.DetectorMediumConfidence:
		severity = SeverityMedium
	}

	if len(suspected) > e.cfg.MaxSuspectedLabels {
		suspected = suspected[:e.cfg.MaxSuspectedLabels]
	}
	if len(findings) > e.cfg.MaxFindings {
		findings = findings[:e.cfg.MaxFindings]
	}
	return Result{
		OK:      true,
		Message: "Damage analysis complete (detector).",
		Method:  MethodDetector,
		Summary: Summary{
			Severity:        severity,
			FramesProcessed: len(frames),
			TopConfidence:   topConf,
			SuspectedLabels: suspected,
		},
		Findings: findings,
	}, nil
}

func (e *Engine) heuristic(frames []string) Result {
	type scored struct {
		frame   string
		signals Signals
		score   float64
	}
	var perFrame []scored
	var avg Signals
	for _, frame := range frames {
		img, err := video.OpenImage(frame)
		if err != nil {
			continue
		}
		sig := HeuristicSignals(img)
		perFrame = append(perFrame, scored{frame: frame, signals: sig, score: sig.Weighted(e.cfg)})
		avg.Scratch += sig.Scratch
		avg.Dent += sig.Dent
		avg.Repaint += sig.Repaint
	}
	if len(perFrame) == 0 {
		return Result{OK: false, Message: "No decodable frames for damage analysis.", Method: MethodNone, Findings: []Finding{}}
	}

	processed := len(perFrame)
	n := float64(processed)
	avg = Signals{Scratch: avg.Scratch / n, Dent: avg.Dent / n, Repaint: avg.Repaint / n}
	score := avg.Weighted(e.cfg)
	severity := SeverityLow
	switch {
	case score >= e.cfg.HeuristicHigh:
		severity = SeverityHigh
	case score >= e.cfg.HeuristicMedium:
		severity = SeverityMedium
	}

	sort.SliceStable(perFrame, func(i, j int) bool { return perFrame[i].score > perFrame[j].score })
	if len(perFrame) > e.cfg.HeuristicTop {
		perFrame = perFrame[:e.cfg.HeuristicTop]
	}
	findings := make([]Finding, 0, len(perFrame))
	for _, item := range perFrame {
		sig := item.signals
		findings = append(findings, Finding{Frame: item.frame, Type: MethodHeuristic, Signals: &sig, Score: item.score})
	}
	return Result{
		OK:      true,
		Message: "Damage analysis complete (heuristic).",
		Method:  MethodHeuristic,
		Summary: Summary{
			Severity:        severity,
			FramesProcessed: processed,
			Score:           score,
			SignalsAvg:      &avg,
		},
		Findings: findings,
	}
}

// suspectLabels keeps labels in the configured set or containing a damage
// keyword, most frequent first.
func suspectLabels(counts map[string]int, labels []string) []LabelCount {
	known := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		known[strings.ToLower(label)] = struct{}{}
	}
	out := []LabelCount{}
	for label, count := range counts {
		if isSuspect(strings.ToLower(label), known) {
			out = append(out, LabelCount{Label: label, Count: count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func isSuspect(label string, known map[string]struct{}) bool {
	if _, ok := known[label]; ok {
		return true
	}
	for _, keyword := range suspectKeywords {
		if strings.Contains(label, keyword) {
			return true
		}
	}
	return false
}

// spread picks at most n paths evenly across the sequence.
func spread(paths []string, n int) []string {
	if n <= 0 || len(paths) <= n {
		return paths
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, paths[i*len(paths)/n])
	}
	return out
}
