package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateFrames(); err != nil {
		return err
	}
	if err := c.validateCoverage(); err != nil {
		return err
	}
	if err := c.validateDamage(); err != nil {
		return err
	}
	if err := c.validateDetector(); err != nil {
		return err
	}
	if err := c.validateTamper(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateConfidence(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateEvidence(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateQuality() error {
	q := c.Quality
	if err := ensurePositiveMap(map[string]int{
		"quality.min_width":          q.MinWidth,
		"quality.min_height":         q.MinHeight,
		"quality.sample_stride":      q.SampleStride,
		"quality.max_samples":        q.MaxSamples,
		"quality.max_corners":        q.MaxCorners,
		"quality.min_tracked_points": q.MinTrackedPoints,
	}); err != nil {
		return err
	}
	if q.MinDurationSeconds < 0 {
		return errors.New("quality.min_duration_seconds must be >= 0")
	}
	if q.DarkMean >= q.BrightMean {
		return errors.New("quality.dark_mean must be lower than quality.bright_mean")
	}
	if q.ShakeMax <= 0 {
		return errors.New("quality.shake_max must be positive")
	}
	if q.CornerQuality <= 0 || q.CornerQuality >= 1 {
		return errors.New("quality.corner_quality must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateFrames() error {
	f := c.Frames
	if err := ensurePositiveMap(map[string]int{
		"frames.max_frames": f.MaxFrames,
		"frames.long_side":  f.LongSide,
		"frames.min_frames": f.MinFrames,
	}); err != nil {
		return err
	}
	if f.JPEGQuality < 1 || f.JPEGQuality > 100 {
		return errors.New("frames.jpeg_quality must be between 1 and 100")
	}
	if f.MinGapSeconds < 0 {
		return errors.New("frames.min_gap_seconds must be >= 0")
	}
	if f.FallbackFPS <= 0 {
		return errors.New("frames.fallback_fps must be positive")
	}
	return nil
}

func (c *Config) validateCoverage() error {
	cv := c.Coverage
	if cv.Grid < 1 {
		return errors.New("coverage.grid must be positive")
	}
	if cv.MinFrames < 2 {
		return errors.New("coverage.min_frames must be at least 2")
	}
	if err := ensureRatios(map[string]float64{
		"coverage.cell_active": cv.CellActive,
		"coverage.low":         cv.Low,
		"coverage.medium":      cv.Medium,
	}); err != nil {
		return err
	}
	if cv.Low > cv.Medium {
		return errors.New("coverage.low must not exceed coverage.medium")
	}
	return nil
}

func (c *Config) validateDamage() error {
	d := c.Damage
	if err := ensurePositiveMap(map[string]int{
		"damage.max_frames":           d.MaxFrames,
		"damage.max_findings":         d.MaxFindings,
		"damage.heuristic_top":        d.HeuristicTop,
		"damage.max_suspected_labels": d.MaxSuspectedLabels,
	}); err != nil {
		return err
	}
	if err := ensureRatios(map[string]float64{
		"damage.detector_min_confidence":    d.DetectorMinConfidence,
		"damage.detector_high_confidence":   d.DetectorHighConfidence,
		"damage.detector_medium_confidence": d.DetectorMediumConfidence,
		"damage.heuristic_high":             d.HeuristicHigh,
		"damage.heuristic_medium":           d.HeuristicMedium,
		"damage.scratch_weight":             d.ScratchWeight,
		"damage.dent_weight":                d.DentWeight,
		"damage.repaint_weight":             d.RepaintWeight,
	}); err != nil {
		return err
	}
	if d.HeuristicMedium > d.HeuristicHigh {
		return errors.New("damage.heuristic_medium must not exceed damage.heuristic_high")
	}
	if d.DetectorMediumConfidence > d.DetectorHighConfidence {
		return errors.New("damage.detector_medium_confidence must not exceed damage.detector_high_confidence")
	}
	if d.DetectorMediumCount > d.DetectorHighCount {
		return errors.New("damage.detector_medium_count must not exceed damage.detector_high_count")
	}
	return nil
}

func (c *Config) validateDetector() error {
	if !c.Detector.Enabled {
		return nil
	}
	if c.Detector.Command == "" {
		return errors.New("detector.command must be set when detector.enabled is true")
	}
	return ensureRatios(map[string]float64{
		"detector.confidence": c.Detector.Confidence,
		"detector.iou":        c.Detector.IoU,
	})
}

func (c *Config) validateTamper() error {
	b := c.Tamper.Bolt
	if b.MinArea <= 0 {
		return errors.New("tamper.bolt.min_area must be positive")
	}
	if b.MinAspect <= 0 || b.MinAspect >= b.MaxAspect {
		return errors.New("tamper.bolt.min_aspect must be positive and lower than tamper.bolt.max_aspect")
	}
	if b.MaxCandidates <= 0 {
		return errors.New("tamper.bolt.max_candidates must be positive")
	}
	if err := ensureRatios(map[string]float64{
		"tamper.bolt.max_area_ratio": b.MaxAreaRatio,
		"tamper.bolt.detected":       b.Detected,
		"tamper.bolt.suspected":      b.Suspected,
		"tamper.paint.detected":      c.Tamper.Paint.Detected,
		"tamper.paint.suspected":     c.Tamper.Paint.Suspected,
	}); err != nil {
		return err
	}
	if b.Suspected > b.Detected {
		return errors.New("tamper.bolt.suspected must not exceed tamper.bolt.detected")
	}
	if c.Tamper.Paint.Suspected > c.Tamper.Paint.Detected {
		return errors.New("tamper.paint.suspected must not exceed tamper.paint.detected")
	}
	return nil
}

func (c *Config) validateAudio() error {
	a := c.Audio
	if err := ensurePositiveMap(map[string]int{
		"audio.sample_rate":     a.SampleRate,
		"audio.timeout_seconds": a.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if a.MinSeconds <= 0 || a.MaxSeconds < a.MinSeconds {
		return errors.New("audio.max_seconds must be >= audio.min_seconds > 0")
	}
	if a.Medium > a.High {
		return errors.New("audio.medium must not exceed audio.high")
	}
	if err := ensureRatios(map[string]float64{
		"audio.clip_level":       a.ClipLevel,
		"audio.high_band_weight": a.HighBandWeight,
		"audio.roughness_weight": a.RoughnessWeight,
		"audio.clipping_weight":  a.ClippingWeight,
	}); err != nil {
		return err
	}
	scales := map[string]float64{
		"audio.high_band_scale": a.HighBandScale,
		"audio.roughness_scale": a.RoughnessScale,
		"audio.clipping_scale":  a.ClippingScale,
	}
	for _, key := range sortedKeys(scales) {
		if scales[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	bands := map[string][]float64{
		"audio.low_band_hz":  a.LowBandHz,
		"audio.mid_band_hz":  a.MidBandHz,
		"audio.high_band_hz": a.HighBandHz,
	}
	nyquist := float64(a.SampleRate) / 2
	for _, key := range sortedKeys(bands) {
		edges := bands[key]
		if len(edges) != 2 || edges[0] < 0 || edges[0] >= edges[1] || edges[1] > nyquist {
			return fmt.Errorf("%s must be [lo, hi] with 0 <= lo < hi <= sample_rate/2", key)
		}
	}
	return nil
}

func (c *Config) validateConfidence() error {
	cf := c.Confidence
	if cf.Base < 0 || cf.Base > 100 {
		return errors.New("confidence.base must be between 0 and 100")
	}
	if cf.LowBelow > cf.MediumBelow {
		return errors.New("confidence.low_below must not exceed confidence.medium_below")
	}
	if cf.MaxReasons <= 0 {
		return errors.New("confidence.max_reasons must be positive")
	}
	if cf.CoverageSevereBelow > cf.CoverageLowBelow || cf.CoverageLowBelow > cf.CoverageFairBelow {
		return errors.New("confidence coverage breakpoints must be ascending (severe <= low <= fair)")
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderNone:
		return nil
	case ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter:
	default:
		return fmt.Errorf("llm.provider must be one of auto, openai, anthropic, openrouter, none; got %q", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateEvidence() error {
	if c.Evidence.MaxImages < 0 {
		return errors.New("evidence.max_images must be >= 0")
	}
	if c.Evidence.LongSide <= 0 {
		return errors.New("evidence.long_side must be positive")
	}
	if c.Evidence.JPEGQuality < 1 || c.Evidence.JPEGQuality > 100 {
		return errors.New("evidence.jpeg_quality must be between 1 and 100")
	}
	if strings.TrimSpace(c.Paths.EvidenceDir) == "" {
		return errors.New("paths.evidence_dir must be set")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureRatios(values map[string]float64) error {
	for _, key := range sortedKeys(values) {
		if value := values[key]; value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
	}
	return nil
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
