package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working, log, and persistence locations.
type Paths struct {
	WorkDir              string `toml:"work_dir"`
	LogDir               string `toml:"log_dir"`
	ReportDB             string `toml:"report_db"`
	EvidenceDir          string `toml:"evidence_dir"`
	PublicEvidencePrefix string `toml:"public_evidence_prefix"`
}

// Tools names the external media binaries.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Quality holds capture quality gate thresholds.
type Quality struct {
	MinDurationSeconds float64 `toml:"min_duration_seconds"`
	MinWidth           int     `toml:"min_width"`
	MinHeight          int     `toml:"min_height"`
	SampleStride       int     `toml:"sample_stride"`
	MaxSamples         int     `toml:"max_samples"`

	// Exposure: mean luma and 10th/90th percentiles on a 0-255 scale.
	DarkMean   float64 `toml:"dark_mean"`
	DarkP90    float64 `toml:"dark_p90"`
	BrightMean float64 `toml:"bright_mean"`
	BrightP10  float64 `toml:"bright_p10"`

	// Sharpness: Laplacian variance mean and 10th percentile.
	BlurMean float64 `toml:"blur_mean"`
	BlurP10  float64 `toml:"blur_p10"`

	// ShakeMax is the dominant-motion magnitude in pixels per sampled pair.
	ShakeMax          float64 `toml:"shake_max"`
	MaxCorners        int     `toml:"max_corners"`
	CornerQuality     float64 `toml:"corner_quality"`
	CornerMinDistance int     `toml:"corner_min_distance"`
	MinTrackedPoints  int     `toml:"min_tracked_points"`
}

// Frames configures still extraction.
type Frames struct {
	MaxFrames     int     `toml:"max_frames"`
	MinGapSeconds float64 `toml:"min_gap_seconds"`
	LongSide      int     `toml:"long_side"`
	JPEGQuality   int     `toml:"jpeg_quality"`
	MinFrames     int     `toml:"min_frames"`
	FallbackFPS   float64 `toml:"fallback_fps"`
}

// Coverage configures the grid motion coverage estimator.
type Coverage struct {
	Grid          int     `toml:"grid"`
	MinFrames     int     `toml:"min_frames"`
	DiffThreshold float64 `toml:"diff_threshold"`
	CellActive    float64 `toml:"cell_active"`
	Low           float64 `toml:"low"`
	Medium        float64 `toml:"medium"`
}

// Damage configures the damage inference engine in both modes.
type Damage struct {
	MaxFrames    int `toml:"max_frames"`
	MaxFindings  int `toml:"max_findings"`
	HeuristicTop int `toml:"heuristic_top"`

	DetectorMinConfidence    float64 `toml:"detector_min_confidence"`
	DetectorHighCount        int     `toml:"detector_high_count"`
	DetectorHighConfidence   float64 `toml:"detector_high_confidence"`
	DetectorMediumCount      int     `toml:"detector_medium_count"`
	DetectorMediumConfidence float64 `toml:"detector_medium_confidence"`
	MaxSuspectedLabels       int     `toml:"max_suspected_labels"`

	ScratchWeight   float64 `toml:"scratch_weight"`
	DentWeight      float64 `toml:"dent_weight"`
	RepaintWeight   float64 `toml:"repaint_weight"`
	HeuristicHigh   float64 `toml:"heuristic_high"`
	HeuristicMedium float64 `toml:"heuristic_medium"`
}

// Detector configures the optional object-detection capability. The command
// receives {model}, {image}, {conf}, and {iou} placeholders and must print a
// JSON array of {label, conf, box} objects.
type Detector struct {
	Enabled        bool     `toml:"enabled"`
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	ModelPath      string   `toml:"model_path"`
	Confidence     float64  `toml:"confidence"`
	IoU            float64  `toml:"iou"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Labels         []string `toml:"labels"`
}

// Bolt configures the fastener tamper check.
type Bolt struct {
	MinArea          float64 `toml:"min_area"`
	MaxAreaRatio     float64 `toml:"max_area_ratio"`
	MinAspect        float64 `toml:"min_aspect"`
	MaxAspect        float64 `toml:"max_aspect"`
	MaxCandidates    int     `toml:"max_candidates"`
	PadRatio         float64 `toml:"pad_ratio"`
	ToolMarkWeight   float64 `toml:"tool_mark_weight"`
	PaintCrackWeight float64 `toml:"paint_crack_weight"`
	Detected         float64 `toml:"detected"`
	Suspected        float64 `toml:"suspected"`
}

// Paint configures the panel repaint check.
type Paint struct {
	AWeight       float64 `toml:"a_weight"`
	BWeight       float64 `toml:"b_weight"`
	TextureWeight float64 `toml:"texture_weight"`
	EdgeWeight    float64 `toml:"edge_weight"`
	Detected      float64 `toml:"detected"`
	Suspected     float64 `toml:"suspected"`
}

// Tamper groups the single-image repair heuristics.
type Tamper struct {
	Bolt  Bolt  `toml:"bolt"`
	Paint Paint `toml:"paint"`
}

// Audio configures the engine audio analyzer. Each risk term is
// clip01((value - offset) / scale) * weight; band edges are [lo, hi] in Hz.
type Audio struct {
	SampleRate     int     `toml:"sample_rate"`
	MaxSeconds     float64 `toml:"max_seconds"`
	MinSeconds     float64 `toml:"min_seconds"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	High           float64 `toml:"high"`
	Medium         float64 `toml:"medium"`
	ClipHint       float64 `toml:"clip_hint"`
	HighBandHint   float64 `toml:"high_band_hint"`
	RoughnessHint  float64 `toml:"roughness_hint"`

	ClipLevel float64 `toml:"clip_level"`

	HighBandWeight  float64 `toml:"high_band_weight"`
	HighBandOffset  float64 `toml:"high_band_offset"`
	HighBandScale   float64 `toml:"high_band_scale"`
	RoughnessWeight float64 `toml:"roughness_weight"`
	RoughnessOffset float64 `toml:"roughness_offset"`
	RoughnessScale  float64 `toml:"roughness_scale"`
	ClippingWeight  float64 `toml:"clipping_weight"`
	ClippingOffset  float64 `toml:"clipping_offset"`
	ClippingScale   float64 `toml:"clipping_scale"`

	LowBandHz  []float64 `toml:"low_band_hz"`
	MidBandHz  []float64 `toml:"mid_band_hz"`
	HighBandHz []float64 `toml:"high_band_hz"`
}

// Confidence holds report-confidence penalties and level breakpoints.
type Confidence struct {
	Base float64 `toml:"base"`

	ShortPenalty  float64 `toml:"short_penalty"`
	LowResPenalty float64 `toml:"low_res_penalty"`
	DarkPenalty   float64 `toml:"dark_penalty"`
	BrightPenalty float64 `toml:"bright_penalty"`
	BlurryPenalty float64 `toml:"blurry_penalty"`
	ShakyPenalty  float64 `toml:"shaky_penalty"`

	CoverageSevereBelow   float64 `toml:"coverage_severe_below"`
	CoverageSeverePenalty float64 `toml:"coverage_severe_penalty"`
	CoverageLowBelow      float64 `toml:"coverage_low_below"`
	CoverageLowPenalty    float64 `toml:"coverage_low_penalty"`
	CoverageFairBelow     float64 `toml:"coverage_fair_below"`
	CoverageFairPenalty   float64 `toml:"coverage_fair_penalty"`

	AudioClipRatio   float64 `toml:"audio_clip_ratio"`
	AudioClipPenalty float64 `toml:"audio_clip_penalty"`

	DetectorBonus    float64 `toml:"detector_bonus"`
	HeuristicPenalty float64 `toml:"heuristic_penalty"`
	NoMethodPenalty  float64 `toml:"no_method_penalty"`

	LowBelow    float64 `toml:"low_below"`
	MediumBelow float64 `toml:"medium_below"`
	MaxReasons  int     `toml:"max_reasons"`
}

// LLM contains narrative provider connection settings.
type LLM struct {
	Provider        string  `toml:"provider"`
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	Model           string  `toml:"model"`
	Referer         string  `toml:"referer"`
	Title           string  `toml:"title"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
	Temperature     float64 `toml:"temperature"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
}

// Evidence configures suspicious frame thumbnails.
type Evidence struct {
	MaxImages   int  `toml:"max_images"`
	LongSide    int  `toml:"long_side"`
	JPEGQuality int  `toml:"jpeg_quality"`
	Annotate    bool `toml:"annotate"`
}

// Notifications configures ntfy run notifications. An empty topic disables
// them.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	OnlyConcerns   bool   `toml:"only_concerns"`
}

// Config encapsulates all configuration values for carinspect.
//
// Configuration sections by subsystem:
//   - Paths: work, log, evidence directories and the report database
//   - Tools: ffmpeg/ffprobe binaries
//   - Logging: log format and level
//   - Quality, Frames, Coverage: capture gating and sampling
//   - Damage, Detector, Tamper: visual inference
//   - Audio: engine sound analysis
//   - Confidence: report-confidence scoring
//   - LLM: narrative provider settings
//   - Evidence: suspicious frame thumbnails
//   - Notifications: ntfy run notifications
type Config struct {
	Paths      Paths      `toml:"paths"`
	Tools      Tools      `toml:"tools"`
	Logging    Logging    `toml:"logging"`
	Quality    Quality    `toml:"quality"`
	Frames     Frames     `toml:"frames"`
	Coverage   Coverage   `toml:"coverage"`
	Damage     Damage     `toml:"damage"`
	Detector   Detector   `toml:"detector"`
	Tamper     Tamper     `toml:"tamper"`
	Audio      Audio      `toml:"audio"`
	Confidence Confidence `toml:"confidence"`
	LLM        LLM        `toml:"llm"`
	Evidence   Evidence   `toml:"evidence"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("carinspect.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, log, and evidence directories plus the
// parent of the report database.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.EvidenceDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if db := strings.TrimSpace(c.Paths.ReportDB); db != "" {
		if err := os.MkdirAll(filepath.Dir(db), 0o755); err != nil {
			return fmt.Errorf("create report db directory: %w", err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for decoding and transcoding.
func (c *Config) FFmpegBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFmpeg) == "" {
		return "ffmpeg"
	}
	return strings.TrimSpace(c.Tools.FFmpeg)
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFprobe) == "" {
		return "ffprobe"
	}
	return strings.TrimSpace(c.Tools.FFprobe)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved narrative provider settings.
type LLMConfig struct {
	Provider        string
	APIKey          string
	BaseURL         string
	Model           string
	Referer         string
	Title           string
	TimeoutSeconds  int
	Temperature     float64
	MaxOutputTokens int
}

// GetLLM returns the narrative provider settings with provider-specific
// defaults applied.
func (c *Config) GetLLM() LLMConfig {
	cfg := LLMConfig{
		Provider:        strings.ToLower(strings.TrimSpace(c.LLM.Provider)),
		APIKey:          strings.TrimSpace(c.LLM.APIKey),
		BaseURL:         strings.TrimSpace(c.LLM.BaseURL),
		Model:           strings.TrimSpace(c.LLM.Model),
		Referer:         strings.TrimSpace(c.LLM.Referer),
		Title:           strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds:  c.LLM.TimeoutSeconds,
		Temperature:     c.LLM.Temperature,
		MaxOutputTokens: c.LLM.MaxOutputTokens,
	}
	if cfg.Model == "" {
		cfg.Model = defaultModelFor(cfg.Provider)
	}
	return cfg
}

func defaultModelFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return defaultOpenAIModel
	case ProviderAnthropic:
		return defaultAnthropicModel
	case ProviderOpenRouter:
		return defaultOpenRouterModel
	default:
		return ""
	}
}
