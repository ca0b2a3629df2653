package config

// Narrative providers.
const (
	ProviderAuto       = "auto"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
	ProviderNone       = "none"
)

const (
	defaultConfigPath           = "~/.config/carinspect/config.toml"
	defaultWorkDir              = "~/.local/share/carinspect/work"
	defaultLogDir               = "~/.local/share/carinspect/logs"
	defaultReportDB             = "~/.local/share/carinspect/reports.db"
	defaultEvidenceDir          = "~/.local/share/carinspect/evidence"
	defaultPublicEvidencePrefix = "/analysis_frames"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultOpenAIModel          = "gpt-4.1-mini"
	defaultAnthropicModel       = "claude-3-5-haiku-latest"
	defaultOpenRouterModel      = "openai/gpt-4.1-mini"
	defaultOpenRouterBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMTitle             = "carinspect narrative"
	defaultLLMTimeoutSeconds    = 25
	defaultLLMTemperature       = 0.4
	defaultLLMMaxOutputTokens   = 420
	defaultDetectorTimeout      = 60
	defaultAudioSampleRate      = 16000
	defaultAudioTimeoutSeconds  = 40
)

// DefaultDamageLabels lists detector classes that count as suspect damage.
var DefaultDamageLabels = []string{
	"scratch", "dent", "crack", "broken", "damage", "bumper_damage", "door_dent",
	"headlight_broken", "taillight_broken", "paint_peel",
}

// Default returns a Config populated with calibrated defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:              defaultWorkDir,
			LogDir:               defaultLogDir,
			ReportDB:             defaultReportDB,
			EvidenceDir:          defaultEvidenceDir,
			PublicEvidencePrefix: defaultPublicEvidencePrefix,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Quality: Quality{
			MinDurationSeconds: 10,
			MinWidth:           720,
			MinHeight:          720,
			SampleStride:       7,
			MaxSamples:         140,
			DarkMean:           60,
			DarkP90:            90,
			BrightMean:         200,
			BrightP10:          160,
			BlurMean:           80,
			BlurP10:            40,
			ShakeMax:           8.0,
			MaxCorners:         200,
			CornerQuality:      0.01,
			CornerMinDistance:  7,
			MinTrackedPoints:   10,
		},
		Frames: Frames{
			MaxFrames:     36,
			MinGapSeconds: 0.4,
			LongSide:      1280,
			JPEGQuality:   88,
			MinFrames:     8,
			FallbackFPS:   25,
		},
		Coverage: Coverage{
			Grid:          6,
			MinFrames:     6,
			DiffThreshold: 18,
			CellActive:    0.03,
			Low:           0.45,
			Medium:        0.65,
		},
		Damage: Damage{
			MaxFrames:                28,
			MaxFindings:              40,
			HeuristicTop:             10,
			DetectorMinConfidence:    0.45,
			DetectorHighCount:        6,
			DetectorHighConfidence:   0.75,
			DetectorMediumCount:      3,
			DetectorMediumConfidence: 0.60,
			MaxSuspectedLabels:       6,
			ScratchWeight:            0.45,
			DentWeight:               0.35,
			RepaintWeight:            0.20,
			HeuristicHigh:            0.62,
			HeuristicMedium:          0.42,
		},
		Detector: Detector{
			Confidence:     0.25,
			IoU:            0.45,
			TimeoutSeconds: defaultDetectorTimeout,
			Labels:         append([]string(nil), DefaultDamageLabels...),
		},
		Tamper: Tamper{
			Bolt: Bolt{
				MinArea:          120,
				MaxAreaRatio:     0.12,
				MinAspect:        0.55,
				MaxAspect:        1.8,
				MaxCandidates:    8,
				PadRatio:         0.25,
				ToolMarkWeight:   0.6,
				PaintCrackWeight: 0.4,
				Detected:         0.80,
				Suspected:        0.62,
			},
			Paint: Paint{
				AWeight:       0.22,
				BWeight:       0.22,
				TextureWeight: 0.30,
				EdgeWeight:    0.26,
				Detected:      0.78,
				Suspected:     0.62,
			},
		},
		Audio: Audio{
			SampleRate:      defaultAudioSampleRate,
			MaxSeconds:      30,
			MinSeconds:      3,
			TimeoutSeconds:  defaultAudioTimeoutSeconds,
			High:            0.65,
			Medium:          0.40,
			ClipHint:        0.02,
			HighBandHint:    0.30,
			RoughnessHint:   0.035,
			ClipLevel:       0.98,
			HighBandWeight:  0.45,
			HighBandOffset:  0.18,
			HighBandScale:   0.20,
			RoughnessWeight: 0.35,
			RoughnessOffset: 0.020,
			RoughnessScale:  0.020,
			ClippingWeight:  0.20,
			ClippingOffset:  0.01,
			ClippingScale:   0.05,
			LowBandHz:       []float64{40, 250},
			MidBandHz:       []float64{250, 1200},
			HighBandHz:      []float64{1200, 5000},
		},
		Confidence: Confidence{
			Base:                  78,
			ShortPenalty:          18,
			LowResPenalty:         14,
			DarkPenalty:           10,
			BrightPenalty:         8,
			BlurryPenalty:         16,
			ShakyPenalty:          10,
			CoverageSevereBelow:   0.35,
			CoverageSeverePenalty: 22,
			CoverageLowBelow:      0.55,
			CoverageLowPenalty:    12,
			CoverageFairBelow:     0.70,
			CoverageFairPenalty:   6,
			AudioClipRatio:        0.02,
			AudioClipPenalty:      8,
			DetectorBonus:         6,
			HeuristicPenalty:      4,
			NoMethodPenalty:       10,
			LowBelow:              45,
			MediumBelow:           70,
			MaxReasons:            8,
		},
		LLM: LLM{
			Provider:        ProviderAuto,
			Title:           defaultLLMTitle,
			TimeoutSeconds:  defaultLLMTimeoutSeconds,
			Temperature:     defaultLLMTemperature,
			MaxOutputTokens: defaultLLMMaxOutputTokens,
		},
		Evidence: Evidence{
			MaxImages:   4,
			LongSide:    960,
			JPEGQuality: 85,
			Annotate:    true,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
	}
}
