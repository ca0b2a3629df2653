package config

import (
	"fmt"
	"os"
	"strings"
)

var providerKeyEnv = map[string]string{
	ProviderOpenAI:     "OPENAI_API_KEY",
	ProviderAnthropic:  "ANTHROPIC_API_KEY",
	ProviderOpenRouter: "OPENROUTER_API_KEY",
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeLogging()
	if err := c.normalizeDetector(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ReportDB, err = expandPath(c.Paths.ReportDB); err != nil {
		return fmt.Errorf("paths.report_db: %w", err)
	}
	if strings.TrimSpace(c.Paths.EvidenceDir) == "" {
		c.Paths.EvidenceDir = defaultEvidenceDir
	}
	if c.Paths.EvidenceDir, err = expandPath(c.Paths.EvidenceDir); err != nil {
		return fmt.Errorf("paths.evidence_dir: %w", err)
	}
	prefix := strings.TrimSpace(c.Paths.PublicEvidencePrefix)
	if prefix == "" {
		prefix = defaultPublicEvidencePrefix
	}
	c.Paths.PublicEvidencePrefix = "/" + strings.Trim(prefix, "/")
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = "ffmpeg"
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = "ffprobe"
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeDetector() error {
	c.Detector.Command = strings.TrimSpace(c.Detector.Command)
	c.Detector.ModelPath = strings.TrimSpace(c.Detector.ModelPath)
	if c.Detector.ModelPath == "" {
		if value, ok := os.LookupEnv("CARINSPECT_DETECTOR_MODEL"); ok {
			c.Detector.ModelPath = strings.TrimSpace(value)
		}
	}
	if c.Detector.ModelPath != "" {
		expanded, err := expandPath(c.Detector.ModelPath)
		if err != nil {
			return fmt.Errorf("detector.model_path: %w", err)
		}
		c.Detector.ModelPath = expanded
	}
	if c.Detector.TimeoutSeconds <= 0 {
		c.Detector.TimeoutSeconds = defaultDetectorTimeout
	}

	labels := make([]string, 0, len(c.Detector.Labels))
	seen := make(map[string]struct{}, len(c.Detector.Labels))
	for _, label := range c.Detector.Labels {
		normalized := strings.ToLower(strings.TrimSpace(label))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		labels = append(labels, normalized)
	}
	if len(labels) == 0 {
		labels = append(labels, DefaultDamageLabels...)
	}
	c.Detector.Labels = labels
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderAuto
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)

	if c.LLM.Provider == ProviderAuto {
		c.LLM.Provider = ProviderNone
		for _, provider := range []string{ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter} {
			if value, ok := os.LookupEnv(providerKeyEnv[provider]); ok && strings.TrimSpace(value) != "" {
				c.LLM.Provider = provider
				if c.LLM.APIKey == "" {
					c.LLM.APIKey = strings.TrimSpace(value)
				}
				break
			}
		}
	} else if c.LLM.APIKey == "" {
		if env, ok := providerKeyEnv[c.LLM.Provider]; ok {
			if value, ok := os.LookupEnv(env); ok {
				c.LLM.APIKey = strings.TrimSpace(value)
			}
		}
	}

	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" && c.LLM.Provider == ProviderOpenAI {
		if value, ok := os.LookupEnv("OPENAI_MODEL"); ok {
			c.LLM.Model = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" && c.LLM.Provider == ProviderOpenRouter {
		c.LLM.BaseURL = defaultOpenRouterBaseURL
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxOutputTokens <= 0 {
		c.LLM.MaxOutputTokens = defaultLLMMaxOutputTokens
	}
}
