package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"carinspect/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll checks the configured directories and the detector. The narrative
// provider is only contacted through CheckLLM.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckDirectoryAccess("Evidence directory", cfg.Paths.EvidenceDir))
	if db := strings.TrimSpace(cfg.Paths.ReportDB); db != "" {
		results = append(results, CheckDirectoryAccess("Report database directory", filepath.Dir(db)))
	}
	results = append(results, CheckDetector(ctx, cfg.Detector))
	return results
}
