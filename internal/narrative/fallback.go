package narrative

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"carinspect/internal/damage"
)

const maxRiskBullets = 8

var nextSteps = []string{
	"Check the flagged areas up close in daylight at the vehicle (door sills, bumper corners, fenders, roof).",
	"Record 5-10 seconds of idle engine sound with the hood open (combustion engines only).",
	"Before buying, always get a professional inspection plus an OBD and chassis check.",
}

// Fallback renders the deterministic commentary used whenever no provider
// answer is available.
func Fallback(in Input) string {
	title := cases.Title(language.English)
	var overview []string
	overview = append(overview, fmt.Sprintf(
		"This preliminary analysis extracts visual risk signals from the uploaded media for the %s and, where applicable, adds an engine sound risk assessment. Visual damage signal level: **%s**.",
		title.String(vehicleType(in)), strings.ToUpper(severity(in)),
	))
	if level := audioLevelOr(in, ""); level != "" {
		overview = append(overview, fmt.Sprintf("Engine sound risk level: **%s** (not a definitive diagnosis).", strings.ToUpper(level)))
	}
	if in.Confidence != nil && in.Confidence.Level != "" {
		overview = append(overview, fmt.Sprintf("Report confidence: **%s** (Score: %.1f/100).", strings.ToUpper(in.Confidence.Level), in.Confidence.Score))
	}

	var risks []string
	summary := in.Damage.Summary
	if in.Damage.Method == damage.MethodDetector {
		if labels := summary.SuspectedLabels; len(labels) > 0 {
			parts := make([]string, 0, 5)
			for _, lc := range labels[:min(5, len(labels))] {
				parts = append(parts, fmt.Sprintf("%s (x%d)", title.String(strings.ReplaceAll(lc.Label, "_", " ")), lc.Count))
			}
			risks = append(risks, "Possible areas flagged by the model: "+strings.Join(parts, ", "))
		}
	} else if sig := summary.SignalsAvg; sig != nil {
		risks = append(risks, fmt.Sprintf("Scratch-like signal: %.2f | Dent-like signal: %.2f | Paint/tone inconsistency: %.2f", sig.Scratch, sig.Dent, sig.Repaint))
	}
	risks = append(risks, firstN(in.Quality.Hints, 3)...)
	risks = append(risks, firstN(in.Coverage.Hints, 3)...)
	if in.Audio != nil {
		risks = append(risks, firstN(in.Audio.Hints, 2)...)
	}

	var b strings.Builder
	b.WriteString(strings.Join(overview, "\n"))
	b.WriteString("\n\n**Detected Risk Signals**\n")
	b.WriteString(bulletify(risks, maxRiskBullets))
	b.WriteString("\n\n**Recommended Next Steps**\n")
	b.WriteString(bulletify(nextSteps, 6))
	b.WriteString("\n\n")
	b.WriteString(Disclaimer)
	return b.String()
}

func bulletify(items []string, limit int) string {
	var lines []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lines = append(lines, "- "+item)
		if len(lines) == limit {
			break
		}
	}
	if len(lines) == 0 {
		return "- (no notable warnings)"
	}
	return strings.Join(lines, "\n")
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
