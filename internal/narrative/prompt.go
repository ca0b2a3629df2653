package narrative

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Disclaimer closes every commentary, generated or fallback.
const Disclaimer = "Note: This report does not replace a professional inspection; it is for preliminary information only."

// SystemPrompt frames the assistant for every provider. Keep the output
// format in BuildPrompt in sync with the fallback layout.
const SystemPrompt = `You are a vehicle pre-inspection assistant. Write a professional, clear report commentary that a buyer can act on.
Be short, precise, and evidence based. Never claim a definitive diagnosis. Always suggest next steps.`

// BuildPrompt embeds every upstream value into the fixed prompt template.
func BuildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vehicle type: %s\n", vehicleType(in))
	fmt.Fprintf(&b, "Scenario: %s\n\n", scenario(in))

	b.WriteString("Video quality:\n")
	fmt.Fprintf(&b, "- ok: %t\n", in.Quality.OK)
	fmt.Fprintf(&b, "- duration (s): %.1f\n", in.Quality.DurationSeconds)
	fmt.Fprintf(&b, "- resolution: %dx%d\n", in.Quality.Width, in.Quality.Height)
	fmt.Fprintf(&b, "- hints: %s\n\n", listOrNone(in.Quality.Hints))

	b.WriteString("Coverage:\n")
	fmt.Fprintf(&b, "- coverage_ratio: %.2f\n", in.Coverage.CoverageRatio)
	fmt.Fprintf(&b, "- hints: %s\n\n", listOrNone(in.Coverage.Hints))

	b.WriteString("Visual damage:\n")
	fmt.Fprintf(&b, "- method: %s\n", in.Damage.Method)
	fmt.Fprintf(&b, "- severity: %s\n", severity(in))
	summary, _ := json.Marshal(in.Damage.Summary)
	fmt.Fprintf(&b, "- summary: %s\n\n", summary)

	b.WriteString("Engine sound:\n")
	fmt.Fprintf(&b, "- risk: %s\n", audioLevelOr(in, "not analyzed"))
	var audioHints []string
	if in.Audio != nil {
		audioHints = in.Audio.Hints
	}
	fmt.Fprintf(&b, "- hints: %s\n\n", listOrNone(audioHints))

	b.WriteString("Report confidence:\n")
	if in.Confidence != nil {
		fmt.Fprintf(&b, "- score: %.1f\n", in.Confidence.Score)
		fmt.Fprintf(&b, "- level: %s\n\n", in.Confidence.Level)
	} else {
		b.WriteString("- score: n/a\n- level: n/a\n\n")
	}

	b.WriteString("Output format:\n")
	b.WriteString("1) A 3-5 sentence overall assessment\n")
	b.WriteString("2) Bullet points under \"Detected Risk Signals\"\n")
	b.WriteString("3) Bullet points under \"Recommended Next Steps\"\n")
	fmt.Fprintf(&b, "4) End with exactly one line: %q", Disclaimer)
	return b.String()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, "; ")
}
