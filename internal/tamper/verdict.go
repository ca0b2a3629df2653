package tamper

// Verdict is the three-tier outcome shared by both checks.
type Verdict string

// Verdicts, strongest first.
const (
	Detected     Verdict = "DETECTED"
	Suspected    Verdict = "SUSPECTED"
	Insufficient Verdict = "INSUFFICIENT_EVIDENCE"
)

func classify(score, detected, suspected float64) Verdict {
	switch {
	case score >= detected:
		return Detected
	case score >= suspected:
		return Suspected
	default:
		return Insufficient
	}
}
