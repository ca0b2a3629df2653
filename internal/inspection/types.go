package inspection

import (
	"time"

	"carinspect/internal/confidence"
	"carinspect/internal/coverage"
	"carinspect/internal/damage"
	"carinspect/internal/engineaudio"
	"carinspect/internal/evidence"
	"carinspect/internal/frames"
	"carinspect/internal/narrative"
	"carinspect/internal/quality"
	"carinspect/internal/tamper"
)

// Request describes one capture. Exactly one of VideoPath or ImagePaths must
// be set.
type Request struct {
	Token       string
	VideoPath   string
	ImagePaths  []string
	AudioPath   string
	BoltPhoto   string
	PanelPhoto  string
	VehicleType string
	Scenario    string
	Electric    bool
}

// Tamper holds the repair-sign verdicts. PaintFrame names the damage frame
// the paint check ran on when no panel photo was supplied.
type Tamper struct {
	Bolt       *tamper.BoltReport  `json:"bolt,omitempty"`
	Paint      *tamper.PaintReport `json:"paint,omitempty"`
	PaintFrame string              `json:"paint_frame,omitempty"`
}

// Report is the complete result of a run.
type Report struct {
	Token       string               `json:"token"`
	CreatedAt   time.Time            `json:"created_at"`
	Elapsed     string               `json:"elapsed"`
	VehicleType string               `json:"vehicle_type"`
	Scenario    string               `json:"scenario"`
	Source      string               `json:"source"`
	Quality     quality.Report       `json:"quality"`
	Frames      frames.Result        `json:"frames"`
	Coverage    coverage.Report      `json:"coverage"`
	Damage      damage.Result        `json:"damage"`
	Tamper      Tamper               `json:"tamper"`
	Audio       *engineaudio.Report  `json:"audio,omitempty"`
	Confidence  confidence.Report    `json:"confidence"`
	Commentary  narrative.Commentary `json:"commentary"`
	Evidence    []evidence.Item      `json:"suspicious_frames"`
}
