package damage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"carinspect/internal/config"
	"carinspect/internal/logging"
	"carinspect/internal/services"
)

var commandContext = exec.CommandContext

// Detection is one object reported by a detector.
type Detection struct {
	Label string    `json:"label"`
	Conf  float64   `json:"conf"`
	Box   []float64 `json:"box,omitempty"`
}

// Detector predicts damage objects in a still.
type Detector interface {
	Predict(ctx context.Context, imagePath string) ([]Detection, error)
}

// Capability is the outcome of probing for a detector: Available or
// Unavailable.
type Capability interface {
	capability()
}

// Available carries a ready detector and the labels that count as damage.
type Available struct {
	Detector      Detector
	Labels        []string
	MinConfidence float64
}

// Unavailable records why detector mode cannot be used.
type Unavailable struct {
	Reason string
}

func (Available) capability()   {}
func (Unavailable) capability() {}

var defaultDetectorArgs = []string{"--model", "{model}", "--image", "{image}", "--conf", "{conf}", "--iou", "{iou}"}

// Probe checks once whether the configured detector command can run. It
// never fails: every problem is reported as Unavailable.
func Probe(ctx context.Context, cfg config.Detector, logger *slog.Logger) Capability {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "damage"))
	capability := probe(cfg)
	switch c := capability.(type) {
	case Available:
		logger.Info("detector available", logging.Args(logging.DecisionAttrs("damage_mode", "detector", cfg.Command)...)...)
	case Unavailable:
		if cfg.Enabled {
			logging.WarnWithContext(logger, "detector unavailable", "detector_probe",
				logging.String("reason", c.Reason),
				logging.String(logging.FieldErrorHint, "check detector.command and detector.model_path"),
				logging.String(logging.FieldImpact, "damage analysis uses heuristic mode"),
			)
		}
	}
	return capability
}

func probe(cfg config.Detector) Capability {
	if !cfg.Enabled {
		return Unavailable{Reason: "detector disabled"}
	}
	command := strings.TrimSpace(cfg.Command)
	if command == "" {
		return Unavailable{Reason: "detector command not configured"}
	}
	if _, err := exec.LookPath(command); err != nil {
		return Unavailable{Reason: fmt.Sprintf("binary %q not found", command)}
	}
	detector := NewCommandDetector(cfg)
	if detector.usesModel() {
		if strings.TrimSpace(cfg.ModelPath) == "" {
			return Unavailable{Reason: "detector model path not configured"}
		}
		if _, err := os.Stat(cfg.ModelPath); err != nil {
			return Unavailable{Reason: fmt.Sprintf("detector model %s not readable", cfg.ModelPath)}
		}
	}
	return Available{Detector: detector, Labels: cfg.Labels, MinConfidence: cfg.Confidence}
}

// CommandDetector runs an external detector once per image. The command
// prints a JSON array of detections on stdout.
type CommandDetector struct {
	binary  string
	args    []string
	model   string
	conf    float64
	iou     float64
	timeout time.Duration
}

// NewCommandDetector builds a detector from configuration. Argument
// placeholders {model}, {image}, {conf}, and {iou} are expanded per call.
func NewCommandDetector(cfg config.Detector) *CommandDetector {
	args := cfg.Args
	if len(args) == 0 {
		args = defaultDetectorArgs
	}
	return &CommandDetector{
		binary:  strings.TrimSpace(cfg.Command),
		args:    append([]string(nil), args...),
		model:   cfg.ModelPath,
		conf:    cfg.Confidence,
		iou:     cfg.IoU,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Predict implements Detector.
func (d *CommandDetector) Predict(ctx context.Context, imagePath string) ([]Detection, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	cmd := commandContext(ctx, d.binary, d.expand(imagePath)...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "damage", "detect", "detector timed out", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "damage", "detect", strings.TrimSpace(stderr.String()), err)
	}
	detections, err := decodeDetections(out)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "damage", "decode detections", "detector output is not a JSON array", err)
	}
	return detections, nil
}

func (d *CommandDetector) expand(imagePath string) []string {
	replacer := strings.NewReplacer(
		"{model}", d.model,
		"{image}", imagePath,
		"{conf}", strconv.FormatFloat(d.conf, 'f', -1, 64),
		"{iou}", strconv.FormatFloat(d.iou, 'f', -1, 64),
	)
	out := make([]string, len(d.args))
	for i, arg := range d.args {
		out[i] = replacer.Replace(arg)
	}
	return out
}

func (d *CommandDetector) usesModel() bool {
	for _, arg := range d.args {
		if strings.Contains(arg, "{model}") {
			return true
		}
	}
	return false
}

func decodeDetections(out []byte) ([]Detection, error) {
	trimmed := bytes.TrimSpace(out)
	if start := bytes.IndexByte(trimmed, '['); start > 0 {
		trimmed = trimmed[start:]
	}
	var detections []Detection
	if err := json.Unmarshal(trimmed, &detections); err != nil {
		return nil, err
	}
	for i := range detections {
		if strings.TrimSpace(detections[i].Label) == "" {
			detections[i].Label = "unknown"
		}
	}
	return detections, nil
}
