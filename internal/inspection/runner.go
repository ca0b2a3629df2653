package inspection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"carinspect/internal/confidence"
	"carinspect/internal/config"
	"carinspect/internal/coverage"
	"carinspect/internal/damage"
	"carinspect/internal/deps"
	"carinspect/internal/engineaudio"
	"carinspect/internal/evidence"
	"carinspect/internal/frames"
	"carinspect/internal/logging"
	"carinspect/internal/media/video"
	"carinspect/internal/narrative"
	"carinspect/internal/notifications"
	"carinspect/internal/quality"
	"carinspect/internal/reportstore"
	"carinspect/internal/services"
	"carinspect/internal/tamper"
)

const (
	defaultVehicleType = "car"
	defaultScenario    = "pre-purchase"
	sourceVideo        = "video"
	sourceImages       = "images"
)

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithStore persists every finished run.
func WithStore(store reportstore.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithCapability skips detector probing and uses capability for every run.
func WithCapability(capability damage.Capability) Option {
	return func(r *Runner) {
		r.capability = capability
		r.probeOnce.Do(func() {})
	}
}

// WithProvider overrides the narrative provider built from config. A nil
// provider forces template commentary.
func WithProvider(provider narrative.Provider) Option {
	return func(r *Runner) {
		r.provider = provider
		r.providerSet = true
	}
}

// WithNotifier overrides the ntfy notifier built from config.
func WithNotifier(notifier notifications.Service) Option {
	return func(r *Runner) { r.notifier = notifier }
}

// Runner executes inspection runs. It is safe for concurrent use with
// distinct tokens.
type Runner struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       reportstore.Store
	notifier    notifications.Service
	provider    narrative.Provider
	providerSet bool

	probeOnce  sync.Once
	capability damage.Capability
}

// NewRunner builds a runner. The detector is probed lazily on the first run
// and reused afterwards.
func NewRunner(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("inspection runner requires config")
	}
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(cfg)
	}
	if !r.providerSet {
		provider, err := narrative.NewProvider(cfg.GetLLM())
		if err != nil {
			logging.WarnWithContext(r.logger, "narrative provider unavailable", "narrative_provider",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set the provider api key or llm.provider = \"none\""),
				logging.String(logging.FieldImpact, "template commentary used"),
			)
		}
		r.provider = provider
	}
	return r, nil
}

// Run executes every stage for req and returns the assembled report.
func (r *Runner) Run(ctx context.Context, req Request) (Report, error) {
	if err := validateRequest(req); err != nil {
		return Report{}, err
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	ctx = services.WithRunID(ctx, token)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.logger, "inspection"))

	if err := r.cfg.EnsureDirectories(); err != nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "inspection", "prepare directories", "", err)
	}
	workDir := filepath.Join(r.cfg.Paths.WorkDir, token)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "inspection", "create work dir", workDir, err)
	}
	lock := flock.New(filepath.Join(workDir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return Report{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return Report{}, services.Wrap(services.ErrValidation, "inspection", "acquire run lock", fmt.Sprintf("run %s is already in progress", token), nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	started := time.Now()
	report := Report{
		Token:       token,
		CreatedAt:   started.UTC(),
		VehicleType: orDefault(req.VehicleType, defaultVehicleType),
		Scenario:    orDefault(req.Scenario, defaultScenario),
		Evidence:    []evidence.Item{},
	}
	logger.Info("inspection started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("vehicle_type", report.VehicleType),
		logging.String("work_dir", workDir),
	)

	runErr := r.execute(ctx, req, workDir, &report)
	report.Elapsed = time.Since(started).Round(time.Millisecond).String()
	if runErr == nil {
		if err := ctx.Err(); err != nil {
			runErr = services.Wrap(services.ErrTimeout, "inspection", "run", "run cancelled before completion", err)
		}
	}

	if err := r.persist(ctx, report, runErr); err != nil {
		logger.Error("report persistence failed", logging.String(logging.FieldEventType, "report_persist"), logging.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	r.notify(ctx, report, runErr)
	if runErr != nil {
		logger.Error("inspection failed",
			logging.String(logging.FieldEventType, "run_failure"),
			logging.String("error_category", string(services.Classify(runErr))),
			logging.Error(runErr),
		)
		return report, runErr
	}
	logger.Info("inspection completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("severity", report.Damage.Summary.Severity),
		logging.Float64("confidence", report.Confidence.Score),
		logging.String("narrative_method", report.Commentary.Method),
		logging.String("elapsed", report.Elapsed),
	)
	return report, nil
}

func (r *Runner) execute(ctx context.Context, req Request, workDir string, report *Report) error {
	cfg := r.cfg
	var src video.Source
	if req.VideoPath != "" {
		report.Source = sourceVideo
		src = video.NewFFmpegSource(req.VideoPath, cfg.FFmpegBinary(), deps.FFprobeFor(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
	} else {
		report.Source = sourceImages
		src = video.NewImageSource(req.ImagePaths)
	}

	r.stage(ctx, "quality", func(ctx context.Context) {
		report.Quality = quality.Check(ctx, src, cfg.Quality, r.logger)
	})

	var extractErr error
	r.stage(ctx, "frames", func(ctx context.Context) {
		report.Frames, extractErr = frames.Extract(ctx, src, filepath.Join(workDir, "frames"), cfg.Frames, r.logger)
	})
	if extractErr != nil {
		return services.Wrap(services.ErrValidation, "frames", "extract", "", extractErr)
	}
	stills := report.Frames.Frames

	r.stage(ctx, "coverage", func(context.Context) {
		report.Coverage = coverage.Estimate(stills, cfg.Coverage)
	})
	r.stage(ctx, "damage", func(ctx context.Context) {
		engine := damage.NewEngine(r.detector(ctx), cfg.Damage, r.logger)
		report.Damage = engine.Infer(ctx, stills)
	})
	r.stage(ctx, "tamper", func(ctx context.Context) {
		report.Tamper = r.checkTamper(ctx, req, report.Damage)
	})
	if req.AudioPath != "" || req.Electric {
		r.stage(ctx, "audio", func(ctx context.Context) {
			audio := engineaudio.Analyze(ctx, engineaudio.Request{
				Path:     req.AudioPath,
				Electric: req.Electric,
				FFmpeg:   cfg.FFmpegBinary(),
			}, cfg.Audio, r.logger)
			report.Audio = &audio
		})
	}
	r.stage(ctx, "confidence", func(context.Context) {
		report.Confidence = confidence.Aggregate(confidence.Inputs{
			Quality:      report.Quality,
			Coverage:     report.Coverage,
			DamageMethod: report.Damage.Method,
			Audio:        report.Audio,
		}, cfg.Confidence)
	})
	r.stage(ctx, "narrative", func(ctx context.Context) {
		generator := narrative.NewGenerator(r.provider, cfg.GetLLM(), r.logger)
		report.Commentary = generator.Generate(ctx, narrative.Input{
			VehicleType: report.VehicleType,
			Scenario:    report.Scenario,
			Quality:     report.Quality,
			Coverage:    report.Coverage,
			Damage:      report.Damage,
			Audio:       report.Audio,
			Confidence:  &report.Confidence,
		})
	})
	r.stage(ctx, "evidence", func(ctx context.Context) {
		report.Evidence = evidence.Select(ctx, report.Damage, evidence.Options{
			OutputDir:    filepath.Join(cfg.Paths.EvidenceDir, report.Token, "suspicious"),
			PublicPrefix: cfg.Paths.PublicEvidencePrefix,
			Token:        report.Token,
			MaxImages:    cfg.Evidence.MaxImages,
			LongSide:     cfg.Evidence.LongSide,
			JPEGQuality:  cfg.Evidence.JPEGQuality,
			Annotate:     cfg.Evidence.Annotate,
		}, r.logger)
	})
	return nil
}

// stage runs fn with the stage name on the context and logs its duration.
func (r *Runner) stage(ctx context.Context, name string, fn func(context.Context)) {
	stageCtx := services.WithStage(ctx, name)
	started := time.Now()
	fn(stageCtx)
	logging.WithContext(stageCtx, logging.NewComponentLogger(r.logger, "inspection")).Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
}

func (r *Runner) detector(ctx context.Context) damage.Capability {
	r.probeOnce.Do(func() {
		r.capability = damage.Probe(ctx, r.cfg.Detector, r.logger)
	})
	return r.capability
}

func (r *Runner) checkTamper(ctx context.Context, req Request, dmg damage.Result) Tamper {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.logger, "tamper"))
	var out Tamper
	if path := strings.TrimSpace(req.BoltPhoto); path != "" {
		bolt, err := tamper.CheckBoltFile(path, r.cfg.Tamper.Bolt)
		if err != nil {
			logging.WarnWithContext(logger, "bolt photo unreadable", "tamper_bolt",
				logging.Error(err),
				logging.String(logging.FieldImpact, "bolt check omitted"),
			)
		} else {
			out.Bolt = &bolt
		}
	}

	panel := strings.TrimSpace(req.PanelPhoto)
	if panel == "" {
		panel = topFrame(dmg)
		out.PaintFrame = panel
	}
	if panel != "" {
		paint, err := tamper.CheckPaintFile(panel, r.cfg.Tamper.Paint)
		if err != nil {
			logging.WarnWithContext(logger, "panel image unreadable", "tamper_paint",
				logging.Error(err),
				logging.String(logging.FieldImpact, "paint check omitted"),
			)
			out.PaintFrame = ""
		} else {
			out.Paint = &paint
		}
	}
	return out
}

// topFrame returns the frame of the strongest finding: highest confidence in
// detector mode, highest score otherwise.
func topFrame(dmg damage.Result) string {
	best, bestValue := "", -1.0
	for _, f := range dmg.Findings {
		value := f.Score
		if dmg.Method == damage.MethodDetector {
			value = f.Confidence
		}
		if f.Frame != "" && value > bestValue {
			best, bestValue = f.Frame, value
		}
	}
	return best
}

func (r *Runner) persist(ctx context.Context, report Report, runErr error) error {
	if r.store == nil {
		return nil
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	rec := reportstore.Record{
		Token:           report.Token,
		Status:          reportstore.StatusCompleted,
		CreatedAt:       report.CreatedAt,
		VehicleType:     report.VehicleType,
		Scenario:        report.Scenario,
		Severity:        report.Damage.Summary.Severity,
		Confidence:      report.Confidence.Score,
		ConfidenceLevel: report.Confidence.Level,
		Report:          payload,
	}
	if runErr != nil {
		rec.Status = reportstore.StatusFailed
		rec.ErrorCategory = string(services.Classify(runErr))
		rec.ErrorMessage = runErr.Error()
	}
	if err := r.store.Put(context.WithoutCancel(ctx), rec); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	return nil
}

func (r *Runner) notify(ctx context.Context, report Report, runErr error) {
	event := notifications.EventInspectionCompleted
	payload := notifications.Payload{
		"token":       report.Token,
		"vehicleType": report.VehicleType,
	}
	if runErr != nil {
		event = notifications.EventInspectionFailed
		payload["category"] = string(services.Classify(runErr))
		payload["error"] = runErr.Error()
	} else {
		payload["severity"] = report.Damage.Summary.Severity
		payload["confidence"] = report.Confidence.Score
		payload["confidenceLevel"] = report.Confidence.Level
		payload["evidence"] = len(report.Evidence)
		payload["tamper"] = tamperConcerns(report.Tamper)
	}
	if err := r.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, logging.NewComponentLogger(r.logger, "inspection")),
			"notification failed", "notification",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// tamperConcerns lists the tamper checks that found repair signs.
func tamperConcerns(t Tamper) string {
	var parts []string
	if t.Bolt != nil && t.Bolt.Label != tamper.Insufficient {
		parts = append(parts, "bolt "+string(t.Bolt.Label))
	}
	if t.Paint != nil && t.Paint.Label != tamper.Insufficient {
		parts = append(parts, "paint "+string(t.Paint.Label))
	}
	return strings.Join(parts, ", ")
}

func validateRequest(req Request) error {
	hasVideo := strings.TrimSpace(req.VideoPath) != ""
	hasImages := len(req.ImagePaths) > 0
	switch {
	case hasVideo && hasImages:
		return services.Wrap(services.ErrValidation, "inspection", "validate request", "provide either a video or images, not both", nil)
	case !hasVideo && !hasImages:
		return services.Wrap(services.ErrValidation, "inspection", "validate request", "a video or at least one image is required", nil)
	}
	if token := req.Token; token != "" && (strings.ContainsAny(token, `/\`) || token == "." || token == "..") {
		return services.Wrap(services.ErrValidation, "inspection", "validate request", fmt.Sprintf("invalid token %q", token), nil)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
