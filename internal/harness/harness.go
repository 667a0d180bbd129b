package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/driver"
	"github.com/ux3d/ANARI-SDK/internal/feature"
	"github.com/ux3d/ANARI-SDK/internal/report"
	"github.com/ux3d/ANARI-SDK/internal/scene"
	"github.com/ux3d/ANARI-SDK/internal/store"
	"github.com/ux3d/ANARI-SDK/internal/telemetry"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Command names, used in logs, metrics and the run history.
const (
	CommandRenderScenes          = "render_scenes"
	CommandCompareImages         = "compare_images"
	CommandQueryFeatures         = "query_features"
	CommandQueryMetadata         = "query_metadata"
	CommandCheckObjectProperties = "check_object_properties"
	CommandCreateReport          = "create_report"
)

// Harness runs operations with one Config.
type Harness struct {
	cfg      Config
	logger   *slog.Logger
	status   backend.StatusFunc
	out      io.Writer
	open     backend.Factory
	now      func() time.Time
	newRunID func() string
	metrics  *telemetry.Metrics
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithStatus sets the callback receiving backend status messages.
func WithStatus(fn backend.StatusFunc) Option {
	return func(h *Harness) { h.status = fn }
}

// WithOutput sets where the report renderer writes.
func WithOutput(w io.Writer) Option {
	return func(h *Harness) { h.out = w }
}

// WithBackend replaces the registry lookup used to load the library.
func WithBackend(open backend.Factory) Option {
	return func(h *Harness) { h.open = open }
}

// WithClock sets the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Harness) { h.now = now }
}

// WithRunIDs sets the run ID generator.
func WithRunIDs(gen func() string) Option {
	return func(h *Harness) { h.newRunID = gen }
}

// New creates a Harness.
func New(cfg Config, opts ...Option) *Harness {
	h := &Harness{
		cfg:      cfg,
		logger:   slog.Default(),
		status:   func(string) {},
		out:      io.Discard,
		open:     backend.Open,
		now:      time.Now,
		newRunID: NewRunID,
		metrics:  telemetry.New(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Metrics returns the counters collected by the harness.
func (h *Harness) Metrics() *telemetry.Metrics {
	return h.metrics
}

// NewRunID returns a time-ordered UUIDv7 string.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Run is the outcome of one operation.
type Run struct {
	ID        string
	Command   string
	StartedAt time.Time

	// Report is the merged result tree. Images have been replaced by
	// paths relative to the output root.
	Report  value.Object
	Summary report.Summary

	// Instances counts instances the operation ran for.
	Instances int

	// Warnings lists skipped scenes and channels.
	Warnings []string

	// Failures lists instances that could not be run.
	Failures []string

	// ReportPath is the report.json written, if any.
	ReportPath string

	dirs *dirCache
	mu   sync.Mutex
}

// Failed reports whether any metric, property check or instance failed.
func (r *Run) Failed() bool {
	return r.Summary.HasFailures() || len(r.Failures) > 0
}

func (r *Run) warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
}

func (h *Harness) newRun(command string) *Run {
	run := &Run{ID: h.newRunID(), Command: command, StartedAt: h.now(), dirs: newDirCache()}
	h.logger.Info("run started", "command", command, "run_id", run.ID, "library", h.cfg.Library)
	return run
}

// session is a loaded library and its device's capability flags.
type session struct {
	lib      backend.Backend
	features feature.Set
}

func (h *Harness) openSession() (*session, error) {
	lib, err := h.open(h.cfg.Library, h.status)
	if err != nil {
		if !backend.IsInitError(err) {
			err = &backend.InitError{Library: h.cfg.Library, Stage: "library", Err: err}
		}
		return nil, err
	}
	features, err := backend.QueryFeatures(lib, h.cfg.Library, h.cfg.Device)
	if err != nil {
		lib.Close()
		return nil, err
	}
	return &session{lib: lib, features: features}, nil
}

func (s *session) close() {
	s.lib.Close()
}

// loadScenes discovers and loads the selected scenes. Invalid scenes are
// skipped with a warning.
func (h *Harness) loadScenes(run *Run) ([]*scene.Definition, error) {
	paths, err := scene.Discover(h.cfg.SceneRoot, h.cfg.TestScenes)
	if err != nil {
		return nil, fmt.Errorf("discover scenes: %w", err)
	}

	loader := scene.NewLoader(h.cfg.SceneRoot)
	defs := make([]*scene.Definition, 0, len(paths))
	for _, p := range paths {
		def, err := loader.LoadFile(p)
		if err != nil {
			if !scene.IsConfigError(err) {
				return nil, err
			}
			h.logger.Warn("scene skipped", "path", p, "error", err)
			run.warn(err.Error())
			h.metrics.Skipped.Inc()
			continue
		}
		defs = append(defs, def)
	}
	h.logger.Debug("scenes loaded", "count", len(defs))
	return defs, nil
}

// gate splits defs by the session's features and records rejections.
func (h *Harness) gate(run *Run, sess *session, defs []*scene.Definition) []*scene.Definition {
	accepted, rejected := feature.Filter(defs, sess.features)
	h.reject(run, rejected)
	return accepted
}

func (h *Harness) reject(run *Run, rejected []feature.Rejection[*scene.Definition]) {
	for _, r := range rejected {
		for _, reason := range r.Reasons {
			run.warn(r.Item.ID() + ": " + reason)
		}
		h.metrics.Skipped.Inc()
	}
}

// drive runs op for every instance, sequentially or on a worker pool.
func (h *Harness) drive(ctx context.Context, run *Run, sess *session, defs []*scene.Definition, op driver.Operation) error {
	openGenerator := func() (backend.Generator, error) {
		return backend.OpenGenerator(sess.lib, h.cfg.Library, h.cfg.Device)
	}

	var res driver.Result
	if h.cfg.Workers > 1 {
		pool := &driver.Pool{
			Workers:         h.cfg.Workers,
			Open:            openGenerator,
			Features:        sess.features,
			IncludeVariants: h.cfg.IncludeVariants,
			Logger:          h.logger,
		}
		var err error
		if res, err = pool.Run(ctx, defs, op); err != nil {
			return err
		}
	} else {
		gen, err := openGenerator()
		if err != nil {
			return err
		}
		defer gen.Close()
		d := &driver.Driver{
			Generator:       gen,
			Features:        sess.features,
			IncludeVariants: h.cfg.IncludeVariants,
			Logger:          h.logger,
		}
		res = d.Run(defs, op)
	}

	h.reject(run, res.Rejected)
	run.Failures = append(run.Failures, res.Failures...)
	run.Instances += res.Instances
	run.Report = report.Merge(res.Partials)

	h.metrics.Instances.WithLabelValues(run.Command).Add(float64(res.Instances))
	h.metrics.Failures.Add(float64(len(res.Failures)))
	return nil
}

// finish summarizes the run, records it and writes the metrics file.
func (h *Harness) finish(ctx context.Context, run *Run) error {
	run.Summary = report.Summarize(run.Report)
	h.metrics.ObserveSummary(run.Summary)
	h.metrics.ObserveFrameDurations(run.Report)

	if h.cfg.Database != "" {
		if err := h.record(ctx, run); err != nil {
			return err
		}
	}
	if h.cfg.MetricsFile != "" {
		if err := h.metrics.WriteToTextfile(h.cfg.MetricsFile); err != nil {
			return err
		}
	}

	h.logger.Info("run finished",
		"command", run.Command,
		"run_id", run.ID,
		"instances", run.Instances,
		"passed", run.Summary.Passed,
		"failed", run.Summary.Failed,
		"warnings", len(run.Warnings),
		"failures", len(run.Failures),
	)
	return nil
}

func (h *Harness) record(ctx context.Context, run *Run) error {
	st, err := store.Open(h.cfg.Database)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer st.Close()

	err = st.WriteRun(ctx, store.Run{
		ID:        run.ID,
		StartedAt: run.StartedAt,
		Command:   run.Command,
		Library:   h.cfg.Library,
		Device:    h.cfg.Device,
		Renderer:  h.cfg.Renderer,
		Instances: run.Instances,
		Report:    run.Report,
	}, run.Summary)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
