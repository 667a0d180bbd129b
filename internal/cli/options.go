package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ux3d/ANARI-SDK/internal/applog"
	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/config"
	"github.com/ux3d/ANARI-SDK/internal/harness"
)

// RunOptions holds the flags shared by commands that talk to a backend.
// Each command registers only the flags it uses.
type RunOptions struct {
	*RootOptions
	Device       string
	Renderer     string
	Scenes       string
	TestScenes   string
	Output       string
	Candidates   string
	Methods      []string
	Thresholds   []float64
	Variants     bool
	Workers      int
	ViewDistance float64
	Database     string
	Metrics      string
	Report       string
}

func newRunOptions(root *RootOptions) *RunOptions {
	d := config.Defaults()
	return &RunOptions{
		RootOptions:  root,
		Renderer:     d.Renderer,
		Scenes:       d.Scenes,
		TestScenes:   d.TestScenes,
		Output:       d.Output,
		Methods:      d.ComparisonMethods,
		Workers:      d.Workers,
		ViewDistance: d.ViewDistance,
		Report:       d.Report,
	}
}

func addDeviceFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVarP(&opts.Device, "device", "d", opts.Device, "device name (default device when empty)")
}

func addSceneFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVar(&opts.Scenes, "scenes", opts.Scenes, "directory holding <category>/<name> scene files")
	cmd.Flags().StringVarP(&opts.TestScenes, "test_scenes", "t", opts.TestScenes, "scene selection: all, a category, category/name, or a comma list")
	cmd.Flags().BoolVar(&opts.Variants, "variants", opts.Variants, "also expand variant axes")
	cmd.Flags().IntVar(&opts.Workers, "workers", opts.Workers, "scenes run in parallel, one generator per worker")
}

func addRenderFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVarP(&opts.Renderer, "renderer", "r", opts.Renderer, "renderer used for every frame")
	cmd.Flags().Float64Var(&opts.ViewDistance, "view_distance", opts.ViewDistance, "camera distance passed to the renderer")
}

func addOutputFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVarP(&opts.Output, "output", "o", opts.Output, "root directory for images and report.json")
}

func addEvaluationFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringSliceVar(&opts.Methods, "comparison_methods", opts.Methods, "color comparison methods (ssim, psnr)")
	cmd.Flags().Float64SliceVar(&opts.Thresholds, "thresholds", opts.Thresholds, "pass thresholds, paired with comparison methods by position")
}

func addRecordFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", opts.Database, "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", opts.Metrics, "write Prometheus metrics to this textfile")
}

// resolve layers the configuration file, then explicitly set flags, over
// the defaults.
func (opts *RunOptions) resolve(cmd *cobra.Command, args []string) (config.File, error) {
	f := config.Defaults()
	if opts.ConfigFile != "" {
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			return config.File{}, err
		}
		f = *loaded
	}

	overrides := []struct {
		flag  string
		apply func()
	}{
		{"device", func() { f.Device = opts.Device }},
		{"renderer", func() { f.Renderer = opts.Renderer }},
		{"scenes", func() { f.Scenes = opts.Scenes }},
		{"test_scenes", func() { f.TestScenes = opts.TestScenes }},
		{"output", func() { f.Output = opts.Output }},
		{"comparison_methods", func() { f.ComparisonMethods = opts.Methods }},
		{"thresholds", func() { f.Thresholds = opts.Thresholds }},
		{"variants", func() { f.Variants = opts.Variants }},
		{"workers", func() { f.Workers = opts.Workers }},
		{"view_distance", func() { f.ViewDistance = opts.ViewDistance }},
		{"db", func() { f.Database = opts.Database }},
		{"metrics", func() { f.Metrics = opts.Metrics }},
		{"report", func() { f.Report = opts.Report }},
		{"log-file", func() { f.LogFile = opts.LogFile }},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			o.apply()
		}
	}

	if len(args) > 0 {
		f.Library = args[0]
	}
	if f.Library == "" {
		return config.File{}, errors.New("no library given")
	}
	if err := f.Validate(); err != nil {
		return config.File{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return f, nil
}

// invocation is everything a command needs after flag resolution.
type invocation struct {
	harness *harness.Harness
	out     *OutputFormatter
}

// setup resolves the configuration, installs the default logger writing
// to the log file and stderr, and builds the harness.
func (opts *RunOptions) setup(cmd *cobra.Command, args []string) (*invocation, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	f, err := opts.resolve(cmd, args)
	if err != nil {
		if out.IsJSON() {
			_ = out.Error(CodeConfig, err.Error(), nil)
		}
		return nil, WrapExitError(ExitCommandError, "invalid arguments", err)
	}

	cfg := harness.FromFile(f)
	if cmd.Flags().Changed("candidates") {
		cfg.Candidates = opts.Candidates
	}
	if out.IsJSON() {
		cfg.Report = "none"
	}

	w := applog.New(f.LogFile)
	logger := applog.NewLogger(w, cmd.ErrOrStderr(), opts.Verbose)
	slog.SetDefault(logger)

	h := harness.New(cfg,
		harness.WithLogger(logger),
		harness.WithStatus(w.Append),
		harness.WithOutput(cmd.OutOrStdout()),
	)
	return &invocation{harness: h, out: out}, nil
}

// fail maps an operation error to its exit code. JSON output also gets an
// error envelope; text output relies on main printing the error.
func (inv *invocation) fail(command string, err error) error {
	code, message := CodeRun, command+" aborted"
	if backend.IsInitError(err) {
		code, message = CodeInit, "failed to initialize backend"
	}
	if inv.out.IsJSON() {
		_ = inv.out.Error(code, err.Error(), map[string]string{"command": command})
	}
	return WrapExitError(ExitCommandError, message, err)
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
