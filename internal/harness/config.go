package harness

import (
	"github.com/ux3d/ANARI-SDK/internal/config"
)

// Config holds every setting of a run.
type Config struct {
	// Library is the registered backend name to load.
	Library string

	// Device selects the backend device. Empty uses the default device.
	Device string

	// Renderer names the renderer passed to RenderScene.
	Renderer string

	// SceneRoot is the directory holding <category>/<name>.json scenes.
	SceneRoot string

	// TestScenes selects scenes: "all", a category, a category/name, or
	// a comma-separated list of those.
	TestScenes string

	// Output is the root for rendered images, evaluation images and
	// report.json.
	Output string

	// Candidates is where CompareImages looks for rendered images.
	// Empty means Output.
	Candidates string

	// Methods lists the color comparison methods.
	Methods []string

	// Thresholds maps a method to its pass threshold. Methods without a
	// threshold are scored but never fail.
	Thresholds map[string]float64

	// IncludeVariants expands variant axes in addition to permutations.
	IncludeVariants bool

	// Workers above one run scenes in parallel, one generator each.
	Workers int

	ViewDistance float64

	// Database, when set, is the SQLite file runs are recorded in.
	Database string

	// MetricsFile, when set, receives the Prometheus textfile.
	MetricsFile string

	// Report selects the report renderer: console, json or none.
	Report string
}

// FromFile builds a Config from a run-configuration file.
func FromFile(f config.File) Config {
	return Config{
		Library:         f.Library,
		Device:          f.Device,
		Renderer:        f.Renderer,
		SceneRoot:       f.Scenes,
		TestScenes:      f.TestScenes,
		Output:          f.Output,
		Methods:         append([]string(nil), f.ComparisonMethods...),
		Thresholds:      f.ThresholdMap(),
		IncludeVariants: f.Variants,
		Workers:         f.Workers,
		ViewDistance:    f.ViewDistance,
		Database:        f.Database,
		MetricsFile:     f.Metrics,
		Report:          f.Report,
	}
}

// DefaultConfig is FromFile applied to the configuration defaults.
func DefaultConfig() Config {
	return FromFile(config.Defaults())
}

func (c Config) candidateRoot() string {
	if c.Candidates != "" {
		return c.Candidates
	}
	return c.Output
}
