package harness

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/bounds"
	"github.com/ux3d/ANARI-SDK/internal/evaluate"
	"github.com/ux3d/ANARI-SDK/internal/feature"
	"github.com/ux3d/ANARI-SDK/internal/report"
	"github.com/ux3d/ANARI-SDK/internal/store"
	"github.com/ux3d/ANARI-SDK/internal/testutil"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

const triScene = `{
  "sceneParameters": {"image_width": 4, "image_height": 4},
  "permutations": {"angle": [0, 90]},
  "metaData": {
    "0": {"bounds": {"world": [[0, 0, 0], [1, 1, 1]]}},
    "90": {"bounds": {"world": [[0, 0, 0], [1, 1, 1]]}}
  }
}`

func testConfig(t *testing.T, root string) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Library = "fake"
	cfg.SceneRoot = root
	cfg.Output = t.TempDir()
	cfg.Report = "none"
	return cfg
}

func newTestHarness(fake *testutil.Backend, cfg Config) *Harness {
	return New(cfg,
		WithBackend(func(string, backend.StatusFunc) (backend.Backend, error) { return fake, nil }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(testutil.NewDeterministicClock().Now),
		WithRunIDs(testutil.NewFixedIDGenerator("").NewRunID),
	)
}

func gray(shade uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	return img
}

// writeReferences stores references matching the fake backend's default
// frames for both instances of triScene.
func writeReferences(t *testing.T, root string) {
	t.Helper()
	for _, stem := range []string{"tri_0", "tri_90"} {
		require.NoError(t, evaluate.WritePNG(filepath.Join(root, "geometry", "ref_"+stem+"_color.png"), gray(128)))
		require.NoError(t, evaluate.WritePNG(filepath.Join(root, "geometry", "ref_"+stem+"_depth.png"), gray(127)))
	}
}

func TestRenderScenes_PermutationNames(t *testing.T) {
	root := testutil.SceneTree(t, map[string]string{"geometry/tri.json": triScene})
	cfg := testConfig(t, root)
	fake := &testutil.Backend{FrameDuration: 16 * time.Millisecond}

	run, err := newTestHarness(fake, cfg).RenderScenes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, run.Instances)
	assert.Empty(t, run.Failures)
	assert.Equal(t, testutil.FixedRunID, run.ID)
	assert.True(t, testutil.Epoch.Equal(run.StartedAt))
	for _, name := range []string{"tri_0_color.png", "tri_0_depth.png", "tri_90_color.png", "tri_90_depth.png"} {
		assert.FileExists(t, filepath.Join(cfg.Output, "geometry", name))
	}

	entry := run.Report.Child("geometry_tri").Child("tri_90")
	assert.Equal(t, value.Number(0.016), entry[report.KeyFrameDuration])
	assert.Equal(t, value.String(filepath.ToSlash(filepath.Join(cfg.Output, "geometry", "tri_90_depth.png"))), entry["depth"])

	gens := fake.Generators()
	require.Len(t, gens, 1)
	assert.True(t, gens[0].Closed())
	assert.True(t, fake.Closed())
	assert.Contains(t, gens[0].Calls(), "set angle=90")
}

func TestRenderScenes_SkipsRejectedAndInvalidScenes(t *testing.T) {
	root := testutil.SceneTree(t, map[string]string{
		"geometry/tri.json":    triScene,
		"geometry/broken.json": `{"sceneParameters": `,
		"geometry/sphere.json": `{"sceneParameters": {}, "requiredFeatures": ["ANARI_KHR_GEOMETRY_SPHERE"]}`,
	})
	cfg := testConfig(t, root)
	fake := &testutil.Backend{Features: feature.Set{{Name: "ANARI_KHR_GEOMETRY_SPHERE", Available: false}}}

	h := newTestHarness(fake, cfg)
	run, err := h.RenderScenes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, run.Instances)
	assert.Contains(t, run.Warnings, "geometry/sphere: Feature ANARI_KHR_GEOMETRY_SPHERE is not supported")
	require.Len(t, run.Warnings, 2)
	assert.Contains(t, run.Warnings[0], "geometry/broken")
	assert.False(t, run.Failed())
}

func TestRenderScenes_InitErrors(t *testing.T) {
	root := testutil.SceneTree(t, map[string]string{"geometry/tri.json": triScene})

	tests := []struct {
		name string
		fake *testutil.Backend
	}{
		{"features", &testutil.Backend{FeaturesErr: errors.New("no device")}},
		{"generator", &testutil.Backend{GeneratorErr: errors.New("out of memory")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestHarness(tt.fake, testConfig(t, root)).RenderScenes(context.Background())
			require.Error(t, err)
			assert.True(t, backend.IsInitError(err))
		})
	}
}

func TestRenderScenes_LibraryError(t *testing.T) {
	root := testutil.SceneTree(t, map[string]string{"geometry/tri.json": triScene})
	h := New(testConfig(t, root),
		WithBackend(func(string, backend.StatusFunc) (backend.Backend, error) { return nil, errors.New("dlopen failed") }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	_, err := h.RenderScenes(context.Background())
	assert.True(t, backend.IsInitError(err))
}

func TestRenderScenes_UnknownSelector(t *testing.T) {
	root := testutil.SceneTree(t, map[string]string{"geometry/tri.json": triScene})
	cfg := testConfig(t, root)
	cfg.TestScenes = "lighting"

	_, err := newTestHarness(&testutil.Backend{}, cfg).RenderScenes(context.Background())
	assert.Error(t, err)
}

func TestCreateReport_EndToEnd(t *testing.T) {
	root := testutil.SceneTree(t, map[string]string{"geometry/tri.json": triScene})
	writeReferences(t, root)

	cfg := testConfig(t, root)
	cfg.Thresholds = map[string]float64{"ssim": 0.9}
	cfg.Database = filepath.Join(t.TempDir(), "runs.db")
	cfg.MetricsFile = filepath.Join(t.TempDir(), "cts.prom")
	fake := &testutil.Backend{FrameDuration: 16 * time.Millisecond}

	run, err := newTestHarness(fake, cfg).CreateReport(context.Background())
	require.NoError(t, err)

	assert.False(t, run.Failed())
	assert.Empty(t, run.Warnings)
	assert.Equal(t, 2, run.Summary.Passed)
	assert.Equal(t, 2, run.Summary.Unchecked)
	assert.Equal(t, 0, run.Summary.BoundsFailures)

	entry := run.Report.Child("geometry_tri").Child("tri_0")
	assert.Equal(t, value.String(bounds.AllCorrect), entry[report.KeyPropertyCheck])
	assert.Equal(t, value.Number(0.016), entry[report.KeyFrameDuration])
	diff, ok := entry.Lookup("color", "images", "diff")
	require.True(t, ok)
	assert.Equal(t, value.String("evaluation/diffs/geometry_tri/tri_0_color.png"), diff)
	assert.FileExists(t, filepath.Join(cfg.Output, "evaluation", "diffs", "geometry_tri", "tri_0_color.png"))

	require.Equal(t, filepath.Join(cfg.Output, report.FileName), run.ReportPath)
	data, err := os.ReadFile(run.ReportPath)
	require.NoError(t, err)
	written, err := value.ParseObject(data)
	require.NoError(t, err)
	assert.Equal(t, run.Report, written)

	st, err := store.Open(cfg.Database)
	require.NoError(t, err)
	defer st.Close()
	stored, err := st.ReadRun(context.Background(), testutil.FixedRunID)
	require.NoError(t, err)
	assert.Equal(t, CommandCreateReport, stored.Command)
	assert.Equal(t, 2, stored.Passed)

	assert.FileExists(t, cfg.MetricsFile)
}

func TestCreateReport_RequiredFeaturesRecorded(t *testing.T) {
	root := testutil.SceneTree(t, map[string]string{
		"geometry/tri.json": `{"sceneParameters": {"image_width": 4, "image_height": 4}, "requiredFeatures": ["ANARI_KHR_GEOMETRY_TRIANGLE"]}`,
	})
	fake := &testutil.Backend{Features: feature.Set{{Name: "ANARI_KHR_GEOMETRY_TRIANGLE", Available: true}}}

	run, err := newTestHarness(fake, testConfig(t, root)).CreateReport(context.Background())
	require.NoError(t, err)

	entry := run.Report.Child("geometry_tri").Child("tri")
	assert.Equal(t, value.Array{value.String("ANARI_KHR_GEOMETRY_TRIANGLE")}, entry[report.KeyRequiredFeatures])
	assert.Equal(t, value.String(bounds.Missing), entry[report.KeyPropertyCheck])
	assert.Len(t, run.Warnings, 2, "both channels lack references")
	assert.True(t, run.Failed())
}

func TestCreateReport_MetricFailure(t *testing.T) {
	root := testutil.SceneTree(t, map[string]string{"geometry/tri.json": triScene})
	writeReferences(t, root)

	cfg := testConfig(t, root)
	cfg.Thresholds = map[string]float64{"ssim": 0.9}
	fake := &testutil.Backend{Shade: func(params value.Object) uint8 {
		if params["angle"] == value.Number(90) {
			return 250
		}
		return 128
	}}

	run, err := newTestHarness(fake, cfg).CreateReport(context.Background())
	require.NoError(t, err)

	assert.True(t, run.Failed())
	assert.Equal(t, 1, run.Summary.Passed)
	assert.Equal(t, 1, run.Summary.Failed)
	passed, ok := run.Report.Lookup("geometry_tri", "tri_90", "color", "metrics", "ssim", "passed")
	require.True(t, ok)
	assert.Equal(t, value.Bool(false), passed)
}

func TestCreateReport_ParallelMatchesSequential(t *testing.T) {
	scenes := map[string]string{
		"geometry/tri.json":  triScene,
		"geometry/quad.json": `{"sceneParameters": {"image_width": 4, "image_height": 4}, "permutations": {"count": [1, 2, 3]}}`,
		"lighting/sun.json":  `{"sceneParameters": {"image_width": 4, "image_height": 4}}`,
	}
	root := testutil.SceneTree(t, scenes)
	writeReferences(t, root)

	runWith := func(workers int) (*Run, *testutil.Backend) {
		cfg := testConfig(t, root)
		cfg.Workers = workers
		fake := &testutil.Backend{FrameDuration: time.Millisecond}
		run, err := newTestHarness(fake, cfg).CreateReport(context.Background())
		require.NoError(t, err)
		return run, fake
	}

	seq, _ := runWith(1)
	par, fake := runWith(3)

	assert.Equal(t, seq.Report, par.Report)
	assert.Equal(t, seq.Instances, par.Instances)
	assert.Equal(t, 6, par.Instances)
	assert.Len(t, par.dirs.files, 2, "one listing per reference directory")
	require.Len(t, fake.Generators(), 3)
	for _, g := range fake.Generators() {
		assert.Zero(t, g.Overlaps())
		assert.True(t, g.Closed())
	}
}

func TestCompareImages(t *testing.T) {
	root := testutil.SceneTree(t, map[string]string{"geometry/tri.json": triScene})
	writeReferences(t, root)

	cfg := testConfig(t, root)
	cfg.Candidates = t.TempDir()
	cfg.Methods = []string{"ssim", "psnr"}
	cfg.Thresholds = map[string]float64{"ssim": 0.9, "psnr": 30}
	require.NoError(t, evaluate.WritePNG(filepath.Join(cfg.Candidates, "geometry", "tri_0_color.png"), gray(128)))

	fake := &testutil.Backend{}
	run, err := newTestHarness(fake, cfg).CompareImages(context.Background())
	require.NoError(t, err)

	assert.Empty(t, fake.Generators())
	assert.Equal(t, 2, run.Instances)
	assert.Equal(t, 2, run.Summary.Passed)
	assert.Len(t, run.Warnings, 3, "tri_0 depth and both tri_90 channels lack candidates")
	assert.Nil(t, run.Report.Child("geometry_tri").Child("tri_90"))
	assert.FileExists(t, filepath.Join(cfg.Output, report.FileName))
	assert.Len(t, run.dirs.files, 2, "reference and candidate directories listed once each")
}

func TestQueryFeatures(t *testing.T) {
	set := feature.Set{{Name: "ANARI_KHR_GEOMETRY_TRIANGLE", Available: true}}
	fake := &testutil.Backend{Features: set}

	got, err := newTestHarness(fake, testConfig(t, t.TempDir())).QueryFeatures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, set, got)
	assert.True(t, fake.Closed())
}

func TestQueryMetadata(t *testing.T) {
	fake := &testutil.Backend{}

	params, err := newTestHarness(fake, testConfig(t, t.TempDir())).QueryMetadata(context.Background())
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "image_width", params[0].Name)
	require.Len(t, fake.Generators(), 1)
	assert.True(t, fake.Generators()[0].Closed())
}

func TestCheckObjectProperties_Golden(t *testing.T) {
	root := testutil.SceneTree(t, map[string]string{
		"geometry/tri.json": `{
  "sceneParameters": {"image_width": 4, "image_height": 4},
  "permutations": {"angle": [0, 90]},
  "boundsTolerance": 0.1,
  "metaData": {"0": {"bounds": {"world": [[0, 0, 0], [2, 1, 1]]}}}
}`,
	})

	run, err := newTestHarness(&testutil.Backend{}, testConfig(t, root)).CheckObjectProperties(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, run.Summary.BoundsFailures)
	assert.True(t, run.Failed())

	data, err := value.MarshalIndent(run.Report)
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "check_object_properties", data)
}

func TestFromFile(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "default", cfg.Renderer)
	assert.Equal(t, "all", cfg.TestScenes)
	assert.Equal(t, []string{"ssim"}, cfg.Methods)
	assert.Empty(t, cfg.Thresholds)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, cfg.Output, cfg.candidateRoot())

	cfg.Candidates = "rendered"
	assert.Equal(t, "rendered", cfg.candidateRoot())
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
