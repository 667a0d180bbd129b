package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/ux3d/ANARI-SDK/internal/backend/soft"
	"github.com/ux3d/ANARI-SDK/internal/testutil"
)

const triScene = `{
  "sceneParameters": {"image_width": 8, "image_height": 8},
  "permutations": {"primitiveCount": [1, 2]}
}`

type cliEnv struct {
	scenes string
	output string
	logs   string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	return cliEnv{
		scenes: testutil.SceneTree(t, map[string]string{"geometry/tri.json": triScene}),
		output: t.TempDir(),
		logs:   filepath.Join(t.TempDir(), "cts.log"),
	}
}

// execute runs the root command and returns stdout and the error.
func (env cliEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append(args, "--log-file", env.logs))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (env cliEnv) sceneArgs(command string) []string {
	return []string{command, "soft", "--scenes", env.scenes, "--output", env.output}
}

func TestRenderScenes(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute(t, env.sceneArgs("render_scenes")...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 instances")

	for _, name := range []string{"tri_1_color.png", "tri_1_depth.png", "tri_2_color.png", "tri_2_depth.png"} {
		assert.FileExists(t, filepath.Join(env.output, "geometry", name))
	}

	logs, err := os.ReadFile(env.logs)
	require.NoError(t, err)
	assert.Contains(t, string(logs), "[INFO ] loaded library soft")
	assert.Contains(t, string(logs), "run finished")
}

func TestRenderScenes_UnknownRendererFails(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute(t, append(env.sceneArgs("render_scenes"), "--renderer", "pathtracer")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "unknown renderer")
}

func TestUnknownLibrary(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute(t, "query_features", "missing", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInit, resp.Error.Code)
}

func TestMissingLibrary(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.execute(t, "query_features")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no library given")
}

func TestInvalidFlags(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.execute(t, append(env.sceneArgs("create_report"), "--comparison_methods", "mse")...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestQueryFeatures(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute(t, "query_features", "soft")
	require.NoError(t, err)
	assert.Contains(t, out, "ANARI_KHR_GEOMETRY_TRIANGLE")
	assert.Contains(t, out, "Available")

	out, err = env.execute(t, "query_features", "soft", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			Name      string `json:"name"`
			Available bool   `json:"available"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Data)
}

func TestQueryFeatures_UnknownDevice(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.execute(t, "query_features", "soft", "--device", "gpu0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQueryMetadata(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute(t, "query_metadata", "soft", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []ParameterResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, ParameterResult{
		Name:        "geometrySubtype",
		Type:        "string",
		Default:     "triangle",
		Description: "Which type of geometry to generate (triangle, quad or cube)",
	}, resp.Data[0])

	out, err = env.execute(t, "query_metadata", "soft")
	require.NoError(t, err)
	assert.Contains(t, out, "primitiveCount")
	assert.Contains(t, out, "uint32")
}

func TestCheckObjectProperties_BoundsMissing(t *testing.T) {
	env := newCLIEnv(t)

	args := []string{"check_object_properties", "soft", "--scenes", env.scenes}
	out, err := env.execute(t, args...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ geometry_tri/tri_1: bounds missing")
	assert.Contains(t, out, "✗ geometry_tri/tri_2: bounds missing")
}

// copyReferences turns the rendered candidates into the scene's references.
func copyReferences(t *testing.T, env cliEnv) {
	t.Helper()
	for _, name := range []string{"tri_1_color.png", "tri_1_depth.png", "tri_2_color.png", "tri_2_depth.png"} {
		data, err := os.ReadFile(filepath.Join(env.output, "geometry", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(env.scenes, "geometry", "ref_"+name), data, 0o644))
	}
}

func TestCompareImages(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.execute(t, env.sceneArgs("render_scenes")...)
	require.NoError(t, err)
	copyReferences(t, env)

	args := append(env.sceneArgs("compare_images"), "--thresholds", "0.99", "--format", "json")
	out, err := env.execute(t, args...)
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Data.Instances)
	assert.Equal(t, 2, resp.Data.Passed, "color SSIM of identical images")
	assert.Equal(t, 0, resp.Data.Failed)
	assert.Equal(t, 2, resp.Data.Unchecked, "depth PSNR has no threshold")
	assert.FileExists(t, filepath.Join(env.output, "report.json"))
}

func TestCreateReport_RecordsRun(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.execute(t, env.sceneArgs("render_scenes")...)
	require.NoError(t, err)
	copyReferences(t, env)

	db := filepath.Join(t.TempDir(), "runs.db")
	metrics := filepath.Join(t.TempDir(), "cts.prom")
	args := append(env.sceneArgs("create_report"),
		"--thresholds", "0.99", "--db", db, "--metrics", metrics, "--format", "json")
	out, err := env.execute(t, args...)

	// No scene declares metaData, so every bounds check fails.
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["passed"])
	assert.Equal(t, float64(2), data["bounds_failures"])
	assert.FileExists(t, metrics)

	out, err = env.execute(t, "history", "--db", db, "--format", "json")
	require.NoError(t, err)
	var history struct {
		Data []HistoryRun `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history.Data, 1)
	assert.Equal(t, resp.RunID, history.Data[0].ID)
	assert.Equal(t, "create_report", history.Data[0].Command)
	assert.Equal(t, "soft", history.Data[0].Library)

	out, err = env.execute(t, "history", "--db", db, "--metric", "geometry_tri/tri_1/color/ssim")
	require.NoError(t, err)
	assert.Contains(t, out, resp.RunID)
	assert.Contains(t, out, "passed")
}

func TestCreateReport_ConsoleReport(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.execute(t, env.sceneArgs("create_report")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Property checks")
	assert.Contains(t, out, "Report written to")
}

func TestHistory_Errors(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.execute(t, "history", "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")

	db := filepath.Join(t.TempDir(), "runs.db")
	require.NoError(t, os.WriteFile(db, nil, 0o644))
	_, err = env.execute(t, "history", "--db", db, "--metric", "geometry_tri/color")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --metric")
}

func TestHistory_Empty(t *testing.T) {
	env := newCLIEnv(t)
	db := filepath.Join(t.TempDir(), "runs.db")
	require.NoError(t, os.WriteFile(db, nil, 0o644))

	out, err := env.execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestResolve_FlagsOverrideConfigFile(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "cts.yaml", `
library: soft
renderer: fast
workers: 4
test_scenes: geometry
comparison_methods: [ssim, psnr]
thresholds: [0.9, 30]
`)
	opts := newRunOptions(&RootOptions{ConfigFile: path, LogFile: "ignored.log"})
	cmd := &cobra.Command{}
	addSceneFlags(cmd, opts)
	addRenderFlags(cmd, opts)
	require.NoError(t, cmd.ParseFlags([]string{"--workers", "2"}))

	f, err := opts.resolve(cmd, nil)
	require.NoError(t, err)

	assert.Equal(t, "soft", f.Library, "library from the file")
	assert.Equal(t, 2, f.Workers, "explicit flag wins")
	assert.Equal(t, "fast", f.Renderer, "unchanged flag keeps the file value")
	assert.Equal(t, "geometry", f.TestScenes)
	assert.Equal(t, "ANARI.log", f.LogFile, "log file flag was not set")
	assert.Equal(t, map[string]float64{"ssim": 0.9, "psnr": 30}, f.ThresholdMap())

	f, err = opts.resolve(cmd, []string{"other"})
	require.NoError(t, err)
	assert.Equal(t, "other", f.Library, "positional library wins")
}
