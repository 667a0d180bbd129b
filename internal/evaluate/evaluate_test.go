package evaluate

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ux3d/ANARI-SDK/internal/metric"
	"github.com/ux3d/ANARI-SDK/internal/scene"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

type fixture struct {
	refDir, candDir string
	instance        scene.Instance
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	def := &scene.Definition{Category: "geometry", Name: "tri", Path: filepath.Join(root, "scenes", "geometry", "tri.json")}
	in := scene.Instance{Scene: def, Permutation: "0"}
	return fixture{
		refDir:   in.ReferenceDir(),
		candDir:  in.CandidateDir(filepath.Join(root, "out")),
		instance: in,
	}
}

func (f fixture) globs(t *testing.T) (refs, cands []string) {
	t.Helper()
	refs, err := Glob(f.refDir)
	require.NoError(t, err)
	cands, err = Glob(f.candDir)
	require.NoError(t, err)
	return refs, cands
}

func TestEvaluator_BothChannels(t *testing.T) {
	f := newFixture(t)
	gray := color.NRGBA{128, 128, 128, 255}
	writePNG(t, filepath.Join(f.refDir, "ref_tri_0_color.png"), 8, 8, gray)
	writePNG(t, filepath.Join(f.refDir, "ref_tri_0_depth.png"), 8, 8, gray)
	writePNG(t, filepath.Join(f.candDir, "tri_0_color.png"), 8, 8, gray)
	writePNG(t, filepath.Join(f.candDir, "tri_0_depth.png"), 8, 8, color.NRGBA{120, 128, 128, 255})

	e := &Evaluator{
		Methods:    []string{metric.SSIM, metric.PSNR},
		Thresholds: map[string]float64{metric.SSIM: 0.9, metric.PSNR: 50},
	}
	refs, cands := f.globs(t)

	out := e.Evaluate(f.instance, refs, cands)

	assert.Empty(t, out.Skipped)
	require.Contains(t, out.Channels, scene.ChannelColor)
	require.Contains(t, out.Channels, scene.ChannelDepth)

	colorRes := out.Channels[scene.ChannelColor]
	assert.Len(t, colorRes.Scores, 2)
	assert.InDelta(t, 1.0, colorRes.Scores[metric.SSIM].Value, 1e-9)
	assert.True(t, *colorRes.Scores[metric.SSIM].Passed)
	assert.Equal(t, metric.MaxPSNR, colorRes.Scores[metric.PSNR].Value)
	assert.False(t, colorRes.Failed())

	depth := out.Channels[scene.ChannelDepth]
	assert.Len(t, depth.Scores, 1, "depth is always scored with psnr only")
	require.Contains(t, depth.Scores, metric.PSNR)
	assert.False(t, *depth.Scores[metric.PSNR].Passed)
	assert.True(t, depth.Failed())
	assert.True(t, out.Failed())
}

func TestEvaluator_MissingFilesSkipChannel(t *testing.T) {
	f := newFixture(t)
	white := color.White
	writePNG(t, filepath.Join(f.refDir, "ref_tri_0_color.png"), 4, 4, white)
	writePNG(t, filepath.Join(f.candDir, "tri_0_color.png"), 4, 4, white)
	writePNG(t, filepath.Join(f.candDir, "tri_0_depth.png"), 4, 4, white)
	writePNG(t, filepath.Join(f.refDir, "ref_tri_00_depth.png"), 4, 4, white)

	e := &Evaluator{Methods: []string{metric.SSIM}}
	refs, cands := f.globs(t)

	out := e.Evaluate(f.instance, refs, cands)

	assert.Contains(t, out.Channels, scene.ChannelColor)
	assert.NotContains(t, out.Channels, scene.ChannelDepth)
	require.Len(t, out.Skipped, 1)
	assert.Contains(t, out.Skipped[0], "ref_tri_0_depth.png")
	assert.False(t, out.Failed())
}

func TestEvaluator_MissingCandidate(t *testing.T) {
	f := newFixture(t)
	writePNG(t, filepath.Join(f.refDir, "ref_tri_0_color.png"), 4, 4, color.White)
	writePNG(t, filepath.Join(f.refDir, "ref_tri_0_depth.png"), 4, 4, color.White)

	refs, cands := f.globs(t)
	out := (&Evaluator{Methods: []string{metric.PSNR}}).Evaluate(f.instance, refs, cands)

	assert.Empty(t, out.Channels)
	assert.Len(t, out.Skipped, 2)
	assert.Contains(t, out.Skipped[0], "candidate image tri_0_color.png not found")
}

func TestEvaluator_CorruptImageSkipsChannel(t *testing.T) {
	f := newFixture(t)
	writePNG(t, filepath.Join(f.refDir, "ref_tri_0_color.png"), 4, 4, color.White)
	require.NoError(t, os.MkdirAll(f.candDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.candDir, "tri_0_color.png"), []byte("not a png"), 0o644))

	refs, cands := f.globs(t)
	out := (&Evaluator{Methods: []string{metric.PSNR}}).Evaluate(f.instance, refs, cands)

	assert.Empty(t, out.Channels)
	require.Len(t, out.Skipped, 2)
	assert.Contains(t, out.Skipped[0], "decode")
}

func TestEvaluateImages_Rescale(t *testing.T) {
	ref := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	cand := image.NewNRGBA(image.Rect(0, 0, 8, 8))

	res, err := EvaluateImages(ref, cand, []string{metric.PSNR}, nil)
	require.NoError(t, err)

	assert.Equal(t, ref.Bounds().Size(), res.Candidate.Bounds().Size())
	assert.Nil(t, res.Scores[metric.PSNR].Passed)
	assert.Equal(t, metric.MaxPSNR, res.Scores[metric.PSNR].Value)
}

func TestEvaluateImages_UnknownMethod(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	_, err := EvaluateImages(img, img, []string{"mse"}, nil)
	assert.Error(t, err)
}

func TestChannelResult_ToValue(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	res, err := EvaluateImages(img, img, []string{metric.SSIM}, map[string]float64{metric.SSIM: 0.5})
	require.NoError(t, err)

	node := res.ToValue()

	score, ok := node.Lookup(KeyMetrics, metric.SSIM, KeyScore)
	require.True(t, ok)
	assert.Equal(t, value.Number(1), score)

	passed, ok := node.Lookup(KeyMetrics, metric.SSIM, KeyPassed)
	require.True(t, ok)
	assert.Equal(t, value.Bool(true), passed)

	images := node.Child(KeyImages)
	for _, role := range ImageRoles {
		blob, ok := images[role].(value.Blob)
		require.True(t, ok, role)
		_, ok = blob.Data.(image.Image)
		assert.True(t, ok, role)
	}
}

func TestFind(t *testing.T) {
	files := []string{"/a/ref_x_0_color.png", "/a/ref_x_00_color.png"}

	got, ok := Find(files, "ref_x_0_color.png")
	assert.True(t, ok)
	assert.Equal(t, "/a/ref_x_0_color.png", got)

	_, ok = Find(files, "ref_x_color.png")
	assert.False(t, ok)
}

func TestGlob_MissingDir(t *testing.T) {
	files, err := Glob(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, files)
}
