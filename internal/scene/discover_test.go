package scene

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sceneTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range []string{
		"geometry/triangles.json",
		"geometry/quads.cue",
		"camera/distance.json",
		"camera/deep/far.json",
		".hidden/skip.json",
	} {
		writeScene(t, root, rel, `{"sceneParameters": {}}`)
	}
	writeScene(t, root, "geometry/ref_triangles_color.png", "png")
	return root
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(r)
	}
	return out
}

func TestDiscover(t *testing.T) {
	root := sceneTree(t)

	tests := []struct {
		filter string
		want   []string
	}{
		{"all", []string{"camera/deep/far.json", "camera/distance.json", "geometry/quads.cue", "geometry/triangles.json"}},
		{"", []string{"camera/deep/far.json", "camera/distance.json", "geometry/quads.cue", "geometry/triangles.json"}},
		{"geometry", []string{"geometry/quads.cue", "geometry/triangles.json"}},
		{"camera", []string{"camera/deep/far.json", "camera/distance.json"}},
		{"geometry/triangles", []string{"geometry/triangles.json"}},
		{"geometry/triangles, camera/distance", []string{"camera/distance.json", "geometry/triangles.json"}},
		{"camera/deep", []string{"camera/deep/far.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got, err := Discover(root, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rel(t, root, got))
		})
	}
}

func TestDiscover_UnknownSelector(t *testing.T) {
	root := sceneTree(t)

	_, err := Discover(root, "geometry,lighting")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `"lighting"`)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "absent"), "all")
	require.Error(t, err)
}

func TestLoader_NestedCategoryTestName(t *testing.T) {
	root := sceneTree(t)

	def, err := NewLoader(root).LoadFile(filepath.Join(root, "camera", "deep", "far.json"))
	require.NoError(t, err)

	assert.Equal(t, "camera/deep", def.Category)
	assert.Equal(t, "camera_deep_far", def.TestName())
}
