package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ux3d/ANARI-SDK/internal/scene"
)

// WriteFile writes content to root/rel, creating directories.
func WriteFile(t testing.TB, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// SceneTree writes scenes keyed by "category/name.json" under a fresh
// temporary root and returns the root.
func SceneTree(t testing.TB, scenes map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range scenes {
		WriteFile(t, root, rel, content)
	}
	return root
}

// LoadScenes discovers and loads every scene under root.
func LoadScenes(t testing.TB, root string) []*scene.Definition {
	t.Helper()
	paths, err := scene.Discover(root, scene.FilterAll)
	require.NoError(t, err)
	defs, err := scene.NewLoader(root).LoadAll(paths)
	require.NoError(t, err)
	return defs
}
