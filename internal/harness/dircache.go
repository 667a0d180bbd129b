package harness

import (
	"sync"

	"github.com/ux3d/ANARI-SDK/internal/evaluate"
)

// dirCache lists each directory once per run. Instances of one scene
// share a reference directory and drive calls it from several workers.
type dirCache struct {
	mu    sync.Mutex
	list  func(dir string) ([]string, error)
	files map[string][]string
}

func newDirCache() *dirCache {
	return &dirCache{list: evaluate.Glob, files: map[string][]string{}}
}

// Glob returns the PNG files in dir, listing it on first use. Errors are
// not cached.
func (c *dirCache) Glob(dir string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if files, ok := c.files[dir]; ok {
		return files, nil
	}
	files, err := c.list(dir)
	if err != nil {
		return nil, err
	}
	c.files[dir] = files
	return files, nil
}
