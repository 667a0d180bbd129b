package scene

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FilterAll selects every scene.
const FilterAll = "all"

// Discover walks root for scene files and returns the paths selected by
// filter, sorted. A filter is "all", a category, a "category/name" id or a
// comma-separated list of those. A selector that matches nothing is an
// error.
func Discover(root, filter string) ([]string, error) {
	var all []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".cue":
			all = append(all, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover scenes in %s: %w", root, err)
	}
	sort.Strings(all)

	selectors := parseFilter(filter)
	if selectors == nil {
		return all, nil
	}

	l := &Loader{Root: root}
	matched := make(map[string]bool, len(selectors))
	var out []string
	for _, path := range all {
		category, name := l.identify(path)
		id := name
		if category != "" {
			id = category + "/" + name
		}
		hit := false
		for _, sel := range selectors {
			if sel == id || sel == category || strings.HasPrefix(category, sel+"/") {
				matched[sel] = true
				hit = true
			}
		}
		if hit {
			out = append(out, path)
		}
	}

	for _, sel := range selectors {
		if !matched[sel] {
			return nil, fmt.Errorf("no scenes match %q under %s", sel, root)
		}
	}
	return out, nil
}

// parseFilter splits a filter into selectors. nil means everything.
func parseFilter(filter string) []string {
	var selectors []string
	for _, part := range strings.Split(filter, ",") {
		part = strings.Trim(strings.TrimSpace(part), "/")
		if part == "" {
			continue
		}
		if part == FilterAll {
			return nil
		}
		selectors = append(selectors, part)
	}
	return selectors
}
