package scene

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/ux3d/ANARI-SDK/internal/value"
)

//go:embed default_scene.json
var defaultSceneJSON []byte

// DefaultDocument returns the raw embedded default scene document.
func DefaultDocument() []byte {
	out := make([]byte, len(defaultSceneJSON))
	copy(out, defaultSceneJSON)
	return out
}

// Resolve parses a default document and an override document and
// deep-merges the override over the default. Neither input is modified.
func Resolve(defaultDoc, overrideDoc []byte) (value.Object, error) {
	base, err := value.ParseObject(defaultDoc)
	if err != nil {
		return nil, &ConfigError{Scene: "default", Err: err}
	}
	override, err := value.ParseObject(overrideDoc)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	return value.Merge(base, override), nil
}

// Loader reads scene files relative to a scene root.
type Loader struct {
	Root       string
	DefaultDoc []byte
}

// NewLoader returns a Loader for root using the embedded default document.
func NewLoader(root string) *Loader {
	return &Loader{Root: root, DefaultDoc: defaultSceneJSON}
}

// LoadFile reads, merges and validates one scene file. JSON and CUE
// files are accepted. Every failure is a *ConfigError.
func (l *Loader) LoadFile(path string) (*Definition, error) {
	category, name := l.identify(path)
	id := name
	if category != "" {
		id = category + "/" + name
	}
	fail := func(err error) (*Definition, error) {
		return nil, &ConfigError{Scene: id, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		if data, err = exportCUE(path, data); err != nil {
			return fail(err)
		}
	}

	doc, err := Resolve(l.DefaultDoc, data)
	if err != nil {
		if ce, ok := err.(*ConfigError); ok && ce.Scene == "" {
			ce.Scene = id
		}
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return fail(err)
	}

	order, err := axisKeyOrder(data, l.DefaultDoc)
	if err != nil {
		return fail(err)
	}
	def, err := newDefinition(doc, order)
	if err != nil {
		return fail(err)
	}
	def.Category = category
	def.Name = name
	def.Path = path
	return def, nil
}

// LoadAll loads every path, stopping at the first failure.
func (l *Loader) LoadAll(paths []string) ([]*Definition, error) {
	defs := make([]*Definition, 0, len(paths))
	for _, p := range paths {
		def, err := l.LoadFile(p)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// identify derives the category and name from a scene path. The category
// is the parent directory relative to the root, slash-separated.
func (l *Loader) identify(path string) (category, name string) {
	name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	rel, err := filepath.Rel(l.Root, filepath.Dir(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", name
	}
	return filepath.ToSlash(rel), name
}
