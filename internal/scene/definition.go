package scene

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Scene document keys.
const (
	KeySceneParameters  = "sceneParameters"
	KeyMetaData         = "metaData"
	KeyRequiredFeatures = "requiredFeatures"
	KeyPermutations     = "permutations"
	KeyVariants         = "variants"
	KeyBoundsTolerance  = "boundsTolerance"
)

// Axis is one named test dimension with its ordered values.
type Axis struct {
	Name   string
	Values []value.Value
}

// Definition is one parsed, merged and validated scene. It is read-only
// for the lifetime of a run.
type Definition struct {
	// Category is the directory the scene file lives in, relative to the
	// scene root. Empty for scenes at the root.
	Category string

	// Name is the scene file name without extension.
	Name string

	// Path is the scene file path.
	Path string

	// Doc is the merged document.
	Doc value.Object

	SceneParameters value.Object
	MetaData        value.Object
	Permutations    []Axis
	Variants        []Axis
	BoundsTolerance float64

	requiredFeatures []string
	featuresDeclared bool
}

// TestName identifies the scene in reports: "<category>_<name>".
func (d *Definition) TestName() string {
	if d.Category == "" {
		return d.Name
	}
	return strings.ReplaceAll(d.Category, "/", "_") + "_" + d.Name
}

// ID is the scene's slash-separated identifier used by scene filters.
func (d *Definition) ID() string {
	if d.Category == "" {
		return d.Name
	}
	return d.Category + "/" + d.Name
}

// Dir is the directory holding the scene file and its reference images.
func (d *Definition) Dir() string {
	return filepath.Dir(d.Path)
}

// RequiredFeatures implements feature.Gated.
func (d *Definition) RequiredFeatures() ([]string, bool) {
	return d.requiredFeatures, d.featuresDeclared
}

// ReferenceMetaData returns the metaData entry for a permutation key.
func (d *Definition) ReferenceMetaData(permutation string) (value.Object, bool) {
	if d.MetaData == nil {
		return nil, false
	}
	entry, ok := d.MetaData[permutation].(value.Object)
	return entry, ok
}

// newDefinition extracts the typed fields from a merged document.
// axisOrder carries the declaration order of permutation and variant keys
// recovered from the raw sources.
func newDefinition(doc value.Object, axisOrder map[string][]string) (*Definition, error) {
	d := &Definition{Doc: doc}

	d.SceneParameters = doc.Child(KeySceneParameters)
	if d.SceneParameters == nil {
		d.SceneParameters = value.Object{}
	}
	d.MetaData = doc.Child(KeyMetaData)

	if raw, ok := doc[KeyRequiredFeatures]; ok {
		arr, ok := raw.(value.Array)
		if !ok {
			return nil, fmt.Errorf("%s must be an array", KeyRequiredFeatures)
		}
		d.featuresDeclared = true
		for i, v := range arr {
			s, ok := value.AsString(v)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", KeyRequiredFeatures, i)
			}
			d.requiredFeatures = append(d.requiredFeatures, s)
		}
	}

	var err error
	if d.Permutations, err = axes(doc, KeyPermutations, axisOrder[KeyPermutations]); err != nil {
		return nil, err
	}
	if d.Variants, err = axes(doc, KeyVariants, axisOrder[KeyVariants]); err != nil {
		return nil, err
	}

	if raw, ok := doc[KeyBoundsTolerance]; ok {
		tol, ok := value.AsFloat(raw)
		if !ok {
			return nil, fmt.Errorf("%s must be a number", KeyBoundsTolerance)
		}
		d.BoundsTolerance = tol
	}

	return d, nil
}

// axes reads one axis mapping in declaration order. Keys missing from
// order are appended in sorted order.
func axes(doc value.Object, key string, order []string) ([]Axis, error) {
	raw, ok := doc[key]
	if !ok {
		return nil, nil
	}
	obj, ok := raw.(value.Object)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", key)
	}

	names := make([]string, 0, len(obj))
	seen := make(map[string]bool, len(obj))
	for _, name := range order {
		if _, ok := obj[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	for _, name := range obj.SortedKeys() {
		if !seen[name] {
			names = append(names, name)
		}
	}

	out := make([]Axis, 0, len(names))
	for _, name := range names {
		values, ok := obj[name].(value.Array)
		if !ok {
			return nil, fmt.Errorf("%s.%s must be an array", key, name)
		}
		out = append(out, Axis{Name: name, Values: values})
	}
	return out, nil
}
