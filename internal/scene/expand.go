package scene

import (
	"strings"

	"github.com/ux3d/ANARI-SDK/internal/value"
)

// VariantPrefix marks variant axes in the combined axis list. It is
// stripped before the parameter is applied to a generator.
const VariantPrefix = "var_"

const separator = "_"

// Assignment is one concrete value for one axis.
type Assignment struct {
	// Key is the axis key in the combined list, prefixed for variants.
	Key     string
	Value   value.Value
	Variant bool
}

// Parameter is the generator parameter name the assignment sets.
func (a Assignment) Parameter() string {
	if a.Variant {
		return strings.TrimPrefix(a.Key, VariantPrefix)
	}
	return a.Key
}

// Instance is one element of a scene's test matrix.
type Instance struct {
	Scene       *Definition
	Permutation string
	Variant     string
	Assignments []Assignment
}

// Stem names the instance: the scene name followed by the permutation
// and variant strings, each only when non-empty. Image files and
// reference lookups use this exact name.
func (in Instance) Stem() string {
	stem := in.Scene.Name
	if in.Permutation != "" {
		stem += separator + in.Permutation
	}
	if in.Variant != "" {
		stem += separator + in.Variant
	}
	return stem
}

// MetaDataKey is the key of this instance's entry in the scene metaData.
func (in Instance) MetaDataKey() string {
	return in.Permutation
}

type axisEntry struct {
	key     string
	values  []value.Value
	variant bool
}

// Expand returns the cartesian product of the scene's permutation axes
// and, when includeVariants is set, its variant axes. The last declared
// axis varies fastest. A scene without axes yields one instance with
// empty strings; an axis with no values yields none.
func Expand(def *Definition, includeVariants bool) []Instance {
	entries := make([]axisEntry, 0, len(def.Permutations)+len(def.Variants))
	for _, a := range def.Permutations {
		entries = append(entries, axisEntry{key: a.Name, values: a.Values})
	}
	if includeVariants {
		for _, a := range def.Variants {
			entries = append(entries, axisEntry{key: VariantPrefix + a.Name, values: a.Values, variant: true})
		}
	}

	total := 1
	for _, e := range entries {
		total *= len(e.values)
	}
	if total == 0 {
		return nil
	}

	out := make([]Instance, 0, total)
	idx := make([]int, len(entries))
	for n := 0; n < total; n++ {
		out = append(out, newInstance(def, entries, idx))

		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(entries[i].values) {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

func newInstance(def *Definition, entries []axisEntry, idx []int) Instance {
	var perm, variant strings.Builder
	assignments := make([]Assignment, len(entries))
	for i, e := range entries {
		v := e.values[idx[i]]
		assignments[i] = Assignment{Key: e.key, Value: v, Variant: e.variant}

		frag := separator + value.Fragment(v)
		if e.variant {
			variant.WriteString(frag)
		} else {
			perm.WriteString(frag)
		}
	}
	return Instance{
		Scene:       def,
		Permutation: strings.TrimPrefix(perm.String(), separator),
		Variant:     strings.TrimPrefix(variant.String(), separator),
		Assignments: assignments,
	}
}
