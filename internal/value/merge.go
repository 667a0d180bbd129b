package value

// Merge deep-merges override onto base and returns a new Object.
//
// For a key present in both where the base value is an Object and the
// override value is an Object, the merge recurses. Otherwise the override
// value replaces the base value outright. Keys only in base are kept and
// keys only in override are inserted verbatim. Neither input is modified.
//
// The same rule resolves scene configuration and folds result reports.
func Merge(base, override Object) Object {
	out := make(Object, len(base)+len(override))
	for k, v := range base {
		out[k] = Clone(v)
	}
	for k, ov := range override {
		if bo, ok := base[k].(Object); ok {
			if oo, ok := ov.(Object); ok {
				out[k] = Merge(bo, oo)
				continue
			}
		}
		out[k] = Clone(ov)
	}
	return out
}

// MergeAll folds objects left to right with Merge. It returns an empty
// Object when given none.
func MergeAll(objs ...Object) Object {
	out := Object{}
	for _, o := range objs {
		out = Merge(out, o)
	}
	return out
}

// Clone returns a deep copy of v. Blob payloads are shared, not copied.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case Object:
		out := make(Object, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	default:
		return v
	}
}
