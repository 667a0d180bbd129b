package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"
)

// Value is a sealed interface over the document variants.
type Value interface {
	value() // Sealed - only the variants below implement it
}

// Null represents a JSON null.
type Null struct{}

func (Null) value() {}

// String represents a JSON string.
type String string

func (String) value() {}

// Number represents a JSON number. All numbers are float64; integral
// values survive round trips exactly up to 2^53.
type Number float64

func (Number) value() {}

// Bool represents a JSON boolean.
type Bool bool

func (Bool) value() {}

// Array is an ordered sequence of values.
type Array []Value

func (Array) value() {}

// Object maps keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Blob holds an in-memory payload attached to a document, such as a
// decoded image waiting to be written to disk. Blobs merge like any other
// leaf but cannot be marshaled.
type Blob struct {
	Data any
}

func (Blob) value() {}

// SortedKeys returns keys ordered by UTF-16 code units, matching the
// ordering used by MarshalCanonical.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Lookup walks nested objects along path. It returns false when any
// segment is missing or an intermediate value is not an Object.
func (obj Object) Lookup(path ...string) (Value, bool) {
	var cur Value = obj
	for _, key := range path {
		o, ok := cur.(Object)
		if !ok {
			return nil, false
		}
		cur, ok = o[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Child returns the Object stored under key, or nil when absent or not
// an Object.
func (obj Object) Child(key string) Object {
	o, _ := obj[key].(Object)
	return o
}

// AsFloat converts a Number to float64.
func AsFloat(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

// AsString converts a String to string.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// Parse decodes JSON bytes into a Value.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return FromAny(raw)
}

// ParseObject decodes JSON bytes that must hold an object at the top level.
func ParseObject(data []byte) (Object, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %s", TypeName(v))
	}
	return obj, nil
}

// FromAny converts the output of encoding/json, yaml.v3 or CUE export into
// a Value. Integers of any Go width become Number.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToAny converts a Value back into plain Go values (map[string]any,
// []any, float64, string, bool, nil). Blobs are returned unchanged.
func ToAny(v Value) any {
	switch val := v.(type) {
	case Null, nil:
		return nil
	case String:
		return string(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	case Blob:
		return val
	default:
		return nil
	}
}

// TypeName names the variant of v for diagnostics.
func TypeName(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case Object:
		return "object"
	case Blob:
		return "blob"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	o, err := ParseObject(data)
	if err != nil {
		return err
	}
	*obj = o
	return nil
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// formatNumber renders integral values without a fraction and everything
// else in the shortest form that round-trips.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
