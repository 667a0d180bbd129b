package value

import "strconv"

// Fragment renders a value as a file-name fragment. Strings are used
// verbatim, numbers via formatNumber, booleans as true/false, and
// composite values as their canonical JSON text.
func Fragment(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Number:
		return formatNumber(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	case Null, nil:
		return "null"
	default:
		data, err := MarshalCanonical(v)
		if err != nil {
			return TypeName(v)
		}
		return string(data)
	}
}
