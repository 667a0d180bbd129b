package backend

import (
	"fmt"

	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Box is an axis-aligned bounding box stored as two corners. The corners
// are not required to be ordered; consumers sort each axis.
type Box [2][3]float64

// Extent returns the ordered min and max of the box along axis.
func (b Box) Extent(axis int) (lo, hi float64) {
	lo, hi = b[0][axis], b[1][axis]
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// Union returns the smallest box containing b and o.
func (b Box) Union(o Box) Box {
	var out Box
	for axis := 0; axis < 3; axis++ {
		blo, bhi := b.Extent(axis)
		olo, ohi := o.Extent(axis)
		out[0][axis] = min(blo, olo)
		out[1][axis] = max(bhi, ohi)
	}
	return out
}

// Bounds groups the boxes reported for one committed scene.
type Bounds struct {
	World     Box
	Instances []Box
	Groups    []Box
}

// ToValue encodes the bounds in the metaData layout used by scene files:
//
//	{"world": [[x,y,z],[x,y,z]], "instances": [...], "groups": [...]}
func (b Bounds) ToValue() value.Object {
	boxes := func(list []Box) value.Array {
		out := make(value.Array, len(list))
		for i, box := range list {
			out[i] = box.ToValue()
		}
		return out
	}
	return value.Object{
		"world":     b.World.ToValue(),
		"instances": boxes(b.Instances),
		"groups":    boxes(b.Groups),
	}
}

// ToValue encodes the box as [[x,y,z],[x,y,z]].
func (b Box) ToValue() value.Array {
	corner := func(c [3]float64) value.Array {
		return value.Array{value.Number(c[0]), value.Number(c[1]), value.Number(c[2])}
	}
	return value.Array{corner(b[0]), corner(b[1])}
}

// BoxFromValue decodes [[x,y,z],[x,y,z]].
func BoxFromValue(v value.Value) (Box, error) {
	var box Box
	arr, ok := v.(value.Array)
	if !ok || len(arr) != 2 {
		return box, fmt.Errorf("bounding box must be an array of two corners, got %s", value.TypeName(v))
	}
	for i, c := range arr {
		corner, ok := c.(value.Array)
		if !ok || len(corner) != 3 {
			return box, fmt.Errorf("corner %d must be an array of three numbers", i)
		}
		for axis, n := range corner {
			f, ok := value.AsFloat(n)
			if !ok {
				return box, fmt.Errorf("corner %d axis %d: expected number, got %s", i, axis, value.TypeName(n))
			}
			box[i][axis] = f
		}
	}
	return box, nil
}

// BoxesFromValue decodes an array of boxes.
func BoxesFromValue(v value.Value) ([]Box, error) {
	arr, ok := v.(value.Array)
	if !ok {
		return nil, fmt.Errorf("expected array of bounding boxes, got %s", value.TypeName(v))
	}
	out := make([]Box, 0, len(arr))
	for i, elem := range arr {
		box, err := BoxFromValue(elem)
		if err != nil {
			return nil, fmt.Errorf("box %d: %w", i, err)
		}
		out = append(out, box)
	}
	return out, nil
}
