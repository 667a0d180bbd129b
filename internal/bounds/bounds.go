// Package bounds validates backend-reported bounding boxes against the
// reference bounds stored in a scene's metaData.
//
// A reference entry has the layout
//
//	{"bounds": {"world": [[x,y,z],[x,y,z]], "instances": [...], "groups": [...]}}
//
// Each axis of each box is compared on its sorted min and max. A value
// mismatches when it differs from the reference by more than the
// reference extent along that axis times the tolerance.
package bounds

import (
	"fmt"
	"math"
	"strings"

	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Diagnostic texts.
const (
	AllCorrect = "all bounds correct"
	Missing    = "bounds missing"
)

// KeyBounds is the metaData key holding reference bounds.
const KeyBounds = "bounds"

var axisNames = [3]string{"X", "Y", "Z"}

// Outcome is the result of checking one instance.
type Outcome struct {
	Messages []string
}

// OK reports whether every checked box matched.
func (o Outcome) OK() bool {
	return len(o.Messages) == 0
}

// String renders the outcome as the diagnostic text recorded in reports.
func (o Outcome) String() string {
	if o.OK() {
		return AllCorrect
	}
	return strings.Join(o.Messages, "\n")
}

// CheckBox compares one computed box against its reference and returns
// one message per mismatching axis bound.
func CheckBox(label string, ref, computed backend.Box, tolerance float64) []string {
	var msgs []string
	for axis := 0; axis < 3; axis++ {
		rlo, rhi := ref.Extent(axis)
		clo, chi := computed.Extent(axis)
		allowed := (rhi - rlo) * tolerance

		if math.Abs(rlo-clo) > allowed {
			msgs = append(msgs, mismatch(label, axis, "min", rlo, clo, allowed))
		}
		if math.Abs(rhi-chi) > allowed {
			msgs = append(msgs, mismatch(label, axis, "max", rhi, chi, allowed))
		}
	}
	return msgs
}

func mismatch(label string, axis int, bound string, ref, got, allowed float64) string {
	return fmt.Sprintf("%s bounds %s %s mismatch: reference %g, computed %g, allowed deviation %g",
		label, axisNames[axis], bound, ref, got, allowed)
}

// Check validates computed bounds against a reference metaData entry.
// The world box, each instance box and each group box are checked when
// the reference provides them. A nil reference, or one without bounds
// data, yields a single Missing message.
func Check(reference value.Object, computed backend.Bounds, tolerance float64) Outcome {
	refBounds := reference.Child(KeyBounds)
	if refBounds == nil {
		return Outcome{Messages: []string{Missing}}
	}

	var out Outcome
	checked := false

	if raw, ok := refBounds["world"]; ok {
		checked = true
		box, err := backend.BoxFromValue(raw)
		if err != nil {
			out.Messages = append(out.Messages, fmt.Sprintf("world reference bounds invalid: %v", err))
		} else {
			out.Messages = append(out.Messages, CheckBox("world", box, computed.World, tolerance)...)
		}
	}

	for _, list := range []struct {
		key      string
		label    string
		computed []backend.Box
	}{
		{"instances", "instance", computed.Instances},
		{"groups", "group", computed.Groups},
	} {
		raw, ok := refBounds[list.key]
		if !ok {
			continue
		}
		checked = true
		out.Messages = append(out.Messages, checkList(list.label, raw, list.computed, tolerance)...)
	}

	if !checked {
		return Outcome{Messages: []string{Missing}}
	}
	return out
}

func checkList(label string, raw value.Value, computed []backend.Box, tolerance float64) []string {
	refs, err := backend.BoxesFromValue(raw)
	if err != nil {
		return []string{fmt.Sprintf("%s reference bounds invalid: %v", label, err)}
	}

	var msgs []string
	if len(refs) != len(computed) {
		msgs = append(msgs, fmt.Sprintf("%s count mismatch: reference %d, computed %d", label, len(refs), len(computed)))
	}
	for i, ref := range refs {
		if i >= len(computed) {
			break
		}
		msgs = append(msgs, CheckBox(fmt.Sprintf("%s %d", label, i), ref, computed[i], tolerance)...)
	}
	return msgs
}
