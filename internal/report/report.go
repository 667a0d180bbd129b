// Package report folds per-instance partial results into one report,
// writes the report's images to disk and renders the result.
//
// A report is a value.Object shaped
//
//	test_name → instance_name → {
//	    requiredFeatures?, color?, depth?, frameDuration?, property_check?
//	}
//
// where each channel entry is an evaluation node produced by package
// evaluate. Partial results are folded with value.Merge, the same rule
// that resolves scene documents.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Instance-level keys.
const (
	KeyRequiredFeatures = "requiredFeatures"
	KeyFrameDuration    = "frameDuration"
	KeyPropertyCheck    = "property_check"
)

// FileName is the report file written to the output root.
const FileName = "report.json"

// Merge folds partial reports into one. The result does not depend on
// the order of partials whose keys are disjoint.
func Merge(partials []value.Object) value.Object {
	return value.MergeAll(partials...)
}

// Entry builds the partial report of one instance.
func Entry(testName, instanceName string, fields value.Object) value.Object {
	return value.Object{testName: value.Object{instanceName: fields}}
}

// WriteJSON writes the report as indented canonical JSON. Images must have
// been persisted first.
func WriteJSON(path string, report value.Object) error {
	data, err := value.MarshalIndent(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
