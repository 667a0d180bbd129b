// Package backend defines the boundary between the conformance harness and
// a rendering backend.
//
// The harness never sees concrete device types. A Backend reports its
// capability flags and creates Generators; a Generator is a single mutable
// scene session bound to one device. Generators are not safe for
// concurrent use: at most one instance may be in flight per Generator.
package backend

import (
	"image"
	"time"

	"github.com/ux3d/ANARI-SDK/internal/feature"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// StatusFunc receives status and diagnostic messages emitted by a backend,
// possibly from goroutines the harness does not own.
type StatusFunc func(message string)

// Backend is a loaded rendering library.
type Backend interface {
	// QueryFeatures reports the capability flags of the named device.
	QueryFeatures(device string) (feature.Set, error)

	// NewGenerator opens a scene generator session on the named device.
	NewGenerator(device string) (Generator, error)

	// Close unloads the library.
	Close() error
}

// Generator is the scene-generator session the harness drives.
type Generator interface {
	// ResetAllParameters restores every parameter to its default.
	ResetAllParameters()

	// SetParameter stages a parameter value; it takes effect on Commit.
	SetParameter(name string, v value.Value) error

	// Commit builds the scene from the staged parameters.
	Commit() error

	// Bounds returns the world, instance and group bounding boxes of the
	// committed scene.
	Bounds() (Bounds, error)

	// RenderScene renders the committed scene with the named renderer.
	RenderScene(renderer string, viewDistance float64) (Frame, error)

	// FrameDuration reports how long the last RenderScene took on the device.
	FrameDuration() time.Duration

	// Parameters describes the parameters this generator understands.
	Parameters() []ParameterInfo

	// Close releases the device session.
	Close() error
}

// Frame is the output of one render.
type Frame struct {
	Color image.Image
	Depth image.Image
}

// ParameterInfo documents one generator parameter.
type ParameterInfo struct {
	Name        string
	Type        string
	Default     value.Value
	Description string
}
