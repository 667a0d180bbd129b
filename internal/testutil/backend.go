package testutil

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/feature"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Backend is a recording fake backend.
type Backend struct {
	Features     feature.Set
	FeaturesErr  error
	GeneratorErr error

	// Bounds computes the bounds of a committed parameter set. Nil
	// returns a unit world box.
	Bounds func(params value.Object) backend.Bounds

	// Shade picks the gray level of rendered frames. Nil renders 128.
	Shade func(params value.Object) uint8

	FrameDuration time.Duration

	mu         sync.Mutex
	generators []*Generator
	closed     bool
}

// QueryFeatures implements backend.Backend.
func (b *Backend) QueryFeatures(string) (feature.Set, error) {
	return b.Features, b.FeaturesErr
}

// NewGenerator implements backend.Backend.
func (b *Backend) NewGenerator(device string) (backend.Generator, error) {
	if b.GeneratorErr != nil {
		return nil, b.GeneratorErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	g := &Generator{owner: b, Device: device, staged: value.Object{}}
	b.generators = append(b.generators, g)
	return g, nil
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Generators returns every generator opened so far.
func (b *Backend) Generators() []*Generator {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Generator(nil), b.generators...)
}

// Generator is a recording fake generator. It records every call in
// order and counts calls that overlapped another call on the same
// generator.
type Generator struct {
	Device string

	owner     *Backend
	mu        sync.Mutex
	calls     []string
	staged    value.Object
	committed value.Object
	closed    bool

	inFlight atomic.Int32
	overlaps atomic.Int32
}

func (g *Generator) enter(call string) func() {
	if g.inFlight.Add(1) > 1 {
		g.overlaps.Add(1)
	}
	g.mu.Lock()
	g.calls = append(g.calls, call)
	g.mu.Unlock()
	time.Sleep(time.Microsecond)
	return func() { g.inFlight.Add(-1) }
}

// Calls returns the recorded calls, e.g. "reset", "set seed=1",
// "commit", "render default".
func (g *Generator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// Overlaps counts calls that ran while another call was in flight.
func (g *Generator) Overlaps() int {
	return int(g.overlaps.Load())
}

// Committed returns the parameters of the last commit.
func (g *Generator) Committed() value.Object {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.committed
}

// ResetAllParameters implements backend.Generator.
func (g *Generator) ResetAllParameters() {
	defer g.enter("reset")()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.staged = value.Object{}
}

// SetParameter implements backend.Generator.
func (g *Generator) SetParameter(name string, v value.Value) error {
	defer g.enter(fmt.Sprintf("set %s=%s", name, value.Fragment(v)))()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.staged[name] = v
	return nil
}

// Commit implements backend.Generator.
func (g *Generator) Commit() error {
	defer g.enter("commit")()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.committed = value.Merge(value.Object{}, g.staged)
	return nil
}

// Bounds implements backend.Generator.
func (g *Generator) Bounds() (backend.Bounds, error) {
	defer g.enter("bounds")()
	params := g.Committed()
	if params == nil {
		return backend.Bounds{}, errors.New("not committed")
	}
	if g.owner.Bounds != nil {
		return g.owner.Bounds(params), nil
	}
	return backend.Bounds{World: backend.Box{{0, 0, 0}, {1, 1, 1}}}, nil
}

// RenderScene implements backend.Generator. Frames are solid gray images
// sized by the image_width and image_height parameters (default 4x4).
func (g *Generator) RenderScene(renderer string, viewDistance float64) (backend.Frame, error) {
	defer g.enter("render " + renderer)()
	params := g.Committed()
	if params == nil {
		return backend.Frame{}, errors.New("not committed")
	}

	w, h := 4, 4
	if n, ok := value.AsFloat(params["image_width"]); ok {
		w = int(n)
	}
	if n, ok := value.AsFloat(params["image_height"]); ok {
		h = int(n)
	}
	shade := uint8(128)
	if g.owner.Shade != nil {
		shade = g.owner.Shade(params)
	}

	c := image.NewGray(image.Rect(0, 0, w, h))
	d := image.NewGray(image.Rect(0, 0, w, h))
	for i := range c.Pix {
		c.Pix[i] = shade
		d.Pix[i] = 255 - shade
	}
	return backend.Frame{Color: c, Depth: d}, nil
}

// FrameDuration implements backend.Generator.
func (g *Generator) FrameDuration() time.Duration {
	return g.owner.FrameDuration
}

// Parameters implements backend.Generator.
func (g *Generator) Parameters() []backend.ParameterInfo {
	return []backend.ParameterInfo{
		{Name: "image_width", Type: "uint32", Default: value.Number(4), Description: "Width of the image"},
		{Name: "image_height", Type: "uint32", Default: value.Number(4), Description: "Height of the image"},
	}
}

// Close implements backend.Generator.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// Closed reports whether Close was called.
func (g *Generator) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
