// Package driver runs an operation against every test instance of a set
// of scenes.
//
// For each scene accepted by the feature gate the generator is reset and
// loaded with the scene's base parameters. Each expanded instance then
// applies its axis values on top, commits, and calls the operation. A
// generator is a single mutable session, so one Driver runs strictly one
// instance at a time. A Pool gives each worker its own generator.
package driver

import (
	"fmt"
	"log/slog"

	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/feature"
	"github.com/ux3d/ANARI-SDK/internal/scene"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Operation produces the partial report of one instance.
type Operation func(def *scene.Definition, gen backend.Generator, in scene.Instance) (value.Object, error)

// Result collects the outcome of a run.
type Result struct {
	// Partials holds one entry per successful instance in scene-then-
	// instance order.
	Partials []value.Object

	// Rejected lists scenes refused by the feature gate.
	Rejected []feature.Rejection[*scene.Definition]

	// Failures holds one message per instance that could not be
	// configured or whose operation failed.
	Failures []string

	// Instances counts instances the operation was invoked for.
	Instances int
}

func (r *Result) append(o Result) {
	r.Partials = append(r.Partials, o.Partials...)
	r.Rejected = append(r.Rejected, o.Rejected...)
	r.Failures = append(r.Failures, o.Failures...)
	r.Instances += o.Instances
}

// Driver drives one generator.
type Driver struct {
	Generator       backend.Generator
	Features        feature.Set
	IncludeVariants bool
	Logger          *slog.Logger
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Run gates defs by the driver's feature set and runs op for every
// instance of every accepted scene.
func (d *Driver) Run(defs []*scene.Definition, op Operation) Result {
	accepted, rejected := feature.Filter(defs, d.Features)

	res := Result{Rejected: rejected}
	for _, r := range rejected {
		d.logger().Warn("scene rejected", "scene", r.Item.ID(), "reasons", r.Reasons)
	}
	for _, def := range accepted {
		res.append(d.runScene(def, op))
	}
	return res
}

func (d *Driver) runScene(def *scene.Definition, op Operation) Result {
	var res Result
	log := d.logger().With("scene", def.ID())
	gen := d.Generator

	gen.ResetAllParameters()
	for _, name := range def.SceneParameters.SortedKeys() {
		if err := gen.SetParameter(name, def.SceneParameters[name]); err != nil {
			msg := fmt.Sprintf("%s: set parameter %s: %v", def.ID(), name, err)
			log.Warn("scene skipped", "error", msg)
			res.Failures = append(res.Failures, msg)
			return res
		}
	}

	for _, in := range scene.Expand(def, d.IncludeVariants) {
		partial, err := d.runInstance(def, in, op)
		if err != nil {
			msg := fmt.Sprintf("%s: %v", in.Stem(), err)
			log.Warn("instance failed", "instance", in.Stem(), "error", err)
			res.Failures = append(res.Failures, msg)
			continue
		}
		res.Instances++
		if partial != nil {
			res.Partials = append(res.Partials, partial)
		}
	}
	return res
}

func (d *Driver) runInstance(def *scene.Definition, in scene.Instance, op Operation) (value.Object, error) {
	gen := d.Generator
	for _, a := range in.Assignments {
		if err := gen.SetParameter(a.Parameter(), a.Value); err != nil {
			return nil, fmt.Errorf("set parameter %s: %w", a.Parameter(), err)
		}
	}
	if err := gen.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	d.logger().Debug("instance committed", "instance", in.Stem())
	return op(def, gen, in)
}
