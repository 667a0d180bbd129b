package driver

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/feature"
	"github.com/ux3d/ANARI-SDK/internal/scene"
)

// GeneratorFactory opens a generator owned exclusively by one worker.
type GeneratorFactory func() (backend.Generator, error)

// Pool runs scenes across workers, each with its own generator.
type Pool struct {
	Workers         int
	Open            GeneratorFactory
	Features        feature.Set
	IncludeVariants bool
	Logger          *slog.Logger
}

// Run partitions defs round-robin across the workers and returns the
// combined result in the same order as a sequential run. A generator
// that cannot be opened aborts the whole run.
func (p *Pool) Run(ctx context.Context, defs []*scene.Definition, op Operation) (Result, error) {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(defs) {
		workers = max(len(defs), 1)
	}

	perScene := make([]Result, len(defs))
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			gen, err := p.Open()
			if err != nil {
				return err
			}
			defer gen.Close()

			d := &Driver{
				Generator:       gen,
				Features:        p.Features,
				IncludeVariants: p.IncludeVariants,
				Logger:          p.Logger,
			}
			for i := w; i < len(defs); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				perScene[i] = d.Run(defs[i:i+1], op)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	for _, r := range perScene {
		res.append(r)
	}
	return res, nil
}
