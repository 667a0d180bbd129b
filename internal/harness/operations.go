package harness

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/bounds"
	"github.com/ux3d/ANARI-SDK/internal/evaluate"
	"github.com/ux3d/ANARI-SDK/internal/feature"
	"github.com/ux3d/ANARI-SDK/internal/report"
	"github.com/ux3d/ANARI-SDK/internal/scene"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// RenderScenes renders every selected instance and writes its images
// under the output root. The run's report maps each instance to the
// written files and the frame duration.
func (h *Harness) RenderScenes(ctx context.Context) (*Run, error) {
	run := h.newRun(CommandRenderScenes)
	sess, err := h.openSession()
	if err != nil {
		return nil, err
	}
	defer sess.close()

	defs, err := h.loadScenes(run)
	if err != nil {
		return nil, err
	}

	op := func(def *scene.Definition, gen backend.Generator, in scene.Instance) (value.Object, error) {
		files, err := h.renderInstance(gen, in)
		if err != nil {
			return nil, err
		}
		files[report.KeyFrameDuration] = value.Number(gen.FrameDuration().Seconds())
		return report.Entry(def.TestName(), in.Stem(), files), nil
	}
	if err := h.drive(ctx, run, sess, defs, op); err != nil {
		return nil, err
	}
	return run, h.finish(ctx, run)
}

// CompareImages scores the candidates found under the candidate root
// against each scene's reference images without rendering. Evaluation
// images are persisted and report.json is written.
func (h *Harness) CompareImages(ctx context.Context) (*Run, error) {
	run := h.newRun(CommandCompareImages)
	sess, err := h.openSession()
	if err != nil {
		return nil, err
	}
	defer sess.close()

	defs, err := h.loadScenes(run)
	if err != nil {
		return nil, err
	}

	var partials []value.Object
	for _, def := range h.gate(run, sess, defs) {
		for _, in := range scene.Expand(def, h.cfg.IncludeVariants) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			run.Instances++
			candidates, err := run.dirs.Glob(in.CandidateDir(h.cfg.candidateRoot()))
			if err != nil {
				return nil, fmt.Errorf("list candidates: %w", err)
			}
			fields, err := h.evaluateInstance(run, in, candidates)
			if err != nil {
				return nil, err
			}
			if len(fields) == 0 {
				continue
			}
			partials = append(partials, report.Entry(def.TestName(), in.Stem(), fields))
		}
	}
	h.metrics.Instances.WithLabelValues(run.Command).Add(float64(run.Instances))
	run.Report = report.Merge(partials)

	if err := h.writeReport(run); err != nil {
		return nil, err
	}
	return run, h.finish(ctx, run)
}

// QueryFeatures reports the device's capability flags.
func (h *Harness) QueryFeatures(ctx context.Context) (feature.Set, error) {
	h.logger.Info("query features", "library", h.cfg.Library, "device", h.cfg.Device)
	sess, err := h.openSession()
	if err != nil {
		return nil, err
	}
	defer sess.close()
	return sess.features, nil
}

// QueryMetadata reports the parameters the scene generator understands.
func (h *Harness) QueryMetadata(ctx context.Context) ([]backend.ParameterInfo, error) {
	h.logger.Info("query metadata", "library", h.cfg.Library, "device", h.cfg.Device)
	sess, err := h.openSession()
	if err != nil {
		return nil, err
	}
	defer sess.close()

	gen, err := backend.OpenGenerator(sess.lib, h.cfg.Library, h.cfg.Device)
	if err != nil {
		return nil, err
	}
	defer gen.Close()
	return gen.Parameters(), nil
}

// CheckObjectProperties validates the bounds of every instance against
// its scene's metaData. The run's report holds one property_check text
// per instance.
func (h *Harness) CheckObjectProperties(ctx context.Context) (*Run, error) {
	run := h.newRun(CommandCheckObjectProperties)
	sess, err := h.openSession()
	if err != nil {
		return nil, err
	}
	defer sess.close()

	defs, err := h.loadScenes(run)
	if err != nil {
		return nil, err
	}

	op := func(def *scene.Definition, gen backend.Generator, in scene.Instance) (value.Object, error) {
		text, err := checkBounds(def, gen, in)
		if err != nil {
			return nil, err
		}
		return report.Entry(def.TestName(), in.Stem(), value.Object{report.KeyPropertyCheck: value.String(text)}), nil
	}
	if err := h.drive(ctx, run, sess, defs, op); err != nil {
		return nil, err
	}
	return run, h.finish(ctx, run)
}

// CreateReport renders, evaluates and bounds-checks every instance,
// persists the evaluation images, writes report.json and renders the
// report.
func (h *Harness) CreateReport(ctx context.Context) (*Run, error) {
	run := h.newRun(CommandCreateReport)
	sess, err := h.openSession()
	if err != nil {
		return nil, err
	}
	defer sess.close()

	defs, err := h.loadScenes(run)
	if err != nil {
		return nil, err
	}

	op := func(def *scene.Definition, gen backend.Generator, in scene.Instance) (value.Object, error) {
		files, err := h.renderInstance(gen, in)
		if err != nil {
			return nil, err
		}
		frameDuration := gen.FrameDuration().Seconds()

		fields, err := h.evaluateInstance(run, in, renderedPaths(files))
		if err != nil {
			return nil, err
		}
		text, err := checkBounds(def, gen, in)
		if err != nil {
			return nil, err
		}

		fields[report.KeyFrameDuration] = value.Number(frameDuration)
		fields[report.KeyPropertyCheck] = value.String(text)
		if required, ok := def.RequiredFeatures(); ok {
			names := make(value.Array, len(required))
			for i, name := range required {
				names[i] = value.String(name)
			}
			fields[report.KeyRequiredFeatures] = names
		}
		return report.Entry(def.TestName(), in.Stem(), fields), nil
	}
	if err := h.drive(ctx, run, sess, defs, op); err != nil {
		return nil, err
	}

	if err := h.writeReport(run); err != nil {
		return nil, err
	}
	if err := report.NewRenderer(h.cfg.Report).Render(h.out, run.Report); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return run, h.finish(ctx, run)
}

// renderInstance renders the committed instance and writes one PNG per
// channel the backend produced. It returns channel → written path.
func (h *Harness) renderInstance(gen backend.Generator, in scene.Instance) (value.Object, error) {
	frame, err := gen.RenderScene(h.cfg.Renderer, h.cfg.ViewDistance)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	dir := in.CandidateDir(h.cfg.Output)
	files := value.Object{}
	for _, ch := range []struct {
		name string
		img  image.Image
	}{
		{scene.ChannelColor, frame.Color},
		{scene.ChannelDepth, frame.Depth},
	} {
		if ch.img == nil {
			continue
		}
		path := filepath.Join(dir, scene.ImageName(in.Stem(), ch.name))
		if err := evaluate.WritePNG(path, ch.img); err != nil {
			return nil, fmt.Errorf("write %s image: %w", ch.name, err)
		}
		files[ch.name] = value.String(filepath.ToSlash(path))
	}
	h.logger.Debug("instance rendered", "instance", in.Stem(), "dir", dir)
	return files, nil
}

// evaluateInstance scores candidates against the instance's reference
// images. Skipped channels become warnings.
func (h *Harness) evaluateInstance(run *Run, in scene.Instance, candidates []string) (value.Object, error) {
	references, err := run.dirs.Glob(in.ReferenceDir())
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}

	ev := &evaluate.Evaluator{Methods: h.cfg.Methods, Thresholds: h.cfg.Thresholds, Logger: h.logger}
	outcome := ev.Evaluate(in, references, candidates)
	for _, msg := range outcome.Skipped {
		run.warn(msg)
	}
	return outcome.ToValue(), nil
}

// renderedPaths returns the files renderInstance wrote, in channel order.
func renderedPaths(files value.Object) []string {
	var paths []string
	for _, ch := range files.SortedKeys() {
		if p, ok := files[ch].(value.String); ok {
			paths = append(paths, filepath.FromSlash(string(p)))
		}
	}
	return paths
}

// checkBounds compares the generator's bounds with the instance's
// reference metaData.
func checkBounds(def *scene.Definition, gen backend.Generator, in scene.Instance) (string, error) {
	computed, err := gen.Bounds()
	if err != nil {
		return "", fmt.Errorf("bounds: %w", err)
	}
	reference, _ := def.ReferenceMetaData(in.MetaDataKey())
	return bounds.Check(reference, computed, def.BoundsTolerance).String(), nil
}

// writeReport persists the run's images and writes report.json.
func (h *Harness) writeReport(run *Run) error {
	persisted, err := report.PersistImages(run.Report, h.cfg.Output)
	if err != nil {
		return fmt.Errorf("persist images: %w", err)
	}
	run.Report = persisted
	run.ReportPath = filepath.Join(h.cfg.Output, report.FileName)
	if err := report.WriteJSON(run.ReportPath, persisted); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	h.logger.Info("report written", "path", run.ReportPath)
	return nil
}
