package report

import (
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ux3d/ANARI-SDK/internal/evaluate"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// EvaluationDir is the directory under the output root holding persisted
// images.
const EvaluationDir = "evaluation"

// imageDirs maps an image role to its subdirectory.
var imageDirs = map[string]string{
	evaluate.ImageReference: "reference",
	evaluate.ImageCandidate: "candidate",
	evaluate.ImageDiff:      "diffs",
	evaluate.ImageThreshold: "thresholds",
}

// PersistImages writes every image held by an evaluation node to
// outputRoot/evaluation/<role dir>/<name>.png and returns a copy of the
// report with those images replaced by slash-separated paths relative to
// outputRoot. name is the test directory followed by the rest of the
// node's key path joined with underscores, e.g.
// "geometry_triangles/triangles_0_color".
func PersistImages(report value.Object, outputRoot string) (value.Object, error) {
	for _, dir := range imageDirs {
		if err := os.MkdirAll(filepath.Join(outputRoot, EvaluationDir, dir), 0o755); err != nil {
			return nil, err
		}
	}
	out, err := persistNode(report, nil, outputRoot)
	if err != nil {
		return nil, err
	}
	return out.(value.Object), nil
}

func persistNode(v value.Value, keys []string, outputRoot string) (value.Value, error) {
	obj, ok := v.(value.Object)
	if !ok {
		return v, nil
	}

	out := make(value.Object, len(obj))
	for k, child := range obj {
		if k == evaluate.KeyImages {
			if images, ok := child.(value.Object); ok {
				rewritten, err := persistImages(images, imageName(keys), outputRoot)
				if err != nil {
					return nil, err
				}
				out[k] = rewritten
				continue
			}
		}
		next, err := persistNode(child, append(keys[:len(keys):len(keys)], k), outputRoot)
		if err != nil {
			return nil, err
		}
		out[k] = next
	}
	return out, nil
}

// imageName is <test>/<remaining keys joined with underscores>. Path
// separators inside keys are replaced.
func imageName(keys []string) string {
	segs := make([]string, len(keys))
	for i, k := range keys {
		segs[i] = pathSafe.Replace(k)
	}
	if len(segs) < 2 {
		return strings.Join(segs, "_")
	}
	return segs[0] + "/" + strings.Join(segs[1:], "_")
}

var pathSafe = strings.NewReplacer("/", "_", "\\", "_")

func persistImages(images value.Object, name, outputRoot string) (value.Object, error) {
	out := make(value.Object, len(images))
	for role, v := range images {
		blob, ok := v.(value.Blob)
		if !ok {
			out[role] = v
			continue
		}
		img, ok := blob.Data.(image.Image)
		if !ok {
			return nil, fmt.Errorf("%s %s: expected image, got %T", name, role, blob.Data)
		}
		dir, ok := imageDirs[role]
		if !ok {
			return nil, fmt.Errorf("%s: unknown image role %q", name, role)
		}

		rel := path.Join(EvaluationDir, dir, name+".png")
		if err := evaluate.WritePNG(filepath.Join(outputRoot, filepath.FromSlash(rel)), img); err != nil {
			return nil, err
		}
		out[role] = value.String(rel)
	}
	return out, nil
}
