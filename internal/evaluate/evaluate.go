// Package evaluate compares rendered candidate images against reference
// images.
//
// Files are located by exact name within lists globbed once per
// directory. A channel whose reference or candidate is missing is
// skipped with a warning. The depth channel is always scored with PSNR;
// the color channel uses the configured methods.
package evaluate

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/draw"

	"github.com/ux3d/ANARI-SDK/internal/metric"
	"github.com/ux3d/ANARI-SDK/internal/scene"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Keys of an evaluation node in the report tree.
const (
	KeyMetrics = "metrics"
	KeyImages  = "images"
	KeyPassed  = "passed"
	KeyScore   = "score"

	KeyThreshold = "threshold"
)

// Image roles of an evaluation node.
const (
	ImageReference = "reference"
	ImageCandidate = "candidate"
	ImageDiff      = "diff"
	ImageThreshold = "threshold"
)

// ImageRoles lists the image roles in persistence order.
var ImageRoles = []string{ImageReference, ImageCandidate, ImageDiff, ImageThreshold}

// Score is one metric outcome. Passed is nil when no threshold was set.
type Score struct {
	Value     float64
	Threshold *float64
	Passed    *bool
}

// ChannelResult is the evaluation of one image channel.
type ChannelResult struct {
	Scores    map[string]Score
	Reference image.Image
	Candidate image.Image
	Diff      image.Image
	Threshold image.Image
}

// Failed reports whether any thresholded metric did not pass.
func (r ChannelResult) Failed() bool {
	for _, s := range r.Scores {
		if s.Passed != nil && !*s.Passed {
			return true
		}
	}
	return false
}

// ToValue encodes the result as an evaluation node. Images are stored as
// Blob leaves until they are persisted.
func (r ChannelResult) ToValue() value.Object {
	metrics := value.Object{}
	for name, s := range r.Scores {
		entry := value.Object{KeyScore: value.Number(s.Value)}
		if s.Threshold != nil {
			entry[KeyThreshold] = value.Number(*s.Threshold)
		}
		if s.Passed != nil {
			entry[KeyPassed] = value.Bool(*s.Passed)
		}
		metrics[name] = entry
	}
	return value.Object{
		KeyMetrics: metrics,
		KeyImages: value.Object{
			ImageReference: value.Blob{Data: r.Reference},
			ImageCandidate: value.Blob{Data: r.Candidate},
			ImageDiff:      value.Blob{Data: r.Diff},
			ImageThreshold: value.Blob{Data: r.Threshold},
		},
	}
}

// EvaluateFiles decodes a reference and a candidate image and scores the
// candidate with each method. A candidate whose size differs from the
// reference is rescaled to the reference size first.
func EvaluateFiles(referencePath, candidatePath string, methods []string, thresholds map[string]float64) (ChannelResult, error) {
	ref, err := DecodePNG(referencePath)
	if err != nil {
		return ChannelResult{}, err
	}
	cand, err := DecodePNG(candidatePath)
	if err != nil {
		return ChannelResult{}, err
	}
	return EvaluateImages(ref, cand, methods, thresholds)
}

// EvaluateImages scores decoded images.
func EvaluateImages(ref, cand image.Image, methods []string, thresholds map[string]float64) (ChannelResult, error) {
	if rb, cb := ref.Bounds(), cand.Bounds(); rb.Dx() != cb.Dx() || rb.Dy() != cb.Dy() {
		slog.Debug("rescaling candidate", "from", cb.Size(), "to", rb.Size())
		cand = Rescale(cand, rb.Dx(), rb.Dy())
	}

	res := ChannelResult{
		Scores:    make(map[string]Score, len(methods)),
		Reference: ref,
		Candidate: cand,
	}
	for _, name := range methods {
		m, err := metric.Lookup(name)
		if err != nil {
			return ChannelResult{}, err
		}
		v, err := m.Score(ref, cand)
		if err != nil {
			return ChannelResult{}, fmt.Errorf("%s: %w", name, err)
		}
		s := Score{Value: v}
		if th, ok := thresholds[name]; ok {
			passed := metric.Passed(v, th)
			s.Threshold = &th
			s.Passed = &passed
		}
		res.Scores[name] = s
	}

	diff, err := metric.Diff(ref, cand)
	if err != nil {
		return ChannelResult{}, err
	}
	res.Diff = diff
	res.Threshold = metric.Threshold(diff, metric.DefaultThresholdLevel)
	return res, nil
}

// Rescale resizes img to w x h with bilinear filtering.
func Rescale(img image.Image, w, h int) image.Image {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// DecodePNG reads a PNG file.
func DecodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// WritePNG encodes img to path, creating the parent directory.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// Glob lists the PNG files in dir, sorted. A missing directory yields an
// empty list.
func Glob(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Find returns the path in files whose base name is exactly name.
func Find(files []string, name string) (string, bool) {
	for _, f := range files {
		if filepath.Base(f) == name {
			return f, true
		}
	}
	return "", false
}

// MethodsFor returns the methods used for a channel.
func MethodsFor(channel string, methods []string) []string {
	if channel == scene.ChannelDepth {
		return []string{metric.PSNR}
	}
	return methods
}
