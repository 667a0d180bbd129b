// Package metric implements the image similarity metrics used to compare
// rendered frames against reference images.
//
// Both metrics are higher-is-better: SSIM lies in [-1, 1] and PSNR is in
// decibels, capped at MaxPSNR for identical images.
package metric

import (
	"errors"
	"fmt"
	"image"
	"sort"
)

// Metric names accepted on the command line and in config files.
const (
	SSIM = "ssim"
	PSNR = "psnr"
)

// ErrSizeMismatch is returned when two images do not have the same size.
var ErrSizeMismatch = errors.New("image sizes differ")

// Metric scores the similarity of a candidate image to a reference.
type Metric interface {
	Name() string
	Score(ref, cand image.Image) (float64, error)
}

var metrics = map[string]Metric{
	SSIM: ssimMetric{},
	PSNR: psnrMetric{},
}

// Lookup returns the metric registered under name.
func Lookup(name string) (Metric, error) {
	m, ok := metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown comparison method %q (available: %v)", name, Names())
	}
	return m, nil
}

// Names lists the available metric names in sorted order.
func Names() []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Passed applies a threshold to a score.
func Passed(score, threshold float64) bool {
	return score >= threshold
}

func checkSize(ref, cand image.Image) error {
	rb, cb := ref.Bounds(), cand.Bounds()
	if rb.Dx() != cb.Dx() || rb.Dy() != cb.Dy() {
		return fmt.Errorf("%w: reference %dx%d, candidate %dx%d", ErrSizeMismatch, rb.Dx(), rb.Dy(), cb.Dx(), cb.Dy())
	}
	if rb.Empty() {
		return errors.New("empty image")
	}
	return nil
}

// rgb8 returns the 8-bit RGB components of the pixel at offset (x, y)
// from the image origin.
func rgb8(img image.Image, x, y int) (r, g, b float64) {
	origin := img.Bounds().Min
	cr, cg, cb, _ := img.At(origin.X+x, origin.Y+y).RGBA()
	return float64(cr >> 8), float64(cg >> 8), float64(cb >> 8)
}
