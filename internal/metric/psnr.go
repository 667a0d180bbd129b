package metric

import (
	"image"
	"math"
)

// MaxPSNR is reported for identical images, where PSNR is unbounded.
const MaxPSNR = 100.0

type psnrMetric struct{}

func (psnrMetric) Name() string { return PSNR }

func (psnrMetric) Score(ref, cand image.Image) (float64, error) {
	return ComputePSNR(ref, cand)
}

// ComputePSNR returns the peak signal-to-noise ratio in decibels over the
// RGB channels at 8-bit precision.
func ComputePSNR(ref, cand image.Image) (float64, error) {
	if err := checkSize(ref, cand); err != nil {
		return 0, err
	}
	w, h := ref.Bounds().Dx(), ref.Bounds().Dy()

	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r1, g1, b1 := rgb8(ref, x, y)
			r2, g2, b2 := rgb8(cand, x, y)
			sum += (r1-r2)*(r1-r2) + (g1-g2)*(g1-g2) + (b1-b2)*(b1-b2)
		}
	}
	mse := sum / float64(w*h*3)
	if mse == 0 {
		return MaxPSNR, nil
	}
	return math.Min(10*math.Log10(255*255/mse), MaxPSNR), nil
}
