package metric

import (
	"image"
	"image/color"
	"math"
)

// DefaultThresholdLevel is the per-pixel difference above which a pixel
// is marked in the threshold image.
const DefaultThresholdLevel = 8

// Diff returns a grayscale image holding the largest absolute channel
// difference of each pixel.
func Diff(ref, cand image.Image) (*image.Gray, error) {
	if err := checkSize(ref, cand); err != nil {
		return nil, err
	}
	w, h := ref.Bounds().Dx(), ref.Bounds().Dy()

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r1, g1, b1 := rgb8(ref, x, y)
			r2, g2, b2 := rgb8(cand, x, y)
			d := math.Max(math.Abs(r1-r2), math.Max(math.Abs(g1-g2), math.Abs(b1-b2)))
			out.SetGray(x, y, color.Gray{Y: uint8(d)})
		}
	}
	return out, nil
}

// Threshold marks every pixel of diff above level white and the rest
// black.
func Threshold(diff *image.Gray, level uint8) *image.Gray {
	out := image.NewGray(diff.Bounds())
	for i, v := range diff.Pix {
		if v > level {
			out.Pix[i] = 255
		}
	}
	return out
}
