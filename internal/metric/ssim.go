package metric

import "image"

const (
	ssimWindow = 7
	ssimC1     = (0.01 * 255) * (0.01 * 255)
	ssimC2     = (0.03 * 255) * (0.03 * 255)
)

type ssimMetric struct{}

func (ssimMetric) Name() string { return SSIM }

func (ssimMetric) Score(ref, cand image.Image) (float64, error) {
	return ComputeSSIM(ref, cand)
}

// ComputeSSIM returns the mean structural similarity of the luminance of
// two images, using a uniform 7x7 window and sample covariance. Images
// smaller than the window use the largest odd window that fits.
func ComputeSSIM(ref, cand image.Image) (float64, error) {
	if err := checkSize(ref, cand); err != nil {
		return 0, err
	}
	w, h := ref.Bounds().Dx(), ref.Bounds().Dy()

	win := min(ssimWindow, w, h)
	if win%2 == 0 {
		win--
	}
	np := float64(win * win)
	covNorm := 1.0
	if win > 1 {
		covNorm = np / (np - 1)
	}

	a := luminance(ref, w, h)
	b := luminance(cand, w, h)
	sx := newIntegral(w, h, func(i int) float64 { return a[i] })
	sy := newIntegral(w, h, func(i int) float64 { return b[i] })
	sxx := newIntegral(w, h, func(i int) float64 { return a[i] * a[i] })
	syy := newIntegral(w, h, func(i int) float64 { return b[i] * b[i] })
	sxy := newIntegral(w, h, func(i int) float64 { return a[i] * b[i] })

	var total float64
	var count int
	for y := 0; y+win <= h; y++ {
		for x := 0; x+win <= w; x++ {
			ux := sx.sum(x, y, win) / np
			uy := sy.sum(x, y, win) / np
			vx := covNorm * (sxx.sum(x, y, win)/np - ux*ux)
			vy := covNorm * (syy.sum(x, y, win)/np - uy*uy)
			vxy := covNorm * (sxy.sum(x, y, win)/np - ux*uy)

			num := (2*ux*uy + ssimC1) * (2*vxy + ssimC2)
			den := (ux*ux + uy*uy + ssimC1) * (vx + vy + ssimC2)
			total += num / den
			count++
		}
	}
	return total / float64(count), nil
}

func luminance(img image.Image, w, h int) []float64 {
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := rgb8(img, x, y)
			out[y*w+x] = 0.299*r + 0.587*g + 0.114*b
		}
	}
	return out
}

// integral is a summed-area table with one row and column of padding.
type integral struct {
	stride int
	data   []float64
}

func newIntegral(w, h int, f func(i int) float64) integral {
	t := integral{stride: w + 1, data: make([]float64, (w+1)*(h+1))}
	for y := 0; y < h; y++ {
		var row float64
		for x := 0; x < w; x++ {
			row += f(y*w + x)
			t.data[(y+1)*t.stride+x+1] = t.data[y*t.stride+x+1] + row
		}
	}
	return t
}

// sum returns the sum over the size x size square at (x, y).
func (t integral) sum(x, y, size int) float64 {
	x1, y1 := x+size, y+size
	return t.data[y1*t.stride+x1] - t.data[y*t.stride+x1] - t.data[y1*t.stride+x] + t.data[y*t.stride+x]
}
