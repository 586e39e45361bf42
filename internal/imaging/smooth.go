package imaging

import (
	"math"

	"github.com/anthonynsimon/bild/convolution"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
)

// GaussianKernel returns a normalised 1-D Gaussian kernel of standard
// deviation sigma, truncated at 3 sigma.
func GaussianKernel(sigma float64) convolution.Matrix {
	radius := int(math.Ceil(3 * sigma))
	k := convolution.NewKernel(2*radius+1, 1)
	for i := range k.Matrix {
		x := float64(i - radius)
		k.Matrix[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	return k.Normalized()
}

// Smooth convolves r with a Gaussian of standard deviation sigma and
// returns a new raster. The filter is separable and replicates edge pixels.
// A sigma of zero or less returns a copy of r.
func Smooth(r maxtree.Image[float64], sigma float64) maxtree.Image[float64] {
	out := maxtree.Image[float64]{Width: r.Width, Height: r.Height, Pix: make([]float64, len(r.Pix))}
	if sigma <= 0 {
		copy(out.Pix, r.Pix)
		return out
	}

	k := GaussianKernel(sigma)
	radius := k.MaxX() / 2
	weights := make([]float64, k.MaxX())
	for i := range weights {
		weights[i] = k.At(i, 0)
	}

	w, h := r.Width, r.Height
	tmp := make([]float64, len(r.Pix))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for i, wt := range weights {
				sx := clampIndex(x+i-radius, w)
				sum += wt * r.Pix[y*w+sx]
			}
			tmp[y*w+x] = sum
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for i, wt := range weights {
				sy := clampIndex(y+i-radius, h)
				sum += wt * tmp[sy*w+x]
			}
			out.Pix[y*w+x] = sum
		}
	}
	return out
}

// clampIndex clamps v to [0, n).
func clampIndex(v, n int) int {
	return max(0, min(v, n-1))
}
