package imaging

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
)

// ToRaster converts img to a float64 intensity raster.
//
// Grayscale images keep their native values: 0-255 for 8-bit and 0-65535
// for 16-bit. 16-bit color images are reduced to 16-bit luminance; all other
// images go through imaging.Grayscale and yield 0-255.
func ToRaster(img image.Image) maxtree.Image[float64] {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]float64, w*h)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.RGBA64, *image.NRGBA64:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				pix[y*w+x] = float64(g.Y)
			}
		}
	default:
		gray := imaging.Grayscale(img)
		for y := 0; y < h; y++ {
			row := gray.Pix[y*gray.Stride:]
			for x := 0; x < w; x++ {
				pix[y*w+x] = float64(row[x*4])
			}
		}
	}
	return maxtree.Image[float64]{Width: w, Height: h, Pix: pix}
}

// Stretch maps a raster to 8-bit gray for display. Values at or below the
// low percentile become black and values at or above the high percentile
// white, with a linear ramp in between.
func Stretch(r maxtree.Image[float64], lowPct, highPct float64) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	lo, hi := percentiles(r.Pix, lowPct, highPct)
	span := hi - lo
	for i, v := range r.Pix {
		var g float64
		switch {
		case math.IsNaN(v) || span <= 0:
			g = 0
		default:
			g = math.Round(255 * (v - lo) / span)
		}
		out.Pix[i] = uint8(math.Max(0, math.Min(255, g)))
	}
	return out
}

func percentiles(pix []float64, lowPct, highPct float64) (lo, hi float64) {
	vals := make([]float64, 0, len(pix))
	for _, v := range pix {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0, 0
	}
	sort.Float64s(vals)
	lo = stat.Quantile(clampUnit(lowPct/100), stat.Empirical, vals, nil)
	hi = stat.Quantile(clampUnit(highPct/100), stat.Empirical, vals, nil)
	return lo, hi
}

func clampUnit(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
