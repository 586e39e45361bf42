package detection

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
)

// ErrNoData is returned when an image has no finite pixels to estimate a
// background from.
var ErrNoData = errors.New("detection: image has no finite pixels")

// Background is a global sky estimate.
type Background struct {
	// Mean is the sky level subtracted before building the tree.
	Mean float64 `json:"mean"`

	// Sigma is the standard deviation of the sky noise.
	Sigma float64 `json:"sigma"`

	// Median of the pixels that survived clipping.
	Median float64 `json:"median"`

	// Pixels is the number of pixels that survived clipping.
	Pixels int `json:"pixels"`

	// Iterations is the number of clipping rounds performed.
	Iterations int `json:"iterations"`
}

// Variance returns Sigma².
func (b Background) Variance() float64 {
	return b.Sigma * b.Sigma
}

// EstimateBackground estimates the sky by iterative kappa-sigma clipping.
//
// Each round computes the mean and standard deviation of the surviving
// pixels and discards those more than kappa standard deviations from the
// mean. Clipping stops when a round discards nothing, the deviation reaches
// zero, or after iterations rounds. Non-finite pixels never take part.
//
// Parameters:
//   - img: image to estimate from.
//   - kappa: clipping threshold in standard deviations.
//   - iterations: maximum number of clipping rounds.
//
// Returns:
//   - Background: the estimate.
//   - error: ErrNoData if the image has no finite pixels.
func EstimateBackground[T maxtree.Float](img maxtree.Image[T], kappa float64, iterations int) (Background, error) {
	vals := make([]float64, 0, len(img.Pix))
	for _, v := range img.Pix {
		f := float64(v)
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return Background{}, ErrNoData
	}

	var bg Background
	for bg.Iterations < iterations {
		mean, std := meanStd(vals)
		bg.Iterations++
		if std == 0 {
			break
		}
		kept := vals[:0:0]
		for _, v := range vals {
			if math.Abs(v-mean) <= kappa*std {
				kept = append(kept, v)
			}
		}
		if len(kept) == len(vals) || len(kept) == 0 {
			break
		}
		vals = kept
	}

	bg.Mean, bg.Sigma = meanStd(vals)
	bg.Pixels = len(vals)
	sort.Float64s(vals)
	bg.Median = stat.Quantile(0.5, stat.Empirical, vals, nil)
	return bg, nil
}

// meanStd returns the mean and population standard deviation.
func meanStd(x []float64) (mean, std float64) {
	mean, variance := stat.PopMeanVariance(x, nil)
	return mean, math.Sqrt(variance)
}
