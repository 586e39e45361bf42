package detection

import (
	"context"
	"fmt"
	"math"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
	"github.com/ironsheep/mto-mcp/internal/monitoring"
	"github.com/ironsheep/mto-mcp/internal/objects"
	"github.com/ironsheep/mto-mcp/internal/significance"
)

// Result contains the catalog of one detection run.
type Result struct {
	// Objects is the catalog in descending |flux| order.
	Objects []objects.DetectedObject `json:"objects"`

	// Count is the number of objects.
	Count int `json:"count"`

	// Labels maps each pixel to an object ID, 0 for background.
	Labels []int32 `json:"-"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Background is the sky estimate of the measurement image.
	Background Background `json:"background"`

	// TreeBackground is the sky estimate the tree was built and tested
	// against. It differs from Background only when the build image was
	// filtered.
	TreeBackground Background `json:"tree_background"`

	TreeNodes        int `json:"tree_nodes"`
	TreeDepth        int `json:"tree_depth"`
	TreeLeaves       int `json:"tree_leaves"`
	SignificantNodes int `json:"significant_nodes"`
}

// Object returns the object with the given ID.
func (r *Result) Object(id int) (objects.DetectedObject, bool) {
	if id < 1 || id > len(r.Objects) {
		return objects.DetectedObject{}, false
	}
	return r.Objects[id-1], true
}

// Prepare subtracts the sky level and clips the far side of the background
// to zero: max(v − mean, 0) for bright sources, min(v − mean, 0) for dark
// ones. Non-finite pixels become 0.
func Prepare[T maxtree.Float](img maxtree.Image[T], mean float64, polarity maxtree.Polarity) maxtree.Image[T] {
	out := maxtree.Image[T]{Width: img.Width, Height: img.Height, Pix: make([]T, len(img.Pix))}
	for i, v := range img.Pix {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		d := f - mean
		if polarity == maxtree.Dark {
			d = min(d, 0)
		} else {
			d = max(d, 0)
		}
		out.Pix[i] = T(d)
	}
	return out
}

// Detect runs the full pipeline on img.
//
// This is DetectFiltered with the same image used for building and
// measuring.
func Detect[T maxtree.Float](ctx context.Context, img maxtree.Image[T], cfg Config) (*Result, error) {
	return DetectFiltered(ctx, img, img, cfg)
}

// DetectFiltered builds and tests the tree on build and measures objects on
// measure.
//
// Parameters:
//   - ctx: cancels tree construction.
//   - measure: image the catalog attributes are read from.
//   - build: image the tree is built on, usually a smoothed copy of measure.
//     Must have the same dimensions.
//   - cfg: pipeline configuration, validated before any work is done.
//
// Returns:
//   - *Result: the catalog, label map and tree statistics.
//   - error: wrapped ErrInvalidConfig, maxtree configuration errors, ErrNoData,
//     or ctx.Err() if construction was cancelled.
//
// # Pipeline
//
//  1. Background: kappa-sigma estimates of both images, unless cfg.Background
//     fixes one.
//  2. Preparation: the build image is sky-subtracted and clipped (Prepare).
//  3. Construction: a max-tree (or min-tree) of the prepared image.
//  4. Significance: every node tested against the build image's noise.
//  5. Extraction: selection, deblending and measurement on measure.
func DetectFiltered[T maxtree.Float](ctx context.Context, measure, build maxtree.Image[T], cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := measure.Validate(); err != nil {
		return nil, err
	}
	if err := build.Validate(); err != nil {
		return nil, err
	}
	if measure.Width != build.Width || measure.Height != build.Height {
		return nil, fmt.Errorf("%w: build image is %dx%d, measurement image is %dx%d",
			maxtree.ErrDimensions, build.Width, build.Height, measure.Width, measure.Height)
	}

	treeBg, measureBg, err := backgrounds(measure, build, cfg)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("detection: %dx%d background mean=%.6g sigma=%.6g (%d pixels, %d rounds)",
		build.Width, build.Height, treeBg.Mean, treeBg.Sigma, treeBg.Pixels, treeBg.Iterations)

	builder, err := maxtree.NewBuilder[T](cfg.Connectivity, cfg.Polarity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	tree, err := builder.BuildContext(ctx, Prepare(build, treeBg.Mean, cfg.Polarity))
	if err != nil {
		return nil, err
	}

	tester, err := significance.NewTester(significance.Params{
		Alpha:    cfg.Alpha,
		Variance: treeBg.Variance(),
		Gain:     cfg.Gain,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	verdicts := significance.Annotate(tester, tree)

	extractor, err := objects.NewExtractor(objects.Params{
		MinContrast: cfg.MinContrast,
		MoveFactor:  cfg.MoveFactor,
		Sigma:       treeBg.Sigma,
		MinArea:     cfg.MinArea,
		Deblend:     cfg.Deblend,
		Offset:      measureBg.Mean,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	ex, err := objects.Extract(extractor, tree, verdicts, measure)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Objects:          ex.Objects,
		Count:            len(ex.Objects),
		Labels:           ex.Labels,
		Width:            ex.Width,
		Height:           ex.Height,
		Background:       measureBg,
		TreeBackground:   treeBg,
		TreeNodes:        tree.Len(),
		TreeDepth:        tree.Depth(),
		TreeLeaves:       tree.Leaves(),
		SignificantNodes: significance.Count(verdicts),
	}
	monitoring.Logf("detection: %d nodes (depth %d), %d significant, %d objects",
		res.TreeNodes, res.TreeDepth, res.SignificantNodes, res.Count)
	return res, nil
}

// backgrounds returns the sky estimates of the build and measurement
// images.
func backgrounds[T maxtree.Float](measure, build maxtree.Image[T], cfg Config) (tree, meas Background, err error) {
	if cfg.Background != nil {
		return *cfg.Background, *cfg.Background, nil
	}
	tree, err = EstimateBackground(build, cfg.ClipSigma, cfg.ClipIterations)
	if err != nil {
		return Background{}, Background{}, err
	}
	if sameImage(measure, build) {
		return tree, tree, nil
	}
	meas, err = EstimateBackground(measure, cfg.ClipSigma, cfg.ClipIterations)
	if err != nil {
		return Background{}, Background{}, err
	}
	return tree, meas, nil
}

func sameImage[T maxtree.Float](a, b maxtree.Image[T]) bool {
	return len(a.Pix) > 0 && len(a.Pix) == len(b.Pix) && &a.Pix[0] == &b.Pix[0]
}
