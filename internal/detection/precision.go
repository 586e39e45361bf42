package detection

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
	"github.com/ironsheep/mto-mcp/internal/monitoring"
)

// PrecisionReport compares single- and double-precision runs on one image.
type PrecisionReport struct {
	Single *Result `json:"single"`
	Double *Result `json:"double"`

	// CountMatch is true when both runs found the same number of objects.
	CountMatch bool `json:"count_match"`

	// MaxCentroidDelta is the largest centroid distance between objects of
	// the same ID, over the IDs both catalogs share.
	MaxCentroidDelta float64 `json:"max_centroid_delta"`

	// MaxFluxRelDelta is the largest relative flux difference between
	// objects of the same ID.
	MaxFluxRelDelta float64 `json:"max_flux_rel_delta"`
}

// DetectBothPrecisions runs the pipeline on img as float64 and on a float32
// copy concurrently. The runs share no state; the first error cancels the
// other run.
func DetectBothPrecisions(ctx context.Context, img maxtree.Image[float64], cfg Config) (*PrecisionReport, error) {
	single := maxtree.Convert[float32](img)
	return detectBoth(ctx, img, img, single, single, cfg)
}

// DetectBothPrecisionsFiltered is DetectBothPrecisions with a separate build
// image.
func DetectBothPrecisionsFiltered(ctx context.Context, measure, build maxtree.Image[float64], cfg Config) (*PrecisionReport, error) {
	return detectBoth(ctx, measure, build, maxtree.Convert[float32](measure), maxtree.Convert[float32](build), cfg)
}

func detectBoth(ctx context.Context, measure64, build64 maxtree.Image[float64], measure32, build32 maxtree.Image[float32], cfg Config) (*PrecisionReport, error) {
	report := &PrecisionReport{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := DetectFiltered(gctx, measure64, build64, cfg)
		if err != nil {
			return err
		}
		report.Double = res
		return nil
	})
	g.Go(func() error {
		res, err := DetectFiltered(gctx, measure32, build32, cfg)
		if err != nil {
			return err
		}
		report.Single = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.compare()
	monitoring.Logf("detection: precision parity count_match=%v max_centroid_delta=%.3g",
		report.CountMatch, report.MaxCentroidDelta)
	return report, nil
}

func (r *PrecisionReport) compare() {
	r.CountMatch = r.Single.Count == r.Double.Count
	n := min(r.Single.Count, r.Double.Count)
	for i := 0; i < n; i++ {
		s, d := r.Single.Objects[i], r.Double.Objects[i]
		r.MaxCentroidDelta = max(r.MaxCentroidDelta, math.Hypot(s.X-d.X, s.Y-d.Y))
		if scale := math.Max(math.Abs(s.Flux), math.Abs(d.Flux)); scale > 0 {
			r.MaxFluxRelDelta = max(r.MaxFluxRelDelta, math.Abs(s.Flux-d.Flux)/scale)
		}
	}
}
