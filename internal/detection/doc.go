// Package detection runs the source detection pipeline on grayscale images.
//
// The pipeline connects the max-tree packages into one call:
//
//  1. Background: a global sky level and noise sigma from iterative
//     kappa-sigma clipping (EstimateBackground), or a fixed estimate from
//     Config.Background.
//  2. Preparation: the sky level is subtracted and pixels on the wrong side
//     of it are clipped to zero (Prepare). The tree then only branches on
//     structure that could be a source.
//  3. Construction: a max-tree for bright sources or a min-tree for dark
//     ones (package maxtree).
//  4. Significance: each node is tested against the background noise
//     (package significance).
//  5. Extraction: selection, deblending, move-up and measurement (package
//     objects).
//
// # Build and Measurement Images
//
// DetectFiltered separates the image the tree is built on from the image
// the catalog is measured on. Building on a smoothed copy suppresses noise
// peaks that would otherwise fragment faint sources; measuring on the
// original keeps fluxes and peaks unbiased. Detect uses one image for both.
//
// # Precision
//
// The pipeline is generic over float32 and float64 pixels.
// DetectBothPrecisions runs both variants concurrently on one image and
// reports how far their catalogs differ. On integer-valued input the two
// catalogs agree up to rounding.
//
// # Units
//
// All catalog values are in the units of the measurement image: fluxes and
// backgrounds include the sky level removed during preparation. Coordinates
// are pixel indices with the origin at the top-left pixel centre.
//
// # Configuration
//
// DefaultConfig returns 8-connectivity, bright polarity, Alpha 1e-6,
// MinContrast 1, MoveFactor 0.5, deblending on and 3-sigma clipping over at
// most 5 rounds. Validate reports bad values as wrapped ErrInvalidConfig
// before any image is touched.
package detection
