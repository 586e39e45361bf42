package detection

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("detection: invalid configuration")

// Config holds every tunable of the detection pipeline.
type Config struct {
	// Connectivity is the pixel neighbourhood, 4 or 8.
	Connectivity maxtree.Connectivity `json:"connectivity"`

	// Polarity selects bright sources (max-tree) or dark ones (min-tree).
	Polarity maxtree.Polarity `json:"polarity"`

	// Alpha is the per-node false detection rate of the significance test.
	Alpha float64 `json:"alpha"`

	// MinContrast is the deblending contrast in background sigmas.
	MinContrast float64 `json:"min_contrast"`

	// MoveFactor moves object markers up by this many background sigmas.
	MoveFactor float64 `json:"move_factor"`

	// MinArea drops objects with fewer pixels.
	MinArea int `json:"min_area"`

	// Deblend splits significant nodes that hold several separate sources.
	Deblend bool `json:"deblend"`

	// Gain adds a source Poisson term to the noise model when positive.
	Gain float64 `json:"gain"`

	// Background, when set, replaces the kappa-sigma estimate.
	Background *Background `json:"background,omitempty"`

	// ClipSigma and ClipIterations control kappa-sigma clipping.
	ClipSigma      float64 `json:"clip_sigma"`
	ClipIterations int     `json:"clip_iterations"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Connectivity:   maxtree.Eight,
		Polarity:       maxtree.Bright,
		Alpha:          1e-6,
		MinContrast:    1,
		MoveFactor:     0.5,
		MinArea:        0,
		Deblend:        true,
		ClipSigma:      3,
		ClipIterations: 5,
	}
}

// Validate checks every field and reports the first problem found.
func (c Config) Validate() error {
	if !c.Connectivity.Valid() {
		return fmt.Errorf("%w: connectivity must be 4 or 8, got %d", ErrInvalidConfig, c.Connectivity)
	}
	if !c.Polarity.Valid() {
		return fmt.Errorf("%w: unknown polarity %d", ErrInvalidConfig, c.Polarity)
	}
	if !(c.Alpha > 0 && c.Alpha < 1) {
		return fmt.Errorf("%w: alpha must be in (0, 1), got %v", ErrInvalidConfig, c.Alpha)
	}
	if !nonNegative(c.MinContrast) {
		return fmt.Errorf("%w: min_contrast must be non-negative, got %v", ErrInvalidConfig, c.MinContrast)
	}
	if !nonNegative(c.MoveFactor) {
		return fmt.Errorf("%w: move_factor must be non-negative, got %v", ErrInvalidConfig, c.MoveFactor)
	}
	if c.MinArea < 0 {
		return fmt.Errorf("%w: min_area must be non-negative, got %d", ErrInvalidConfig, c.MinArea)
	}
	if !nonNegative(c.Gain) {
		return fmt.Errorf("%w: gain must be non-negative, got %v", ErrInvalidConfig, c.Gain)
	}
	if !(c.ClipSigma > 0) || math.IsInf(c.ClipSigma, 0) {
		return fmt.Errorf("%w: clip_sigma must be positive, got %v", ErrInvalidConfig, c.ClipSigma)
	}
	if c.ClipIterations < 1 {
		return fmt.Errorf("%w: clip_iterations must be at least 1, got %d", ErrInvalidConfig, c.ClipIterations)
	}
	if b := c.Background; b != nil {
		if math.IsNaN(b.Mean) || math.IsInf(b.Mean, 0) {
			return fmt.Errorf("%w: background mean must be finite, got %v", ErrInvalidConfig, b.Mean)
		}
		if !nonNegative(b.Sigma) {
			return fmt.Errorf("%w: background sigma must be non-negative, got %v", ErrInvalidConfig, b.Sigma)
		}
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
