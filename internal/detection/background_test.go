package detection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
)

func TestEstimateBackground_ClipsSource(t *testing.T) {
	bg, err := EstimateBackground(blockScene(10, 100), 3, 5)
	require.NoError(t, err)

	// The pattern sums to -4 over the 91 sky pixels and its squares to 91.
	assert.Equal(t, 91, bg.Pixels)
	assert.Equal(t, 2, bg.Iterations)
	assert.InDelta(t, 10-4.0/91, bg.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(1-16.0/(91*91)), bg.Sigma, 1e-9)
	assert.InDelta(t, 10.0, bg.Median, 0.5)
	assert.InDelta(t, bg.Sigma*bg.Sigma, bg.Variance(), 1e-12)
}

func TestEstimateBackground_SingleIteration(t *testing.T) {
	bg, err := EstimateBackground(blockScene(10, 100), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, bg.Iterations)
	assert.Equal(t, 91, bg.Pixels, "the first round already removes the block")
}

func TestEstimateBackground_Uniform(t *testing.T) {
	pix := []float32{4, 4, 4, 4}
	bg, err := EstimateBackground(maxtree.Image[float32]{Width: 2, Height: 2, Pix: pix}, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 4.0, bg.Mean)
	assert.Equal(t, 0.0, bg.Sigma)
	assert.Equal(t, 4.0, bg.Median)
	assert.Equal(t, 1, bg.Iterations)
}

func TestEstimateBackground_SkipsNonFinite(t *testing.T) {
	pix := []float64{1, math.NaN(), 3, math.Inf(1)}
	bg, err := EstimateBackground(maxtree.Image[float64]{Width: 2, Height: 2, Pix: pix}, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, bg.Pixels)
	assert.Equal(t, 2.0, bg.Mean)
}

func TestEstimateBackground_NoData(t *testing.T) {
	pix := []float64{math.NaN(), math.NaN()}
	_, err := EstimateBackground(maxtree.Image[float64]{Width: 2, Height: 1, Pix: pix}, 3, 5)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"four connectivity", func(c *Config) { c.Connectivity = maxtree.Four }, true},
		{"dark", func(c *Config) { c.Polarity = maxtree.Dark }, true},
		{"fixed background", func(c *Config) { c.Background = &Background{Mean: 3, Sigma: 0.5} }, true},
		{"connectivity", func(c *Config) { c.Connectivity = 5 }, false},
		{"polarity", func(c *Config) { c.Polarity = 9 }, false},
		{"alpha zero", func(c *Config) { c.Alpha = 0 }, false},
		{"alpha one", func(c *Config) { c.Alpha = 1 }, false},
		{"contrast", func(c *Config) { c.MinContrast = -1 }, false},
		{"move factor", func(c *Config) { c.MoveFactor = math.Inf(1) }, false},
		{"min area", func(c *Config) { c.MinArea = -1 }, false},
		{"gain", func(c *Config) { c.Gain = -0.1 }, false},
		{"clip sigma", func(c *Config) { c.ClipSigma = 0 }, false},
		{"clip iterations", func(c *Config) { c.ClipIterations = 0 }, false},
		{"background sigma", func(c *Config) { c.Background = &Background{Sigma: -1} }, false},
		{"background mean", func(c *Config) { c.Background = &Background{Mean: math.NaN()} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}
