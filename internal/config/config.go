// Package config loads detection defaults from a JSON file.
//
// Every field is optional. Fields present in the file replace the built-in
// defaults of detection.DefaultConfig; per-call tool arguments in turn
// override the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/mto-mcp/internal/detection"
	"github.com/ironsheep/mto-mcp/internal/maxtree"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "MTO_MCP_CONFIG"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// DetectionConfig mirrors detection.Config with optional fields, plus
// server-side defaults that are not part of the pipeline.
type DetectionConfig struct {
	Connectivity   *int     `json:"connectivity,omitempty"`
	Polarity       *string  `json:"polarity,omitempty"`
	Alpha          *float64 `json:"alpha,omitempty"`
	MinContrast    *float64 `json:"min_contrast,omitempty"`
	MoveFactor     *float64 `json:"move_factor,omitempty"`
	MinArea        *int     `json:"min_area,omitempty"`
	Deblend        *bool    `json:"deblend,omitempty"`
	Gain           *float64 `json:"gain,omitempty"`
	ClipSigma      *float64 `json:"clip_sigma,omitempty"`
	ClipIterations *int     `json:"clip_iterations,omitempty"`

	// SmoothSigma is the default Gaussian pre-filter radius for the build
	// image. Zero disables smoothing.
	SmoothSigma *float64 `json:"smooth_sigma,omitempty"`

	// Precision is the default pixel precision: single, double or both.
	Precision *string `json:"precision,omitempty"`
}

// Load reads a DetectionConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func Load(path string) (*DetectionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &DetectionConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv loads the file named by MTO_MCP_CONFIG. An unset variable yields
// an empty configuration.
func FromEnv() (*DetectionConfig, error) {
	path := os.Getenv(EnvPath)
	if path == "" {
		return &DetectionConfig{}, nil
	}
	return Load(path)
}

// Validate checks the fields that can be checked without the rest of the
// pipeline configuration.
func (c *DetectionConfig) Validate() error {
	if c.Polarity != nil {
		if _, err := maxtree.ParsePolarity(*c.Polarity); err != nil {
			return err
		}
	}
	if c.Precision != nil {
		switch *c.Precision {
		case "single", "double", "both":
		default:
			return fmt.Errorf("precision must be single, double or both, got %q", *c.Precision)
		}
	}
	if c.SmoothSigma != nil && *c.SmoothSigma < 0 {
		return fmt.Errorf("smooth_sigma must be non-negative, got %v", *c.SmoothSigma)
	}
	_, err := c.Apply(detection.DefaultConfig())
	return err
}

// Apply overlays the fields present in c onto base and validates the
// result.
func (c *DetectionConfig) Apply(base detection.Config) (detection.Config, error) {
	out := base
	if c.Connectivity != nil {
		out.Connectivity = maxtree.Connectivity(*c.Connectivity)
	}
	if c.Polarity != nil {
		p, err := maxtree.ParsePolarity(*c.Polarity)
		if err != nil {
			return base, err
		}
		out.Polarity = p
	}
	if c.Alpha != nil {
		out.Alpha = *c.Alpha
	}
	if c.MinContrast != nil {
		out.MinContrast = *c.MinContrast
	}
	if c.MoveFactor != nil {
		out.MoveFactor = *c.MoveFactor
	}
	if c.MinArea != nil {
		out.MinArea = *c.MinArea
	}
	if c.Deblend != nil {
		out.Deblend = *c.Deblend
	}
	if c.Gain != nil {
		out.Gain = *c.Gain
	}
	if c.ClipSigma != nil {
		out.ClipSigma = *c.ClipSigma
	}
	if c.ClipIterations != nil {
		out.ClipIterations = *c.ClipIterations
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}

// GetSmoothSigma returns the smoothing default, 0 when unset.
func (c *DetectionConfig) GetSmoothSigma() float64 {
	if c.SmoothSigma == nil {
		return 0
	}
	return *c.SmoothSigma
}

// GetPrecision returns the precision default, "double" when unset.
func (c *DetectionConfig) GetPrecision() string {
	if c.Precision == nil {
		return "double"
	}
	return *c.Precision
}
