package validation

import (
	"fmt"
	"strings"
)

// Geometry thresholds. All are fixed constants; none is derived from the input.
const (
	DefaultMinSpacing          = 20.0
	DefaultConnectionThreshold = 30.0

	// OriginTolerance lets shapes start slightly left of or above the origin.
	OriginTolerance = 10.0

	// AlignTolerance is the largest center offset at which shapes count as one row or column.
	AlignTolerance = 20.0
	// AlignSnap is the center spread above which a row or column is reported as misaligned.
	AlignSnap = 2.0

	RelativeGapTolerance = 0.5
	AbsoluteGapTolerance = 30.0
)

// CanvasProfile names a deployment canvas extent.
type CanvasProfile string

const (
	ProfileWide   CanvasProfile = "wide"   // 1200 x 800
	ProfileSquare CanvasProfile = "square" // 1200 x 1200
)

// DefaultProfile is the canvas extent used when none is configured.
const DefaultProfile = ProfileSquare

// Size returns the canvas extent of the profile.
func (p CanvasProfile) Size() (w, h float64, err error) {
	switch CanvasProfile(strings.ToLower(string(p))) {
	case ProfileWide:
		return 1200, 800, nil
	case ProfileSquare, "":
		return 1200, 1200, nil
	default:
		return 0, 0, fmt.Errorf("unknown canvas profile %q (want %q or %q)", p, ProfileWide, ProfileSquare)
	}
}

// Config holds the tunable geometry limits.
type Config struct {
	CanvasWidth         float64 `json:"canvas_width" yaml:"canvas_width"`
	CanvasHeight        float64 `json:"canvas_height" yaml:"canvas_height"`
	MinSpacing          float64 `json:"min_spacing" yaml:"min_spacing"`
	ConnectionThreshold float64 `json:"connection_threshold" yaml:"connection_threshold"`
}

// DefaultConfig returns the default profile limits.
func DefaultConfig() Config {
	w, h, _ := DefaultProfile.Size()
	return Config{
		CanvasWidth:         w,
		CanvasHeight:        h,
		MinSpacing:          DefaultMinSpacing,
		ConnectionThreshold: DefaultConnectionThreshold,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.CanvasWidth <= 0 {
		c.CanvasWidth = d.CanvasWidth
	}
	if c.CanvasHeight <= 0 {
		c.CanvasHeight = d.CanvasHeight
	}
	if c.MinSpacing <= 0 {
		c.MinSpacing = d.MinSpacing
	}
	if c.ConnectionThreshold <= 0 {
		c.ConnectionThreshold = d.ConnectionThreshold
	}
	return c
}
