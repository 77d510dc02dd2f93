package services

import (
	"math"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
)

// GeometryConfig holds the calibration constants used to turn mask pixels
// into centimetres. PixelToCM assumes a 640x640 frame taken at roughly 30 cm;
// it is a heuristic calibration, not a physical measurement.
type GeometryConfig struct {
	PixelToCM   float64
	DepthFactor float64
	MinDepthCM  float64
	MaxDepthCM  float64
	ShapeFactor float64
}

// DefaultGeometryConfig returns the standard calibration.
func DefaultGeometryConfig() GeometryConfig {
	return GeometryConfig{
		PixelToCM:   0.04,
		DepthFactor: 0.15,
		MinDepthCM:  0.2,
		MaxDepthCM:  2.0,
		ShapeFactor: 0.7, // ellipsoid-like cavity
	}
}

// GeometryEstimator derives wound dimensions from a segmentation mask.
// Absolute values are heuristic; only relative change between assessments of
// the same wound is meaningful.
type GeometryEstimator struct {
	cfg GeometryConfig
}

// NewGeometryEstimator creates an estimator with the given calibration.
func NewGeometryEstimator(cfg GeometryConfig) *GeometryEstimator {
	return &GeometryEstimator{cfg: cfg}
}

// Estimate measures the mask. Masks that are nil, not at the canonical frame
// size, or have no positive pixel measure as all zero.
func (e *GeometryEstimator) Estimate(mask *entities.Mask) entities.Measurements {
	if !mask.IsCanonical() {
		return entities.Measurements{}
	}

	rmin, rmax, cmin, cmax := -1, -1, -1, -1
	count := 0
	for r := 0; r < mask.Height; r++ {
		for c := 0; c < mask.Width; c++ {
			if !mask.At(r, c) {
				continue
			}
			count++
			if rmin < 0 {
				rmin = r
			}
			rmax = r
			if cmin < 0 || c < cmin {
				cmin = c
			}
			if c > cmax {
				cmax = c
			}
		}
	}
	if count == 0 {
		return entities.Measurements{}
	}

	px := e.cfg.PixelToCM
	area := round1(float64(count) * px * px)
	depth := e.depthFor(area)

	return entities.Measurements{
		Length: round1(float64(rmax-rmin) * px),
		Width:  round1(float64(cmax-cmin) * px),
		Depth:  depth,
		Area:   area,
		Volume: round1(area * depth * e.cfg.ShapeFactor),
	}
}

// depthFor grows with the square root of the visible area, clamped to a
// clinically plausible range.
func (e *GeometryEstimator) depthFor(area float64) float64 {
	d := math.Sqrt(area) * e.cfg.DepthFactor
	d = math.Max(e.cfg.MinDepthCM, math.Min(e.cfg.MaxDepthCM, d))
	return round1(d)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
