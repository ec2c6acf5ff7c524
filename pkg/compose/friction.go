package compose

import (
	"gonum.org/v1/gonum/floats"

	"github.com/gridseam/gridseam/pkg/grid"
)

// Default slope friction banding, matching the offshore routing convention:
// slopes at or above the barrier cutoff get the high friction, slopes below
// the low cutoff get the low friction, everything between gets medium.
const (
	DefaultSlopeBarrierCutoff  = 15.0
	DefaultLowSlopeCutoff      = 10.0
	DefaultHighSlopeFriction   = 10.0
	DefaultMediumSlopeFriction = 5.0
	DefaultLowSlopeFriction    = 1.0
)

// SlopeFriction converts a slope layer into banded friction contributions.
type SlopeFriction struct {
	Layer *grid.Float64Layer

	BarrierCutoff float64 // slopes >= this get High
	LowCutoff     float64 // slopes < this get Low

	High   float64
	Medium float64
	Low    float64
}

// DefaultSlopeFriction returns a SlopeFriction over layer with the standard
// banding constants.
func DefaultSlopeFriction(layer *grid.Float64Layer) *SlopeFriction {
	return &SlopeFriction{
		Layer:         layer,
		BarrierCutoff: DefaultSlopeBarrierCutoff,
		LowCutoff:     DefaultLowSlopeCutoff,
		High:          DefaultHighSlopeFriction,
		Medium:        DefaultMediumSlopeFriction,
		Low:           DefaultLowSlopeFriction,
	}
}

// BathymetryFriction applies a flat friction to every cell deeper than
// DepthCutoff. Depth values decrease with depth, so "deeper" means more
// negative than the cutoff.
type BathymetryFriction struct {
	Layer       *grid.Float64Layer
	DepthCutoff float64
	Friction    float64
}

// Friction combines friction specs, optional slope and bathymetry
// contributions, and minimum-friction floors into one scalar friction layer.
//
// Accumulation across specs, and across distinct mapped keys within one
// spec, is strictly additive: two specs claiming the same cell both
// contribute. The minimum-friction floor is different — it is the
// elementwise max across all minimum specs, applied as a per-cell floor
// after accumulation, never summed in. Output values are never negative.
func Friction(p grid.Profile, specs []FrictionSpec, slope *SlopeFriction,
	bathy *BathymetryFriction, minimum []FrictionSpec) (*grid.Float64Layer, error) {

	acc := grid.NewFloat64Layer(p.Rows, p.Cols)

	for _, spec := range specs {
		contrib, err := spec.contribution(p)
		if err != nil {
			return nil, err
		}
		floats.Add(acc.Data, contrib.Data)
	}

	if slope != nil {
		if err := p.ValidateShape(slope.Layer.Rows, slope.Layer.Cols, "slope"); err != nil {
			return nil, err
		}
		floats.Add(acc.Data, slope.contribution().Data)
	}

	if bathy != nil {
		if err := p.ValidateShape(bathy.Layer.Rows, bathy.Layer.Cols, "bathymetry"); err != nil {
			return nil, err
		}
		for i, d := range bathy.Layer.Data {
			if d < bathy.DepthCutoff {
				acc.Data[i] += bathy.Friction
			}
		}
	}

	if len(minimum) > 0 {
		floor := grid.NewFloat64Layer(p.Rows, p.Cols)
		for _, spec := range minimum {
			contrib, err := spec.contribution(p)
			if err != nil {
				return nil, err
			}
			for i, v := range contrib.Data {
				if v > floor.Data[i] {
					floor.Data[i] = v
				}
			}
		}
		for i, v := range floor.Data {
			if v > acc.Data[i] {
				acc.Data[i] = v
			}
		}
	}

	return acc, nil
}

// contribution maps a source's category layer through its weights. A cell
// holds a single code, so at most one key fires per cell.
func (s FrictionSpec) contribution(p grid.Profile) (*grid.Float64Layer, error) {
	if err := p.ValidateShape(s.Layer.Rows, s.Layer.Cols, s.Name); err != nil {
		return nil, err
	}
	out := grid.NewFloat64Layer(p.Rows, p.Cols)
	for i, v := range s.Layer.Data {
		if w, ok := s.Weights[v]; ok {
			out.Data[i] = w
		}
	}
	return out, nil
}

// contribution bands the slope layer. Negative slopes are clamped to zero
// first, which lands them in the low band.
func (s *SlopeFriction) contribution() *grid.Float64Layer {
	out := grid.NewFloat64Layer(s.Layer.Rows, s.Layer.Cols)
	for i, d := range s.Layer.Data {
		if d < 0 {
			d = 0
		}
		switch {
		case d >= s.BarrierCutoff:
			out.Data[i] = s.High
		case d < s.LowCutoff:
			out.Data[i] = s.Low
		default:
			out.Data[i] = s.Medium
		}
	}
	return out
}
