package compose

import (
	"github.com/gridseam/gridseam/pkg/grid"
)

// SlopeBarrier marks cells whose slope meets or exceeds Cutoff as barriers.
type SlopeBarrier struct {
	Layer  *grid.Float64Layer
	Cutoff float64
}

// Barriers combines barrier specs, an optional slope barrier, and forced
// inclusion overrides into one boolean barrier layer.
//
// Accumulation is a logical OR across all specs, so spec order never matters
// and overlapping specs are idempotent. Forced inclusions are subtracted
// strictly after all accumulation: a cell matched by both a barrier spec and
// a forced inclusion resolves to not-a-barrier, regardless of input order.
func Barriers(p grid.Profile, specs []BarrierSpec, includes []BarrierSpec, slope *SlopeBarrier) (*grid.BoolLayer, error) {
	acc := grid.NewBoolLayer(p.Rows, p.Cols)

	for _, spec := range specs {
		if err := p.ValidateShape(spec.Layer.Rows, spec.Layer.Cols, spec.Name); err != nil {
			return nil, err
		}
		for i, v := range spec.Layer.Data {
			if spec.Select.Contains(v) {
				acc.Data[i] = true
			}
		}
	}

	if slope != nil {
		if err := p.ValidateShape(slope.Layer.Rows, slope.Layer.Cols, "slope"); err != nil {
			return nil, err
		}
		for i, v := range slope.Layer.Data {
			if v >= slope.Cutoff {
				acc.Data[i] = true
			}
		}
	}

	// Inclusion always wins over barring, so overrides run last.
	for _, spec := range includes {
		if err := p.ValidateShape(spec.Layer.Rows, spec.Layer.Cols, spec.Name); err != nil {
			return nil, err
		}
		for i, v := range spec.Layer.Data {
			if spec.Select.Contains(v) {
				acc.Data[i] = false
			}
		}
	}

	return acc, nil
}
