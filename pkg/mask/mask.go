// Package mask rasterizes a land vector boundary into a boolean land/ocean
// mask on the canonical grid.
//
// The mask serves two roles: it is the authoritative "use land data here"
// signal for the merge engine, and — buffered by a nonzero distance — it
// doubles as a near-shore minimum-friction source fed back into friction
// composition.
package mask

import (
	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
)

// Ring is a closed polygon ring of world-coordinate vertices. The closing
// edge from the last vertex back to the first is implicit.
type Ring [][2]float64

// Geometry is a land boundary: one or more polygon outer rings.
type Geometry struct {
	Rings []Ring
}

// Empty reports whether the geometry has no usable ring. Rings with fewer
// than three vertices are degenerate and count as unusable.
func (g Geometry) Empty() bool {
	for _, r := range g.Rings {
		if len(r) >= 3 {
			return false
		}
	}
	return true
}

// Rasterizer burns a geometry onto a grid, buffering every feature outward
// by buffer world units first. This is the boundary to vector/rasterization
// codecs; the bundled implementation renders with fogleman/gg.
type Rasterizer interface {
	Rasterize(geom Geometry, p grid.Profile, buffer float64) (*grid.BoolLayer, error)
}

// Builder builds land masks on a fixed canonical grid.
type Builder struct {
	rasterizer Rasterizer
	profile    grid.Profile
}

// NewBuilder returns a Builder over the given rasterizer and canonical grid.
func NewBuilder(r Rasterizer, canonical grid.Profile) *Builder {
	return &Builder{rasterizer: r, profile: canonical}
}

// Build rasterizes the land geometry into a mask, true on land. A nonzero
// buffer expands every feature outward by that distance in world units
// before rasterizing.
func (b *Builder) Build(geom Geometry, buffer float64) (*grid.BoolLayer, error) {
	if geom.Empty() {
		return nil, errors.New(errors.ErrCodeMaskBuild,
			"geometry has no usable polygon ring")
	}
	out, err := b.rasterizer.Rasterize(geom, b.profile, buffer)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMaskBuild, err, "rasterize land mask")
	}
	if err := b.profile.ValidateShape(out.Rows, out.Cols, "land_mask"); err != nil {
		return nil, err
	}
	return out, nil
}

// FrictionSource converts a mask into a minimum-friction input: every true
// cell carries the category code 1, so a friction spec mapping {1: value}
// floors friction over the masked area. Used with a buffered mask to keep
// near-shore routing above open-water friction.
func FrictionSource(m *grid.BoolLayer) *grid.Int32Layer {
	out := grid.NewInt32Layer(m.Rows, m.Cols)
	for i, v := range m.Data {
		if v {
			out.Data[i] = 1
		}
	}
	return out
}
