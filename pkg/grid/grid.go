// Package grid defines the canonical raster geometry shared by every layer in
// a compositing run.
//
// A Profile captures the shape, affine transform, and coordinate reference of
// the template raster. Every input layer must match the canonical Profile
// before it participates in composition or merging; resampling mismatched
// inputs is an external pre-processing responsibility, never done here.
package grid

import (
	"math"

	"github.com/gridseam/gridseam/pkg/errors"
)

// transformEps is the tolerance used when comparing affine transforms.
// Transforms round-tripped through raster headers lose a few ulps.
const transformEps = 1e-9

// Transform is an affine mapping from raster (col, row) space to world (x, y)
// space, in the row-major convention used by georeferenced raster headers:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// For a north-up raster, A is the cell width, E is the negative cell height,
// and (C, F) is the world position of the top-left corner.
type Transform struct {
	A, B, C float64
	D, E, F float64
}

// Apply maps fractional raster coordinates to world coordinates.
func (t Transform) Apply(col, row float64) (x, y float64) {
	x = t.A*col + t.B*row + t.C
	y = t.D*col + t.E*row + t.F
	return x, y
}

// Invert returns the inverse transform, mapping world coordinates back to
// fractional raster coordinates. Returns an error for degenerate transforms
// with zero determinant.
func (t Transform) Invert() (Transform, error) {
	det := t.A*t.E - t.B*t.D
	if det == 0 {
		return Transform{}, errors.New(errors.ErrCodeGridMismatch,
			"transform is degenerate (zero determinant)")
	}
	inv := Transform{
		A: t.E / det,
		B: -t.B / det,
		D: -t.D / det,
		E: t.A / det,
	}
	inv.C = -(inv.A*t.C + inv.B*t.F)
	inv.F = -(inv.D*t.C + inv.E*t.F)
	return inv, nil
}

// CellWidth returns the world-space width of one cell.
func (t Transform) CellWidth() float64 {
	return math.Hypot(t.A, t.D)
}

// Equal reports whether two transforms agree within a small epsilon.
func (t Transform) Equal(o Transform) bool {
	return math.Abs(t.A-o.A) < transformEps &&
		math.Abs(t.B-o.B) < transformEps &&
		math.Abs(t.C-o.C) < transformEps &&
		math.Abs(t.D-o.D) < transformEps &&
		math.Abs(t.E-o.E) < transformEps &&
		math.Abs(t.F-o.F) < transformEps
}

// Profile is the canonical raster geometry: shape, transform, coordinate
// reference, and nodata sentinel. All layers in a compositing run share one
// Profile.
type Profile struct {
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	Transform Transform `json:"transform"`
	CRS       string    `json:"crs"`
	Nodata    float64   `json:"nodata"`
}

// Cells returns the total cell count.
func (p Profile) Cells() int {
	return p.Rows * p.Cols
}

// Congruent reports whether two profiles describe the same grid. Shapes and
// transforms must match; coordinate references must match when both are set.
// An empty CRS (common for bare-header formats) matches anything.
func (p Profile) Congruent(o Profile) bool {
	if p.Rows != o.Rows || p.Cols != o.Cols {
		return false
	}
	if !p.Transform.Equal(o.Transform) {
		return false
	}
	if p.CRS != "" && o.CRS != "" && p.CRS != o.CRS {
		return false
	}
	return true
}

// Validate checks a candidate profile against the canonical one, returning a
// GRID_MISMATCH error naming the offending layer when they disagree.
func (p Profile) Validate(candidate Profile, name string) error {
	if p.Rows != candidate.Rows || p.Cols != candidate.Cols {
		return errors.New(errors.ErrCodeGridMismatch,
			"layer %s shape (%d, %d) does not match grid (%d, %d)",
			name, candidate.Rows, candidate.Cols, p.Rows, p.Cols)
	}
	if !p.Congruent(candidate) {
		return errors.New(errors.ErrCodeGridMismatch,
			"layer %s transform or CRS does not match grid", name)
	}
	return nil
}

// ValidateShape checks only the (rows, cols) shape of a layer against the
// canonical profile. Used for in-memory layers that carry no transform.
func (p Profile) ValidateShape(rows, cols int, name string) error {
	if rows != p.Rows || cols != p.Cols {
		return errors.New(errors.ErrCodeGridMismatch,
			"layer %s shape (%d, %d) does not match grid (%d, %d)",
			name, rows, cols, p.Rows, p.Cols)
	}
	return nil
}
