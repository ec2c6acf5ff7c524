// Package compose builds composite barrier and friction layers from
// heterogeneous category rasters.
//
// Every composition step is an immutable-in, immutable-out function over
// layers sharing one grid profile: inputs are never mutated, outputs are
// freshly allocated. All operations are purely elementwise, so overlap and
// ordering semantics are auditable in isolation — barrier accumulation is a
// commutative OR, friction accumulation is a commutative sum, and the
// minimum-friction floor is an elementwise max applied last.
package compose

import (
	"sort"

	"github.com/gridseam/gridseam/pkg/grid"
)

// ValueSelector is a set of category codes identifying matching cells in a
// category layer. A single code and a multi-code list are the same thing: a
// set, consumed uniformly everywhere.
type ValueSelector map[int32]struct{}

// Values builds a ValueSelector from one or more category codes.
func Values(vals ...int32) ValueSelector {
	s := make(ValueSelector, len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is in the selector.
func (s ValueSelector) Contains(v int32) bool {
	_, ok := s[v]
	return ok
}

// Slice returns the selector's codes in ascending order.
func (s ValueSelector) Slice() []int32 {
	out := make([]int32, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BarrierSpec marks cells of a category layer as barrier contributors (or,
// when used as a forced inclusion, as override cells). A cell contributes
// when its category code is in the selector.
type BarrierSpec struct {
	Select ValueSelector
	Layer  *grid.Int32Layer
	Name   string // source name for error reporting
}

// FrictionSpec maps category codes of a source layer to friction magnitudes.
// Unmapped codes contribute zero.
type FrictionSpec struct {
	Weights map[int32]float64
	Layer   *grid.Int32Layer
	Name    string
}

// NodataKeys returns the mapped keys that collide with the grid's nodata
// sentinel. The compositor treats nodata cells as zero friction unless
// explicitly mapped; a collision is almost always a config mistake, so
// callers surface it as a validation warning.
func (s FrictionSpec) NodataKeys(nodata int32) []int32 {
	var out []int32
	for k := range s.Weights {
		if k == nodata {
			out = append(out, k)
		}
	}
	return out
}
