// Package merge reconciles offshore-computed layers with pre-existing
// land-based layers: land-sourced values everywhere the land mask is true,
// offshore values everywhere else, with total coverage over the grid.
//
// The land and offshore stores are maintained independently, so congruence
// between them is checked before any cell is merged — by profile equality
// first, falling back to a per-cell coordinate join when the two stores were
// built with differing header metadata. A mismatch is fatal; there is no
// best-effort merge.
package merge

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
	"github.com/gridseam/gridseam/pkg/store"
)

// coordEps is the tolerance for the coordinate-join congruence fallback.
// Coordinates degrade slightly when stores round-trip through different
// header encodings.
const coordEps = 1e-6

// Barriers merges the land store's barrier layer with the offshore barrier
// layer and persists the result in the offshore store.
//
// At each cell the land value is selected where the mask is true, the
// offshore value elsewhere. The merged layer is written under offshoreKey,
// defaulting to landKey when empty.
func Barriers(land store.Store, landKey string, offshore store.Store,
	offshoreKey string, osBarriers *grid.BoolLayer, landMask *grid.BoolLayer) (*grid.Float64Layer, error) {

	if offshoreKey == "" {
		offshoreKey = landKey
	}
	merged, err := mergeLayers(land, landKey, offshore, osBarriers.Floats(), landMask, 1)
	if err != nil {
		return nil, err
	}
	if err := offshore.WriteLayer(offshoreKey, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Friction merges the land store's cost layer with the offshore friction
// layer and persists the result in the offshore store. Land values are
// scaled by landScale before selection, so land crossings stay traversable
// at low relative cost without dominating offshore-first routing. Scale must
// be in (0, 1].
func Friction(land store.Store, landKey string, offshore store.Store,
	offshoreKey string, osFriction *grid.Float64Layer, landMask *grid.BoolLayer,
	landScale float64) (*grid.Float64Layer, error) {

	if landScale <= 0 || landScale > 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"land cost scale %v must be in (0, 1]", landScale)
	}
	if offshoreKey == "" {
		offshoreKey = landKey
	}
	merged, err := mergeLayers(land, landKey, offshore, osFriction, landMask, landScale)
	if err != nil {
		return nil, err
	}
	if err := offshore.WriteLayer(offshoreKey, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func mergeLayers(land store.Store, landKey string, offshore store.Store,
	osData *grid.Float64Layer, landMask *grid.BoolLayer, landScale float64) (*grid.Float64Layer, error) {

	profile, err := congruentProfile(land, offshore)
	if err != nil {
		return nil, err
	}
	if err := profile.ValidateShape(osData.Rows, osData.Cols, "offshore data"); err != nil {
		return nil, err
	}
	if err := profile.ValidateShape(landMask.Rows, landMask.Cols, "land_mask"); err != nil {
		return nil, err
	}

	landData, err := land.ReadLayer(landKey)
	if err != nil {
		return nil, err
	}

	merged := landData.Clone()
	floats.Scale(landScale, merged.Data)
	for i, onLand := range landMask.Data {
		if !onLand {
			merged.Data[i] = osData.Data[i]
		}
	}
	return merged, nil
}

// congruentProfile resolves the shared grid profile of two stores, or fails
// with GRID_MISMATCH. Profiles that disagree only in header metadata are
// accepted when both stores carry per-cell coordinates that match under a
// coordinate join.
func congruentProfile(land, offshore store.Store) (grid.Profile, error) {
	lp, err := land.Profile()
	if err != nil {
		return grid.Profile{}, err
	}
	op, err := offshore.Profile()
	if err != nil {
		return grid.Profile{}, err
	}

	if op.Congruent(lp) {
		return op, nil
	}
	if lp.Rows == op.Rows && lp.Cols == op.Cols && coordinatesMatch(land, offshore) {
		return op, nil
	}
	return grid.Profile{}, errors.New(errors.ErrCodeGridMismatch,
		"land store grid (%d, %d) is not congruent with offshore store grid (%d, %d)",
		lp.Rows, lp.Cols, op.Rows, op.Cols)
}

func coordinatesMatch(a, b store.Store) bool {
	for _, name := range []string{store.LayerLatitude, store.LayerLongitude} {
		la, err := a.ReadLayer(name)
		if err != nil {
			return false
		}
		lb, err := b.ReadLayer(name)
		if err != nil {
			return false
		}
		if len(la.Data) != len(lb.Data) {
			return false
		}
		for i := range la.Data {
			if math.Abs(la.Data[i]-lb.Data[i]) > coordEps {
				return false
			}
		}
	}
	return true
}
