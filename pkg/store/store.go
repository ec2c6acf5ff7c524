// Package store implements the keyed geospatial layer store: a named
// collection of 2-D datasets sharing one grid profile, plus the per-cell
// latitude/longitude coordinate arrays inherited from a template store.
//
// Two backends are provided. The sqlite backend is the persistent,
// file-backed store used by the pipeline; the memory backend serves tests
// and ephemeral merges. Both enforce the same contract: a layer write either
// fully replaces the named dataset or fails, and every layer must be an
// exact-shape match to the store's profile.
package store

import (
	"github.com/gridseam/gridseam/pkg/grid"
)

// Well-known dataset names.
const (
	// LayerLatitude and LayerLongitude are the per-cell coordinate arrays
	// copied from the template store at creation time.
	LayerLatitude  = "latitude"
	LayerLongitude = "longitude"

	// LayerRegions is the region code layer seeded at creation.
	LayerRegions = "ISO_regions"

	// LayerBarrier is the canonical key for the merged barrier layer.
	LayerBarrier = "transmission_barrier"

	// FrictionKeyPrefix prefixes per-scenario merged friction layers, e.g.
	// "tie_line_costs_400MW".
	FrictionKeyPrefix = "tie_line_costs_"
)

// FrictionKey returns the canonical friction layer key for a scenario label.
func FrictionKey(label string) string {
	return FrictionKeyPrefix + label
}

// Store is a keyed collection of scalar layers over one grid profile.
// Implementations are not safe for concurrent writers; callers serialize
// access to a store.
type Store interface {
	// Profile returns the grid profile all layers must match.
	Profile() (grid.Profile, error)

	// WriteLayer fully replaces (or creates) the named dataset. Returns a
	// SHAPE_MISMATCH error when the layer's shape disagrees with the
	// store's profile.
	WriteLayer(name string, layer *grid.Float64Layer) error

	// ReadLayer returns the named dataset, or a LAYER_NOT_FOUND error.
	ReadLayer(name string) (*grid.Float64Layer, error)

	// Layers lists dataset names in lexical order.
	Layers() ([]string, error)

	// Attrs returns the store's global attributes.
	Attrs() (map[string]string, error)

	// SetAttr writes one global attribute.
	SetAttr(key, value string) error

	// Close releases the underlying resources.
	Close() error
}
