// Package raster loads named raster layers onto the canonical grid.
//
// The Reader interface is the boundary to raster file codecs: a codec reads a
// georeferenced file into a flat value array plus the grid profile recorded
// in its header. The bundled codec handles Esri ASCII grids (.asc); richer
// formats plug in behind the same interface.
//
// The Loader resolves bare filenames against a configured layer directory,
// validates every dataset against the canonical grid profile, and hands back
// typed in-memory layers. It never resamples: a dataset on a different grid
// is a fatal GRID_MISMATCH, not a best-effort warp.
package raster

import (
	"os"
	"path/filepath"

	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
)

// Dataset is a raster file decoded into memory: flat row-major values plus
// the profile from the file header.
type Dataset struct {
	Values  []float64
	Profile grid.Profile
}

// Reader decodes a georeferenced raster file.
type Reader interface {
	Read(path string) (*Dataset, error)
}

// Writer encodes a scalar layer to a georeferenced raster file.
type Writer interface {
	Write(path string, values []float64, p grid.Profile) error
}

// Loader loads named layers, resolving bare filenames against a layer
// directory and validating each against the canonical grid profile.
type Loader struct {
	reader  Reader
	dir     string
	profile grid.Profile
}

// NewLoader returns a Loader over the given codec and canonical profile.
// layerDir may be empty, in which case paths are used as given.
func NewLoader(r Reader, layerDir string, canonical grid.Profile) *Loader {
	return &Loader{reader: r, dir: layerDir, profile: canonical}
}

// Profile returns the canonical grid profile the loader validates against.
func (l *Loader) Profile() grid.Profile {
	return l.profile
}

// Resolve returns the on-disk path for a layer reference. Paths that exist
// are used as-is; bare names fall back to the configured layer directory.
func (l *Loader) Resolve(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	resolved := filepath.Join(l.dir, path)
	if _, err := os.Stat(resolved); err == nil {
		return resolved, nil
	}
	return "", errors.New(errors.ErrCodeLayerLoad,
		"unable to find file %s or %s", path, resolved)
}

// LoadCategory loads an integer category layer.
func (l *Loader) LoadCategory(path string) (*grid.Int32Layer, error) {
	ds, err := l.load(path)
	if err != nil {
		return nil, err
	}
	out := grid.NewInt32Layer(l.profile.Rows, l.profile.Cols)
	for i, v := range ds.Values {
		out.Data[i] = int32(v)
	}
	return out, nil
}

// LoadScalar loads a floating scalar layer.
func (l *Loader) LoadScalar(path string) (*grid.Float64Layer, error) {
	ds, err := l.load(path)
	if err != nil {
		return nil, err
	}
	out := grid.NewFloat64Layer(l.profile.Rows, l.profile.Cols)
	copy(out.Data, ds.Values)
	return out, nil
}

func (l *Loader) load(path string) (*Dataset, error) {
	resolved, err := l.Resolve(path)
	if err != nil {
		return nil, err
	}
	ds, err := l.reader.Read(resolved)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayerLoad, err, "read %s", resolved)
	}
	if err := l.profile.Validate(ds.Profile, filepath.Base(resolved)); err != nil {
		return nil, err
	}
	return ds, nil
}

// TemplateProfile reads only the grid profile from a template raster. The
// canonical profile for a compositing run is extracted once this way.
func TemplateProfile(r Reader, path string) (grid.Profile, error) {
	ds, err := r.Read(path)
	if err != nil {
		return grid.Profile{}, errors.Wrap(errors.ErrCodeLayerLoad, err,
			"read template %s", path)
	}
	return ds.Profile, nil
}
