package store

import (
	"sort"

	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
)

// MemoryStore is an in-memory store for tests and ephemeral merges. It
// enforces the same shape and not-found contracts as the sqlite backend.
type MemoryStore struct {
	profile grid.Profile
	layers  map[string]*grid.Float64Layer
	attrs   map[string]string
}

// NewMemoryStore returns an empty in-memory store over the given profile.
func NewMemoryStore(p grid.Profile) *MemoryStore {
	return &MemoryStore{
		profile: p,
		layers:  map[string]*grid.Float64Layer{},
		attrs:   map[string]string{},
	}
}

// Profile implements Store.
func (s *MemoryStore) Profile() (grid.Profile, error) {
	return s.profile, nil
}

// WriteLayer implements Store.
func (s *MemoryStore) WriteLayer(name string, layer *grid.Float64Layer) error {
	if layer.Rows != s.profile.Rows || layer.Cols != s.profile.Cols {
		return errors.New(errors.ErrCodeShapeMismatch,
			"layer %q shape (%d, %d) does not match store shape (%d, %d)",
			name, layer.Rows, layer.Cols, s.profile.Rows, s.profile.Cols)
	}
	s.layers[name] = layer.Clone()
	return nil
}

// ReadLayer implements Store.
func (s *MemoryStore) ReadLayer(name string) (*grid.Float64Layer, error) {
	layer, ok := s.layers[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeLayerNotFound,
			"memory store has no layer %q", name)
	}
	return layer.Clone(), nil
}

// Layers implements Store.
func (s *MemoryStore) Layers() ([]string, error) {
	names := make([]string, 0, len(s.layers))
	for name := range s.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Attrs implements Store.
func (s *MemoryStore) Attrs() (map[string]string, error) {
	out := make(map[string]string, len(s.attrs))
	for k, v := range s.attrs {
		out[k] = v
	}
	return out, nil
}

// SetAttr implements Store.
func (s *MemoryStore) SetAttr(key, value string) error {
	s.attrs[key] = value
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
