package cli

import (
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
	"github.com/gridseam/gridseam/pkg/pipeline"
	"github.com/gridseam/gridseam/pkg/raster"
	"github.com/gridseam/gridseam/pkg/store"
)

// scenario is the TOML configuration for a compositing run. Relative paths
// are resolved against the scenario file's directory.
type scenario struct {
	LayerDir       string `toml:"layer_dir"`
	TemplateRaster string `toml:"template_raster"`
	SnapshotDir    string `toml:"snapshot_dir"`

	Barriers         []layerRef    `toml:"barriers"`
	ForcedInclusions []layerRef    `toml:"forced_inclusions"`
	Friction         []weightedRef `toml:"friction"`
	MinimumFriction  []weightedRef `toml:"minimum_friction"`

	Slope      slopeConfig `toml:"slope"`
	Bathymetry bathyConfig `toml:"bathymetry"`
	Mask       maskConfig  `toml:"mask"`
	Merge      mergeConfig `toml:"merge"`

	dir string // scenario file directory, for path resolution
}

type layerRef struct {
	Path   string  `toml:"path"`
	Values []int32 `toml:"values"`
}

// weightedRef keeps TOML-native string keys; toOptions parses them into
// category codes.
type weightedRef struct {
	Path    string             `toml:"path"`
	Weights map[string]float64 `toml:"weights"`
}

type slopeConfig struct {
	Path           string  `toml:"path"`
	BarrierCutoff  float64 `toml:"barrier_cutoff"`
	LowCutoff      float64 `toml:"low_cutoff"`
	HighFriction   float64 `toml:"high_friction"`
	MediumFriction float64 `toml:"medium_friction"`
	LowFriction    float64 `toml:"low_friction"`
}

type bathyConfig struct {
	Path        string  `toml:"path"`
	DepthCutoff float64 `toml:"depth_cutoff"`
	Friction    float64 `toml:"friction"`
}

type maskConfig struct {
	VectorPath        string  `toml:"vector_path"`
	RasterPath        string  `toml:"raster_path"`
	Buffer            float64 `toml:"buffer"`
	NearshoreBuffer   float64 `toml:"nearshore_buffer"`
	NearshoreFriction float64 `toml:"nearshore_friction"`
}

type mergeConfig struct {
	LandStore             string  `toml:"land_store"`
	TemplateStore         string  `toml:"template_store"`
	OffshoreStore         string  `toml:"offshore_store"`
	LandBarrierLayer      string  `toml:"land_barrier_layer"`
	LandCostLayer         string  `toml:"land_cost_layer"`
	OffshoreBarrierLayer  string  `toml:"offshore_barrier_layer"`
	OffshoreFrictionLayer string  `toml:"offshore_friction_layer"`
	LandCostMult          float64 `toml:"land_cost_mult"`
	Overwrite             bool    `toml:"overwrite"`
	BarrierMultiplier     float64 `toml:"barrier_multiplier"`
}

// loadScenario parses a scenario file and resolves its paths.
func loadScenario(path string) (*scenario, error) {
	var s scenario
	meta, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse scenario %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"scenario %s has unknown keys: %v", path, undecoded)
	}
	s.dir = filepath.Dir(path)
	return &s, nil
}

// resolve makes a scenario-relative path absolute against the scenario
// file's directory. Absolute paths and the empty string pass through.
func (s *scenario) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.dir, path)
}

// canonicalProfile derives the grid every raster must match: the template
// raster when one is named, otherwise the land store's stored profile.
func (s *scenario) canonicalProfile() (grid.Profile, error) {
	if s.TemplateRaster != "" {
		return raster.TemplateProfile(raster.ASCIIGrid{}, s.resolve(s.TemplateRaster))
	}
	if s.Merge.LandStore != "" {
		landStore, err := store.OpenSQLite(s.resolve(s.Merge.LandStore))
		if err != nil {
			return grid.Profile{}, err
		}
		defer landStore.Close()
		return landStore.Profile()
	}
	return grid.Profile{}, errors.New(errors.ErrCodeInvalidConfig,
		"scenario needs template_raster or merge.land_store to define the grid")
}

// toOptions converts the scenario into pipeline options.
func (s *scenario) toOptions() (pipeline.Options, error) {
	friction, err := s.weightedRefs(s.Friction)
	if err != nil {
		return pipeline.Options{}, err
	}
	minimum, err := s.weightedRefs(s.MinimumFriction)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{
		BarrierFiles:         s.layerRefs(s.Barriers),
		ForcedInclusionFiles: s.layerRefs(s.ForcedInclusions),
		FrictionFiles:        friction,
		MinimumFrictionFiles: minimum,

		SlopeFile:          s.resolve(s.Slope.Path),
		SlopeBarrierCutoff: s.Slope.BarrierCutoff,
		LowSlopeCutoff:     s.Slope.LowCutoff,
		HighSlopeFriction:  s.Slope.HighFriction,
		MedSlopeFriction:   s.Slope.MediumFriction,
		LowSlopeFriction:   s.Slope.LowFriction,

		BathyFile:        s.resolve(s.Bathymetry.Path),
		BathyDepthCutoff: s.Bathymetry.DepthCutoff,
		BathyFriction:    s.Bathymetry.Friction,

		MaskVectorFile:    s.resolve(s.Mask.VectorPath),
		MaskRasterFile:    s.resolve(s.Mask.RasterPath),
		MaskBuffer:        s.Mask.Buffer,
		NearshoreBuffer:   s.Mask.NearshoreBuffer,
		NearshoreFriction: s.Mask.NearshoreFriction,

		LandStorePath:     s.resolve(s.Merge.LandStore),
		TemplateStorePath: s.resolve(s.Merge.TemplateStore),
		OffshoreStorePath: s.resolve(s.Merge.OffshoreStore),
		LandBarrierLayer:  s.Merge.LandBarrierLayer,
		LandCostLayer:     s.Merge.LandCostLayer,
		OffshoreBarrier:   s.Merge.OffshoreBarrierLayer,
		OffshoreFriction:  s.Merge.OffshoreFrictionLayer,
		LandCostMult:      s.Merge.LandCostMult,
		Overwrite:         s.Merge.Overwrite,
		BarrierMultiplier: s.Merge.BarrierMultiplier,

		SnapshotDir: s.resolve(s.SnapshotDir),
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

func (s *scenario) layerRefs(refs []layerRef) []pipeline.LayerRef {
	out := make([]pipeline.LayerRef, 0, len(refs))
	for _, r := range refs {
		out = append(out, pipeline.LayerRef{Values: r.Values, Path: s.resolve(r.Path)})
	}
	return out
}

func (s *scenario) weightedRefs(refs []weightedRef) ([]pipeline.WeightedRef, error) {
	out := make([]pipeline.WeightedRef, 0, len(refs))
	for _, r := range refs {
		weights := make(map[int32]float64, len(r.Weights))
		for key, friction := range r.Weights {
			code, err := strconv.ParseInt(key, 10, 32)
			if err != nil {
				return nil, errors.New(errors.ErrCodeInvalidConfig,
					"friction file %s: weight key %q is not a category code", r.Path, key)
			}
			weights[int32(code)] = friction
		}
		out = append(out, pipeline.WeightedRef{Weights: weights, Path: s.resolve(r.Path)})
	}
	return out, nil
}
