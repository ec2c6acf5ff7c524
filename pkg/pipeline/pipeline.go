// Package pipeline provides the staged compositing pipeline for gridseam.
//
// This package implements the compose → mask → store → merge flow that the
// CLI drives. The original workflow relied on implicit execution order
// between its steps; here each stage is named, has explicit preconditions,
// and can be run independently or as part of the complete pipeline.
//
// # Architecture
//
// The pipeline consists of five stages:
//
//  1. Mask: rasterize the land vector into the land/ocean mask
//  2. Barriers: composite the boolean offshore barrier layer
//  3. Friction: composite the scalar offshore friction layer
//  4. Store: create the offshore store from the template store
//  5. Merge: reconcile offshore layers with the land store and persist
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(loader, mask.GGRasterizer{}, nil, logger)
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Stats.BarrierTime)
package pipeline

import (
	"time"

	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
	"github.com/gridseam/gridseam/pkg/store"
)

// Stage names reported through logs and observability hooks.
const (
	StageMask     = "mask"
	StageBarriers = "barriers"
	StageFriction = "friction"
	StageStore    = "store"
	StageMerge    = "merge"
)

// Snapshot filenames written when Options.SnapshotDir is set.
const (
	SnapshotBarriers = "offshore_barriers.asc"
	SnapshotFriction = "offshore_friction.asc"
	SnapshotMask     = "land_mask.asc"
)

// Attribute keys written to the offshore store after a merge.
const (
	AttrRunID             = "gridseam_run_id"
	AttrBarrierMultiplier = "barrier_multiplier"
)

// LayerRef names a category raster and the codes to select from it.
type LayerRef struct {
	Values []int32 `json:"values"`
	Path   string  `json:"path"`
}

// WeightedRef names a category raster and a code-to-friction mapping.
type WeightedRef struct {
	Weights map[int32]float64 `json:"weights"`
	Path    string            `json:"path"`
}

// Options contains all configuration for the compositing pipeline. The CLI
// builds this from a scenario file; the core consumes it as plain data.
type Options struct {
	// Barrier inputs
	BarrierFiles         []LayerRef `json:"barrier_files,omitempty"`
	ForcedInclusionFiles []LayerRef `json:"forced_inclusion_files,omitempty"`

	// Friction inputs
	FrictionFiles        []WeightedRef `json:"friction_files,omitempty"`
	MinimumFrictionFiles []WeightedRef `json:"minimum_friction_files,omitempty"`

	// Slope contributes to both barriers and friction when set.
	SlopeFile          string  `json:"slope_file,omitempty"`
	SlopeBarrierCutoff float64 `json:"slope_barrier_cutoff,omitempty"`
	LowSlopeCutoff     float64 `json:"low_slope_cutoff,omitempty"`
	HighSlopeFriction  float64 `json:"high_slope_friction,omitempty"`
	MedSlopeFriction   float64 `json:"medium_slope_friction,omitempty"`
	LowSlopeFriction   float64 `json:"low_slope_friction,omitempty"`

	// Bathymetry friction: cells deeper than the cutoff get the flat
	// friction. Both fields are required when BathyFile is set.
	BathyFile        string  `json:"bathy_file,omitempty"`
	BathyDepthCutoff float64 `json:"bathy_depth_cutoff,omitempty"`
	BathyFriction    float64 `json:"bathy_friction,omitempty"`

	// Land mask inputs. MaskVectorFile is a GeoJSON land boundary;
	// MaskRasterFile loads a previously-snapshotted mask raster instead.
	MaskVectorFile string  `json:"mask_vector_file,omitempty"`
	MaskRasterFile string  `json:"mask_raster_file,omitempty"`
	MaskBuffer     float64 `json:"mask_buffer,omitempty"`

	// Near-shore minimum friction: the land vector buffered by the given
	// distance floors friction at NearshoreFriction.
	NearshoreBuffer   float64 `json:"nearshore_buffer,omitempty"`
	NearshoreFriction float64 `json:"nearshore_friction,omitempty"`

	// Merge inputs
	LandStorePath     string  `json:"land_store,omitempty"`
	TemplateStorePath string  `json:"template_store,omitempty"` // defaults to LandStorePath
	OffshoreStorePath string  `json:"offshore_store,omitempty"`
	LandBarrierLayer  string  `json:"land_barrier_layer,omitempty"`
	LandCostLayer     string  `json:"land_cost_layer,omitempty"`
	OffshoreBarrier   string  `json:"offshore_barrier_layer,omitempty"` // defaults to LandBarrierLayer
	OffshoreFriction  string  `json:"offshore_friction_layer,omitempty"`
	LandCostMult      float64 `json:"land_cost_mult,omitempty"`
	Overwrite         bool    `json:"overwrite,omitempty"`

	// BarrierMultiplier is not consumed here; it is recorded as a store
	// attribute for the downstream router.
	BarrierMultiplier float64 `json:"barrier_multiplier,omitempty"`

	// SnapshotDir enables .asc snapshots of intermediate layers.
	SnapshotDir string `json:"snapshot_dir,omitempty"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies this pipeline run.
	RunID string

	// Barriers is the composite offshore barrier layer.
	Barriers *grid.BoolLayer

	// Friction is the composite offshore friction layer.
	Friction *grid.Float64Layer

	// Mask is the land/ocean mask, true on land.
	Mask *grid.BoolLayer

	// MergedBarriers and MergedFriction are the final unified layers
	// persisted to the offshore store.
	MergedBarriers *grid.Float64Layer
	MergedFriction *grid.Float64Layer

	// Stats contains timing information per stage.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	MaskTime     time.Duration
	BarrierTime  time.Duration
	FrictionTime time.Duration
	StoreTime    time.Duration
	MergeTime    time.Duration
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent; calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.BathyFile != "" && (o.BathyDepthCutoff == 0 || o.BathyFriction == 0) {
		return errors.New(errors.ErrCodeInvalidConfig,
			"bathy_depth_cutoff and bathy_friction must be set when bathy_file is set")
	}
	if o.NearshoreFriction > 0 && o.MaskVectorFile == "" {
		return errors.New(errors.ErrCodeInvalidConfig,
			"nearshore_friction requires mask_vector_file")
	}
	if o.NearshoreFriction < 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"nearshore_friction %v must not be negative", o.NearshoreFriction)
	}
	if o.LandCostMult < 0 || o.LandCostMult > 1 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"land_cost_mult %v must be in (0, 1]", o.LandCostMult)
	}

	// Slope banding defaults
	if o.SlopeBarrierCutoff == 0 {
		o.SlopeBarrierCutoff = 15
	}
	if o.LowSlopeCutoff == 0 {
		o.LowSlopeCutoff = 10
	}
	if o.HighSlopeFriction == 0 {
		o.HighSlopeFriction = 10
	}
	if o.MedSlopeFriction == 0 {
		o.MedSlopeFriction = 5
	}
	if o.LowSlopeFriction == 0 {
		o.LowSlopeFriction = 1
	}

	// Merge defaults
	if o.LandCostMult == 0 {
		o.LandCostMult = 1
	}
	if o.TemplateStorePath == "" {
		o.TemplateStorePath = o.LandStorePath
	}
	if o.LandBarrierLayer == "" {
		o.LandBarrierLayer = store.LayerBarrier
	}
	if o.OffshoreBarrier == "" {
		o.OffshoreBarrier = o.LandBarrierLayer
	}
	if o.OffshoreFriction == "" {
		o.OffshoreFriction = o.LandCostLayer
	}

	o.validated = true
	return nil
}

// ValidateForMerge checks the fields the merge stage requires.
func (o *Options) ValidateForMerge() error {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if o.LandStorePath == "" || o.OffshoreStorePath == "" {
		return errors.New(errors.ErrCodeInvalidConfig,
			"land_store and offshore_store are required for merging")
	}
	if o.LandCostLayer == "" {
		return errors.New(errors.ErrCodeInvalidConfig,
			"land_cost_layer is required for merging")
	}
	return nil
}

// HasMask reports whether a mask source is configured.
func (o *Options) HasMask() bool {
	return o.MaskVectorFile != "" || o.MaskRasterFile != ""
}
