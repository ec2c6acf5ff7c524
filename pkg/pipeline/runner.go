package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gridseam/gridseam/pkg/compose"
	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
	"github.com/gridseam/gridseam/pkg/mask"
	"github.com/gridseam/gridseam/pkg/merge"
	"github.com/gridseam/gridseam/pkg/observability"
	"github.com/gridseam/gridseam/pkg/raster"
	"github.com/gridseam/gridseam/pkg/store"
)

// StoreProvider resolves the stores a merge needs. The default provider is
// backed by sqlite files; tests substitute in-memory stores.
type StoreProvider interface {
	// Open opens an existing store.
	Open(path string) (store.Store, error)

	// Create creates the offshore store from a template store. Creation
	// runs to completion before the runner issues any layer write.
	Create(path string, template store.Store, overwrite bool) (store.Store, error)
}

// SQLiteProvider is the default file-backed StoreProvider.
type SQLiteProvider struct{}

// Open implements StoreProvider.
func (SQLiteProvider) Open(path string) (store.Store, error) {
	return store.OpenSQLite(path)
}

// Create implements StoreProvider.
func (SQLiteProvider) Create(path string, template store.Store, overwrite bool) (store.Store, error) {
	return store.CreateSQLite(path, template, overwrite)
}

// Runner executes pipeline stages against a fixed canonical grid.
type Runner struct {
	loader     *raster.Loader
	rasterizer mask.Rasterizer
	stores     StoreProvider
	snapshots  raster.Writer
	logger     *log.Logger
}

// NewRunner creates a pipeline runner. A nil provider selects the sqlite
// backend; a nil logger discards output.
func NewRunner(loader *raster.Loader, rasterizer mask.Rasterizer, stores StoreProvider, logger *log.Logger) *Runner {
	if stores == nil {
		stores = SQLiteProvider{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		loader:     loader,
		rasterizer: rasterizer,
		stores:     stores,
		snapshots:  raster.ASCIIGrid{},
		logger:     logger,
	}
}

// Execute runs the complete pipeline: mask, barriers, friction, store
// creation, and merge. Stages that lack inputs are skipped — a run with no
// merge configuration stops after composition. No layer is persisted unless
// every preceding stage succeeded.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString()}
	r.logger.Info("starting pipeline run", "run_id", result.RunID)

	if opts.HasMask() {
		landMask, elapsed, err := runStage(ctx, StageMask, func() (*grid.BoolLayer, error) {
			return r.BuildMask(ctx, opts)
		})
		if err != nil {
			return nil, err
		}
		result.Mask = landMask
		result.Stats.MaskTime = elapsed
		r.logger.Info("built land mask", "land_cells", landMask.Count())
	}

	if len(opts.BarrierFiles) > 0 || opts.SlopeFile != "" {
		barriers, elapsed, err := runStage(ctx, StageBarriers, func() (*grid.BoolLayer, error) {
			return r.ComposeBarriers(ctx, opts)
		})
		if err != nil {
			return nil, err
		}
		result.Barriers = barriers
		result.Stats.BarrierTime = elapsed
		r.logger.Info("composed barriers", "barrier_cells", barriers.Count())
	}

	if len(opts.FrictionFiles) > 0 || opts.SlopeFile != "" || opts.BathyFile != "" {
		friction, elapsed, err := runStage(ctx, StageFriction, func() (*grid.Float64Layer, error) {
			return r.ComposeFriction(ctx, opts)
		})
		if err != nil {
			return nil, err
		}
		result.Friction = friction
		result.Stats.FrictionTime = elapsed
		r.logger.Info("composed friction")
	}

	if opts.OffshoreStorePath == "" {
		return result, nil
	}
	if err := r.mergeStage(ctx, opts, result); err != nil {
		return nil, err
	}
	return result, nil
}

// BuildMask runs the mask stage: rasterize the land vector (or load a
// cached mask raster) into the land/ocean layer, snapshotting if enabled.
func (r *Runner) BuildMask(ctx context.Context, opts Options) (*grid.BoolLayer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	if opts.MaskRasterFile != "" {
		r.logger.Debug("loading cached land mask", "file", opts.MaskRasterFile)
		layer, err := r.loader.LoadScalar(opts.MaskRasterFile)
		if err != nil {
			return nil, err
		}
		return grid.BoolsFromFloats(layer), nil
	}

	geom, err := mask.ReadGeoJSON(opts.MaskVectorFile)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMaskBuild, err,
			"read land vector %s", opts.MaskVectorFile)
	}

	builder := mask.NewBuilder(r.rasterizer, r.loader.Profile())
	landMask, err := builder.Build(geom, opts.MaskBuffer)
	if err != nil {
		return nil, err
	}
	if err := r.snapshot(opts, SnapshotMask, landMask.Floats()); err != nil {
		return nil, err
	}
	return landMask, nil
}

// ComposeBarriers runs the barrier stage: load every barrier and forced
// inclusion layer and composite them, with the slope barrier if configured.
func (r *Runner) ComposeBarriers(ctx context.Context, opts Options) (*grid.BoolLayer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	specs, err := r.loadBarrierSpecs(opts.BarrierFiles)
	if err != nil {
		return nil, err
	}
	includes, err := r.loadBarrierSpecs(opts.ForcedInclusionFiles)
	if err != nil {
		return nil, err
	}

	var slope *compose.SlopeBarrier
	if opts.SlopeFile != "" {
		layer, err := r.loader.LoadScalar(opts.SlopeFile)
		if err != nil {
			return nil, err
		}
		slope = &compose.SlopeBarrier{Layer: layer, Cutoff: opts.SlopeBarrierCutoff}
	}

	barriers, err := compose.Barriers(r.loader.Profile(), specs, includes, slope)
	if err != nil {
		return nil, err
	}
	if err := r.snapshot(opts, SnapshotBarriers, barriers.Floats()); err != nil {
		return nil, err
	}
	return barriers, nil
}

// ComposeFriction runs the friction stage: load every friction layer and
// composite them with slope banding, bathymetry, and minimum-friction
// floors, including the near-shore floor derived from the buffered land
// vector.
func (r *Runner) ComposeFriction(ctx context.Context, opts Options) (*grid.Float64Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	profile := r.loader.Profile()
	nodata := int32(profile.Nodata)

	specs, err := r.loadFrictionSpecs(opts.FrictionFiles, nodata)
	if err != nil {
		return nil, err
	}
	minimum, err := r.loadFrictionSpecs(opts.MinimumFrictionFiles, nodata)
	if err != nil {
		return nil, err
	}

	if opts.NearshoreFriction > 0 {
		nearshore, err := r.nearshoreSpec(opts)
		if err != nil {
			return nil, err
		}
		minimum = append(minimum, nearshore)
	}

	var slope *compose.SlopeFriction
	if opts.SlopeFile != "" {
		layer, err := r.loader.LoadScalar(opts.SlopeFile)
		if err != nil {
			return nil, err
		}
		slope = &compose.SlopeFriction{
			Layer:         layer,
			BarrierCutoff: opts.SlopeBarrierCutoff,
			LowCutoff:     opts.LowSlopeCutoff,
			High:          opts.HighSlopeFriction,
			Medium:        opts.MedSlopeFriction,
			Low:           opts.LowSlopeFriction,
		}
	}

	var bathy *compose.BathymetryFriction
	if opts.BathyFile != "" {
		layer, err := r.loader.LoadScalar(opts.BathyFile)
		if err != nil {
			return nil, err
		}
		bathy = &compose.BathymetryFriction{
			Layer:       layer,
			DepthCutoff: opts.BathyDepthCutoff,
			Friction:    opts.BathyFriction,
		}
	}

	friction, err := compose.Friction(profile, specs, slope, bathy, minimum)
	if err != nil {
		return nil, err
	}
	if err := r.snapshot(opts, SnapshotFriction, friction); err != nil {
		return nil, err
	}
	return friction, nil
}

// nearshoreSpec buffers the land vector and converts it into a
// minimum-friction spec flooring near-shore cells.
func (r *Runner) nearshoreSpec(opts Options) (compose.FrictionSpec, error) {
	geom, err := mask.ReadGeoJSON(opts.MaskVectorFile)
	if err != nil {
		return compose.FrictionSpec{}, errors.Wrap(errors.ErrCodeMaskBuild, err,
			"read land vector %s", opts.MaskVectorFile)
	}
	builder := mask.NewBuilder(r.rasterizer, r.loader.Profile())
	buffered, err := builder.Build(geom, opts.NearshoreBuffer)
	if err != nil {
		return compose.FrictionSpec{}, err
	}
	return compose.FrictionSpec{
		Weights: map[int32]float64{1: opts.NearshoreFriction},
		Layer:   mask.FrictionSource(buffered),
		Name:    "nearshore",
	}, nil
}

// Merge runs the store and merge stages against previously composed layers.
// Used to finish a run from snapshotted intermediates without recomposing.
func (r *Runner) Merge(ctx context.Context, opts Options, result *Result) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}
	return r.mergeStage(ctx, opts, result)
}

// mergeStage opens the land and template stores, creates the offshore
// store, and merges the composed layers into it.
func (r *Runner) mergeStage(ctx context.Context, opts Options, result *Result) error {
	if err := opts.ValidateForMerge(); err != nil {
		return err
	}
	if result.Mask == nil {
		return errors.New(errors.ErrCodeInvalidConfig,
			"merging requires a land mask (set mask_vector_file or mask_raster_file)")
	}
	if result.Barriers == nil || result.Friction == nil {
		return errors.New(errors.ErrCodeInvalidConfig,
			"merging requires composed barrier and friction layers")
	}

	land, err := r.stores.Open(opts.LandStorePath)
	if err != nil {
		return err
	}
	defer land.Close()

	template := land
	if opts.TemplateStorePath != opts.LandStorePath {
		template, err = r.stores.Open(opts.TemplateStorePath)
		if err != nil {
			return err
		}
		defer template.Close()
	}

	offshore, elapsed, err := runStage(ctx, StageStore, func() (store.Store, error) {
		observability.Store().OnCreate(ctx, opts.OffshoreStorePath, opts.Overwrite)
		return r.stores.Create(opts.OffshoreStorePath, template, opts.Overwrite)
	})
	if err != nil {
		return err
	}
	defer offshore.Close()
	result.Stats.StoreTime = elapsed
	r.logger.Info("created offshore store", "path", opts.OffshoreStorePath)

	type mergedLayers struct {
		barriers, friction *grid.Float64Layer
	}
	merged, elapsed, err := runStage(ctx, StageMerge, func() (mergedLayers, error) {
		barriers, err := merge.Barriers(land, opts.LandBarrierLayer, offshore,
			opts.OffshoreBarrier, result.Barriers, result.Mask)
		if err != nil {
			return mergedLayers{}, err
		}
		friction, err := merge.Friction(land, opts.LandCostLayer, offshore,
			opts.OffshoreFriction, result.Friction, result.Mask, opts.LandCostMult)
		if err != nil {
			return mergedLayers{}, err
		}
		return mergedLayers{barriers, friction}, nil
	})
	if err != nil {
		return err
	}
	result.MergedBarriers = merged.barriers
	result.MergedFriction = merged.friction
	result.Stats.MergeTime = elapsed
	storeHooks := observability.Store()
	storeHooks.OnLayerWrite(ctx, opts.OffshoreBarrier, len(merged.barriers.Data))
	storeHooks.OnLayerWrite(ctx, opts.OffshoreFriction, len(merged.friction.Data))
	r.logger.Info("merged land and offshore layers",
		"barrier_layer", opts.OffshoreBarrier, "friction_layer", opts.OffshoreFriction)

	if err := offshore.SetAttr(AttrRunID, result.RunID); err != nil {
		return err
	}
	if opts.BarrierMultiplier > 0 {
		// Recorded for the downstream router; not consumed here.
		if err := offshore.SetAttr(AttrBarrierMultiplier,
			formatAttrFloat(opts.BarrierMultiplier)); err != nil {
			return err
		}
	}
	return nil
}

// loadBarrierSpecs loads category layers for barrier or forced inclusion
// refs.
func (r *Runner) loadBarrierSpecs(refs []LayerRef) ([]compose.BarrierSpec, error) {
	specs := make([]compose.BarrierSpec, 0, len(refs))
	for _, ref := range refs {
		if len(ref.Values) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig,
				"barrier file %s has no selector values", ref.Path)
		}
		layer, err := r.loader.LoadCategory(ref.Path)
		if err != nil {
			return nil, err
		}
		specs = append(specs, compose.BarrierSpec{
			Select: compose.Values(ref.Values...),
			Layer:  layer,
			Name:   filepath.Base(ref.Path),
		})
	}
	return specs, nil
}

// loadFrictionSpecs loads category layers for friction refs, warning when a
// mapped key collides with the grid's nodata sentinel.
func (r *Runner) loadFrictionSpecs(refs []WeightedRef, nodata int32) ([]compose.FrictionSpec, error) {
	specs := make([]compose.FrictionSpec, 0, len(refs))
	for _, ref := range refs {
		if len(ref.Weights) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig,
				"friction file %s has no weight mapping", ref.Path)
		}
		layer, err := r.loader.LoadCategory(ref.Path)
		if err != nil {
			return nil, err
		}
		spec := compose.FrictionSpec{
			Weights: ref.Weights,
			Layer:   layer,
			Name:    filepath.Base(ref.Path),
		}
		if keys := spec.NodataKeys(nodata); len(keys) > 0 {
			r.logger.Warn("friction mapping key equals the nodata sentinel",
				"file", ref.Path, "keys", keys)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// snapshot writes an intermediate layer to the snapshot dir when enabled.
func (r *Runner) snapshot(opts Options, name string, layer *grid.Float64Layer) error {
	if opts.SnapshotDir == "" {
		return nil
	}
	path := filepath.Join(opts.SnapshotDir, name)
	r.logger.Debug("writing snapshot", "path", path)
	if err := r.snapshots.Write(path, layer.Data, r.loader.Profile()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write snapshot %s", path)
	}
	return nil
}

// runStage wraps a stage function with timing, context checks, and
// observability hooks.
func runStage[T any](ctx context.Context, stage string, fn func() (T, error)) (T, time.Duration, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, 0, err
	}
	observability.Pipeline().OnStageStart(ctx, stage)
	start := time.Now()
	out, err := fn()
	elapsed := time.Since(start)
	observability.Pipeline().OnStageComplete(ctx, stage, elapsed, err)
	if err != nil {
		return zero, elapsed, err
	}
	return out, elapsed, nil
}

func formatAttrFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
