package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
	"github.com/gridseam/gridseam/pkg/mask"
	"github.com/gridseam/gridseam/pkg/raster"
	"github.com/gridseam/gridseam/pkg/store"
)

func testProfile() grid.Profile {
	return grid.Profile{
		Rows:      4,
		Cols:      4,
		Transform: grid.Transform{A: 100, C: 0, E: -100, F: 400},
		Nodata:    -9999,
	}
}

func writeASC(t *testing.T, dir, name string, values []float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := (raster.ASCIIGrid{}).Write(path, values, testProfile()); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// Left half of the grid (cols 0-1) is land.
func writeLandVector(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "land.geojson")
	data := `{"type":"Polygon","coordinates":[[[0,0],[200,0],[200,400],[0,400],[0,0]]]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write land vector: %v", err)
	}
	return path
}

// memProvider keeps stores in a map keyed by path. Create mirrors the
// sqlite backend: copy coordinate layers and attrs from the template and
// seed a uniform region layer.
type memProvider struct {
	stores map[string]*store.MemoryStore
}

func newMemProvider() *memProvider {
	return &memProvider{stores: make(map[string]*store.MemoryStore)}
}

func (p *memProvider) Open(path string) (store.Store, error) {
	s, ok := p.stores[path]
	if !ok {
		return nil, errors.New(errors.ErrCodeStore, "no store at %s", path)
	}
	return s, nil
}

func (p *memProvider) Create(path string, template store.Store, overwrite bool) (store.Store, error) {
	if _, ok := p.stores[path]; ok && !overwrite {
		return nil, errors.New(errors.ErrCodeStoreExists, "store already exists at %s", path)
	}
	tp, err := template.Profile()
	if err != nil {
		return nil, err
	}
	s := store.NewMemoryStore(tp)
	for _, name := range []string{store.LayerLatitude, store.LayerLongitude} {
		if layer, err := template.ReadLayer(name); err == nil {
			if err := s.WriteLayer(name, layer); err != nil {
				return nil, err
			}
		}
	}
	regions := grid.NewFloat64Layer(tp.Rows, tp.Cols)
	regions.Fill(1)
	if err := s.WriteLayer(store.LayerRegions, regions); err != nil {
		return nil, err
	}
	p.stores[path] = s
	return s, nil
}

func landStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	p := testProfile()
	s := store.NewMemoryStore(p)

	barrier := grid.NewFloat64Layer(p.Rows, p.Cols)
	barrier.Fill(1)
	cost := grid.NewFloat64Layer(p.Rows, p.Cols)
	cost.Fill(8)
	lat := grid.NewFloat64Layer(p.Rows, p.Cols)
	lat.Fill(44.5)
	lon := grid.NewFloat64Layer(p.Rows, p.Cols)
	lon.Fill(-68.0)

	for name, layer := range map[string]*grid.Float64Layer{
		store.LayerBarrier:         barrier,
		store.FrictionKey("400MW"): cost,
		store.LayerLatitude:        lat,
		store.LayerLongitude:       lon,
	} {
		if err := s.WriteLayer(name, layer); err != nil {
			t.Fatalf("seed land store %s: %v", name, err)
		}
	}
	return s
}

func testRunner(dir string, provider StoreProvider) *Runner {
	loader := raster.NewLoader(raster.ASCIIGrid{}, dir, testProfile())
	return NewRunner(loader, mask.GGRasterizer{}, provider, nil)
}

func TestExecuteFullPipeline(t *testing.T) {
	dir := t.TempDir()

	barrierFile := writeASC(t, dir, "cables.asc", []float64{
		0, 0, 1, 0,
		0, 0, 0, 1,
		0, 0, 1, 1,
		0, 0, 0, 0,
	})
	inclusionFile := writeASC(t, dir, "corridors.asc", []float64{
		0, 0, 7, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})
	frictionFile := writeASC(t, dir, "shipping.asc", []float64{
		0, 0, 2, 2,
		0, 0, 2, 2,
		0, 0, 2, 2,
		0, 0, 2, 2,
	})

	provider := newMemProvider()
	provider.stores["land.db"] = landStore(t)

	opts := Options{
		BarrierFiles:         []LayerRef{{Values: []int32{1}, Path: barrierFile}},
		ForcedInclusionFiles: []LayerRef{{Values: []int32{7}, Path: inclusionFile}},
		FrictionFiles:        []WeightedRef{{Weights: map[int32]float64{2: 5}, Path: frictionFile}},
		MaskVectorFile:       writeLandVector(t, dir),
		LandStorePath:        "land.db",
		OffshoreStorePath:    "offshore.db",
		LandCostLayer:        store.FrictionKey("400MW"),
		LandCostMult:         0.5,
		BarrierMultiplier:    100,
	}

	result, err := testRunner(dir, provider).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.RunID == "" {
		t.Error("expected non-empty run ID")
	}

	// Land cols 0-1, ocean cols 2-3.
	for col := 0; col < 4; col++ {
		want := col < 2
		if got := result.Mask.At(0, col); got != want {
			t.Errorf("mask col %d = %v, want %v", col, got, want)
		}
	}

	// The forced inclusion clears the barrier at (0, 2).
	if result.Barriers.At(0, 2) {
		t.Error("forced inclusion cell should not be a barrier")
	}
	if !result.Barriers.At(1, 3) || !result.Barriers.At(2, 2) {
		t.Error("expected barrier cells from the category layer")
	}

	wantBarriers := []float64{
		1, 1, 0, 0,
		1, 1, 0, 1,
		1, 1, 1, 1,
		1, 1, 0, 0,
	}
	wantFriction := []float64{
		4, 4, 5, 5,
		4, 4, 5, 5,
		4, 4, 5, 5,
		4, 4, 5, 5,
	}
	for i := range wantBarriers {
		if got := result.MergedBarriers.Data[i]; got != wantBarriers[i] {
			t.Errorf("merged barrier cell %d = %v, want %v", i, got, wantBarriers[i])
		}
		if got := result.MergedFriction.Data[i]; got != wantFriction[i] {
			t.Errorf("merged friction cell %d = %v, want %v", i, got, wantFriction[i])
		}
	}

	offshore := provider.stores["offshore.db"]
	persisted, err := offshore.ReadLayer(store.LayerBarrier)
	if err != nil {
		t.Fatalf("read persisted barriers: %v", err)
	}
	if persisted.At(2, 2) != 1 || persisted.At(0, 2) != 0 {
		t.Error("persisted barrier layer does not match the merge result")
	}
	if _, err := offshore.ReadLayer(store.FrictionKey("400MW")); err != nil {
		t.Fatalf("read persisted friction: %v", err)
	}
	if _, err := offshore.ReadLayer(store.LayerRegions); err != nil {
		t.Fatalf("offshore store missing region layer: %v", err)
	}

	attrs, err := offshore.Attrs()
	if err != nil {
		t.Fatalf("read attrs: %v", err)
	}
	if attrs[AttrRunID] != result.RunID {
		t.Errorf("attr %s = %q, want %q", AttrRunID, attrs[AttrRunID], result.RunID)
	}
	if attrs[AttrBarrierMultiplier] != "100" {
		t.Errorf("attr %s = %q, want %q", AttrBarrierMultiplier, attrs[AttrBarrierMultiplier], "100")
	}
}

func TestExecuteComposeOnly(t *testing.T) {
	dir := t.TempDir()
	barrierFile := writeASC(t, dir, "cables.asc", []float64{
		1, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 1,
	})

	opts := Options{
		BarrierFiles: []LayerRef{{Values: []int32{1}, Path: barrierFile}},
	}
	result, err := testRunner(dir, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Barriers == nil || result.Barriers.Count() != 2 {
		t.Fatalf("expected 2 barrier cells, got %+v", result.Barriers)
	}
	if result.Friction != nil || result.MergedBarriers != nil {
		t.Error("compose-only run should not produce friction or merged layers")
	}
}

func TestBuildMaskFromRaster(t *testing.T) {
	dir := t.TempDir()
	maskFile := writeASC(t, dir, "mask.asc", []float64{
		1, 1, 0, 0,
		1, 1, 0, 0,
		1, 1, 0, 0,
		1, 1, 0, 0,
	})

	opts := Options{MaskRasterFile: maskFile}
	landMask, err := testRunner(dir, nil).BuildMask(context.Background(), opts)
	if err != nil {
		t.Fatalf("BuildMask: %v", err)
	}
	if landMask.Count() != 8 {
		t.Errorf("expected 8 land cells, got %d", landMask.Count())
	}
	if !landMask.At(3, 0) || landMask.At(3, 3) {
		t.Error("mask does not match the raster values")
	}
}

func TestComposeFrictionNearshoreFloor(t *testing.T) {
	dir := t.TempDir()
	frictionFile := writeASC(t, dir, "shipping.asc", []float64{
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})

	opts := Options{
		FrictionFiles:     []WeightedRef{{Weights: map[int32]float64{2: 5}, Path: frictionFile}},
		MaskVectorFile:    writeLandVector(t, dir),
		NearshoreFriction: 3,
	}
	friction, err := testRunner(dir, nil).ComposeFriction(context.Background(), opts)
	if err != nil {
		t.Fatalf("ComposeFriction: %v", err)
	}
	// The unbuffered land footprint is floored at the near-shore value.
	if got := friction.At(0, 0); got != 3 {
		t.Errorf("near-shore cell friction = %v, want 3", got)
	}
	if got := friction.At(0, 3); got != 0 {
		t.Errorf("open-water cell friction = %v, want 0", got)
	}
}

func TestComposeBarriersSnapshot(t *testing.T) {
	dir := t.TempDir()
	snapDir := t.TempDir()
	barrierFile := writeASC(t, dir, "cables.asc", []float64{
		0, 1, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	})

	opts := Options{
		BarrierFiles: []LayerRef{{Values: []int32{1}, Path: barrierFile}},
		SnapshotDir:  snapDir,
	}
	if _, err := testRunner(dir, nil).ComposeBarriers(context.Background(), opts); err != nil {
		t.Fatalf("ComposeBarriers: %v", err)
	}

	ds, err := (raster.ASCIIGrid{}).Read(filepath.Join(snapDir, SnapshotBarriers))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if ds.Values[1] != 1 || ds.Values[0] != 0 {
		t.Error("snapshot values do not match the composed barriers")
	}
}

func TestExecuteCancelled(t *testing.T) {
	dir := t.TempDir()
	maskFile := writeASC(t, dir, "mask.asc", make([]float64, 16))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testRunner(dir, nil).Execute(ctx, Options{MaskRasterFile: maskFile})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExecuteMergeRequiresMask(t *testing.T) {
	dir := t.TempDir()
	barrierFile := writeASC(t, dir, "cables.asc", make([]float64, 16))
	frictionFile := writeASC(t, dir, "shipping.asc", make([]float64, 16))

	provider := newMemProvider()
	provider.stores["land.db"] = landStore(t)

	opts := Options{
		BarrierFiles:      []LayerRef{{Values: []int32{1}, Path: barrierFile}},
		FrictionFiles:     []WeightedRef{{Weights: map[int32]float64{2: 5}, Path: frictionFile}},
		LandStorePath:     "land.db",
		OffshoreStorePath: "offshore.db",
		LandCostLayer:     store.FrictionKey("400MW"),
	}
	_, err := testRunner(dir, provider).Execute(context.Background(), opts)
	if errors.GetCode(err) != errors.ErrCodeInvalidConfig {
		t.Fatalf("expected %s, got %v", errors.ErrCodeInvalidConfig, err)
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name: "bathy file without cutoff",
			opts:    Options{BathyFile: "bathy.asc", BathyFriction: 1},
			wantErr: true,
		},
		{
			name:    "nearshore friction without vector",
			opts:    Options{NearshoreFriction: 2},
			wantErr: true,
		},
		{
			name:    "land cost mult above one",
			opts:    Options{LandCostMult: 1.5},
			wantErr: true,
		},
		{
			name:    "negative land cost mult",
			opts:    Options{LandCostMult: -0.25},
			wantErr: true,
		},
		{
			name: "valid bathy",
			opts: Options{BathyFile: "bathy.asc", BathyDepthCutoff: -50, BathyFriction: 2},
		},
		{
			name: "empty options",
			opts: Options{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if tt.wantErr && errors.GetCode(err) != errors.ErrCodeInvalidConfig {
				t.Fatalf("expected %s, got %v", errors.ErrCodeInvalidConfig, err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{
		LandStorePath: "land.db",
		LandCostLayer: store.FrictionKey("400MW"),
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}

	if opts.SlopeBarrierCutoff != 15 || opts.LowSlopeCutoff != 10 {
		t.Errorf("slope cutoffs = %v/%v, want 15/10", opts.SlopeBarrierCutoff, opts.LowSlopeCutoff)
	}
	if opts.HighSlopeFriction != 10 || opts.MedSlopeFriction != 5 || opts.LowSlopeFriction != 1 {
		t.Errorf("slope frictions = %v/%v/%v, want 10/5/1",
			opts.HighSlopeFriction, opts.MedSlopeFriction, opts.LowSlopeFriction)
	}
	if opts.LandCostMult != 1 {
		t.Errorf("LandCostMult = %v, want 1", opts.LandCostMult)
	}
	if opts.TemplateStorePath != "land.db" {
		t.Errorf("TemplateStorePath = %q, want land.db", opts.TemplateStorePath)
	}
	if opts.LandBarrierLayer != store.LayerBarrier {
		t.Errorf("LandBarrierLayer = %q, want %q", opts.LandBarrierLayer, store.LayerBarrier)
	}
	if opts.OffshoreBarrier != store.LayerBarrier {
		t.Errorf("OffshoreBarrier = %q, want %q", opts.OffshoreBarrier, store.LayerBarrier)
	}
	if opts.OffshoreFriction != store.FrictionKey("400MW") {
		t.Errorf("OffshoreFriction = %q, want %q", opts.OffshoreFriction, store.FrictionKey("400MW"))
	}
}
