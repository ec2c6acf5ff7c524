package raster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
)

const sampleASC = `ncols 3
nrows 2
xllcorner 100.0
yllcorner 500.0
cellsize 50.0
NODATA_value -9999
1 2 3
4 -9999 6
`

func writeSample(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestASCIIGridRead(t *testing.T) {
	path := writeSample(t, t.TempDir(), "sample.asc", sampleASC)

	ds, err := ASCIIGrid{}.Read(path)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}

	p := ds.Profile
	if p.Rows != 2 || p.Cols != 3 {
		t.Fatalf("shape = (%d, %d), want (2, 3)", p.Rows, p.Cols)
	}
	if p.Nodata != -9999 {
		t.Errorf("nodata = %v, want -9999", p.Nodata)
	}

	// Upper-left corner: yll + nrows*cellsize.
	x, y := p.Transform.Apply(0, 0)
	if x != 100 || y != 600 {
		t.Errorf("origin = (%v, %v), want (100, 600)", x, y)
	}

	want := []float64{1, 2, 3, 4, -9999, 6}
	for i, v := range want {
		if ds.Values[i] != v {
			t.Errorf("cell %d = %v, want %v", i, ds.Values[i], v)
		}
	}
}

func TestASCIIGridRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := grid.Profile{
		Rows: 2, Cols: 2,
		Transform: grid.Transform{A: 25, C: -10, E: -25, F: 40},
		Nodata:    -9999,
	}
	values := []float64{0.5, 1, 2, 4}

	out := filepath.Join(dir, "out.asc")
	if err := (ASCIIGrid{}).Write(out, values, p); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	ds, err := ASCIIGrid{}.Read(out)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if !ds.Profile.Congruent(p) {
		t.Errorf("profile not preserved: %+v", ds.Profile)
	}
	for i, v := range values {
		if ds.Values[i] != v {
			t.Errorf("cell %d = %v, want %v", i, ds.Values[i], v)
		}
	}
}

func TestASCIIGridReadCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "bad.asc", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 10\n1 2 3\n")

	if _, err := (ASCIIGrid{}).Read(path); err == nil {
		t.Error("truncated grid should fail to read")
	}
}

func TestLoaderResolve(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "bathy.asc", sampleASC)

	p := grid.Profile{Rows: 2, Cols: 3,
		Transform: grid.Transform{A: 50, C: 100, E: -50, F: 600}, Nodata: -9999}
	l := NewLoader(ASCIIGrid{}, dir, p)

	// Bare filename resolves against the layer dir.
	resolved, err := l.Resolve("bathy.asc")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if resolved != filepath.Join(dir, "bathy.asc") {
		t.Errorf("Resolve = %s", resolved)
	}

	if _, err := l.Resolve("missing.asc"); !errors.Is(err, errors.ErrCodeLayerLoad) {
		t.Errorf("missing file should be LAYER_LOAD, got %v", err)
	}
}

func TestLoaderLoadCategory(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "seabed.asc", sampleASC)

	p := grid.Profile{Rows: 2, Cols: 3,
		Transform: grid.Transform{A: 50, C: 100, E: -50, F: 600}, Nodata: -9999}
	l := NewLoader(ASCIIGrid{}, dir, p)

	layer, err := l.LoadCategory("seabed.asc")
	if err != nil {
		t.Fatalf("LoadCategory error: %v", err)
	}
	if layer.At(0, 2) != 3 || layer.At(1, 1) != -9999 {
		t.Errorf("unexpected values: %v", layer.Data)
	}
}

func TestLoaderGridMismatch(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "wrong.asc", sampleASC)

	// Canonical grid does not match the file's 2x3 @ 50m geometry.
	p := grid.Profile{Rows: 4, Cols: 4,
		Transform: grid.Transform{A: 50, C: 0, E: -50, F: 200}, Nodata: -9999}
	l := NewLoader(ASCIIGrid{}, dir, p)

	if _, err := l.LoadScalar("wrong.asc"); !errors.Is(err, errors.ErrCodeGridMismatch) {
		t.Errorf("mismatched grid should be GRID_MISMATCH, got %v", err)
	}
}

func TestTemplateProfile(t *testing.T) {
	dir := t.TempDir()
	path := writeSample(t, dir, "template.asc", sampleASC)

	p, err := TemplateProfile(ASCIIGrid{}, path)
	if err != nil {
		t.Fatalf("TemplateProfile error: %v", err)
	}
	if p.Rows != 2 || p.Cols != 3 {
		t.Errorf("shape = (%d, %d), want (2, 3)", p.Rows, p.Cols)
	}

	if _, err := TemplateProfile(ASCIIGrid{}, filepath.Join(dir, "nope.asc")); !errors.Is(err, errors.ErrCodeLayerLoad) {
		t.Errorf("missing template should be LAYER_LOAD, got %v", err)
	}
}
