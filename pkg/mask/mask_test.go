package mask

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gridseam/gridseam/pkg/errors"
	"github.com/gridseam/gridseam/pkg/grid"
)

// testProfile is a 10x10 grid of 100-unit cells with origin (0, 1000) at the
// top-left, covering world x in [0, 1000], y in [0, 1000].
func testProfile() grid.Profile {
	return grid.Profile{
		Rows: 10, Cols: 10,
		Transform: grid.Transform{A: 100, C: 0, E: -100, F: 1000},
		Nodata:    -9999,
	}
}

// square returns a ring covering the given world-space bounds.
func square(x0, y0, x1, y1 float64) Ring {
	return Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func TestBuildSquare(t *testing.T) {
	b := NewBuilder(GGRasterizer{}, testProfile())

	// Left half of the grid is land.
	m, err := b.Build(Geometry{Rings: []Ring{square(0, 0, 500, 1000)}}, 0)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	if !m.At(5, 2) {
		t.Error("cell well inside the polygon should be land")
	}
	if m.At(5, 8) {
		t.Error("cell well outside the polygon should be ocean")
	}
}

func TestBuildBufferExpands(t *testing.T) {
	b := NewBuilder(GGRasterizer{}, testProfile())
	geom := Geometry{Rings: []Ring{square(0, 0, 500, 1000)}}

	plain, err := b.Build(geom, 0)
	if err != nil {
		t.Fatal(err)
	}
	buffered, err := b.Build(geom, 200)
	if err != nil {
		t.Fatal(err)
	}

	if buffered.Count() <= plain.Count() {
		t.Errorf("buffered mask should cover more cells: %d <= %d",
			buffered.Count(), plain.Count())
	}
	// Every land cell stays land after buffering.
	for i := range plain.Data {
		if plain.Data[i] && !buffered.Data[i] {
			t.Fatalf("buffering lost land cell %d", i)
		}
	}
	// Two cells beyond the edge (x=700) is inside the 200-unit buffer.
	if !buffered.At(5, 6) {
		t.Error("cell within the buffer distance should be land")
	}
}

func TestBuildEmptyGeometry(t *testing.T) {
	b := NewBuilder(GGRasterizer{}, testProfile())

	_, err := b.Build(Geometry{}, 0)
	if !errors.Is(err, errors.ErrCodeMaskBuild) {
		t.Errorf("empty geometry should be MASK_BUILD, got %v", err)
	}

	// A two-vertex ring is degenerate.
	_, err = b.Build(Geometry{Rings: []Ring{{{0, 0}, {100, 100}}}}, 0)
	if !errors.Is(err, errors.ErrCodeMaskBuild) {
		t.Errorf("degenerate ring should be MASK_BUILD, got %v", err)
	}
}

func TestFrictionSource(t *testing.T) {
	m := grid.NewBoolLayer(2, 2)
	m.Set(0, 0, true)
	m.Set(1, 1, true)

	src := FrictionSource(m)
	want := []int32{1, 0, 0, 1}
	for i, w := range want {
		if src.Data[i] != w {
			t.Errorf("cell %d = %d, want %d", i, src.Data[i], w)
		}
	}
}

func TestReadGeoJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "land.geojson")
	doc := `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type": "Feature", "geometry": {
	      "type": "Polygon",
	      "coordinates": [[[0,0],[500,0],[500,1000],[0,1000],[0,0]]]
	    }},
	    {"type": "Feature", "geometry": {
	      "type": "MultiPolygon",
	      "coordinates": [[[[600,600],[700,600],[700,700],[600,700],[600,600]]]]
	    }}
	  ]
	}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	geom, err := ReadGeoJSON(path)
	if err != nil {
		t.Fatalf("ReadGeoJSON error: %v", err)
	}
	if len(geom.Rings) != 2 {
		t.Fatalf("rings = %d, want 2", len(geom.Rings))
	}
	if geom.Rings[0][1] != [2]float64{500, 0} {
		t.Errorf("first ring vertex 1 = %v", geom.Rings[0][1])
	}
}

func TestReadGeoJSONUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "point.geojson")
	if err := os.WriteFile(path, []byte(`{"type":"Point","coordinates":[1,2]}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadGeoJSON(path); err == nil {
		t.Error("point geometry should be rejected")
	}
}
