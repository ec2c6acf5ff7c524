package mask

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReadGeoJSON loads polygon outer rings from a GeoJSON file. Supported
// geometries are Polygon and MultiPolygon, at the top level, inside a
// Feature, or inside a FeatureCollection. Interior rings (holes) are
// ignored: a hole in a landmass is still land for routing purposes.
func ReadGeoJSON(path string) (Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Geometry{}, err
	}
	var doc geojsonObject
	if err := json.Unmarshal(data, &doc); err != nil {
		return Geometry{}, fmt.Errorf("parse %s: %w", path, err)
	}
	geom, err := doc.geometry()
	if err != nil {
		return Geometry{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return geom, nil
}

type geojsonObject struct {
	Type        string           `json:"type"`
	Coordinates json.RawMessage  `json:"coordinates"`
	Geometry    *geojsonObject   `json:"geometry"`
	Features    []*geojsonObject `json:"features"`
}

func (o *geojsonObject) geometry() (Geometry, error) {
	switch o.Type {
	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(o.Coordinates, &rings); err != nil {
			return Geometry{}, err
		}
		if len(rings) == 0 {
			return Geometry{}, fmt.Errorf("polygon with no rings")
		}
		return Geometry{Rings: []Ring{Ring(rings[0])}}, nil

	case "MultiPolygon":
		var polys [][][][2]float64
		if err := json.Unmarshal(o.Coordinates, &polys); err != nil {
			return Geometry{}, err
		}
		var out Geometry
		for _, rings := range polys {
			if len(rings) > 0 {
				out.Rings = append(out.Rings, Ring(rings[0]))
			}
		}
		return out, nil

	case "Feature":
		if o.Geometry == nil {
			return Geometry{}, fmt.Errorf("feature with no geometry")
		}
		return o.Geometry.geometry()

	case "FeatureCollection":
		var out Geometry
		for _, f := range o.Features {
			g, err := f.geometry()
			if err != nil {
				return Geometry{}, err
			}
			out.Rings = append(out.Rings, g.Rings...)
		}
		return out, nil

	default:
		return Geometry{}, fmt.Errorf("unsupported geometry type %q", o.Type)
	}
}
