package mask

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/gridseam/gridseam/pkg/grid"
)

// GGRasterizer renders polygons into an offscreen image context aligned with
// the grid transform and thresholds the result into a boolean layer. Pixel
// (col, row) corresponds one-to-one with the grid cell at the same index.
//
// Buffering approximates an outward polygon buffer by stroking the ring
// outline with a pen of width 2×buffer on top of the fill, which expands
// every edge and vertex by the buffer distance. For land/ocean masks on
// cells far larger than the buffer error this is exact enough; callers
// needing survey-grade buffers should pre-buffer their vectors upstream.
type GGRasterizer struct{}

// Rasterize implements Rasterizer.
func (GGRasterizer) Rasterize(geom Geometry, p grid.Profile, buffer float64) (*grid.BoolLayer, error) {
	if buffer < 0 {
		return nil, fmt.Errorf("negative buffer distance %v", buffer)
	}
	inv, err := p.Transform.Invert()
	if err != nil {
		return nil, err
	}

	cellWidth := p.Transform.CellWidth()
	if cellWidth == 0 {
		return nil, fmt.Errorf("transform has zero cell width")
	}

	dc := gg.NewContext(p.Cols, p.Rows)
	dc.SetColor(color.Black)
	dc.Clear()
	dc.SetColor(color.White)

	drawn := 0
	for _, ring := range geom.Rings {
		if len(ring) < 3 {
			continue
		}
		dc.NewSubPath()
		for i, v := range ring {
			// World to fractional pixel; cell centers sit at +0.5.
			col, row := inv.Apply(v[0], v[1])
			if i == 0 {
				dc.MoveTo(col, row)
			} else {
				dc.LineTo(col, row)
			}
		}
		dc.ClosePath()
		drawn++
	}
	if drawn == 0 {
		return nil, fmt.Errorf("no ring with three or more vertices")
	}

	dc.FillPreserve()
	if buffer > 0 {
		dc.SetLineWidth(2 * buffer / cellWidth)
		dc.Stroke()
	} else {
		dc.ClearPath()
	}

	im := dc.Image()
	out := grid.NewBoolLayer(p.Rows, p.Cols)
	for row := 0; row < p.Rows; row++ {
		for col := 0; col < p.Cols; col++ {
			r, _, _, _ := im.At(col, row).RGBA()
			out.Data[row*p.Cols+col] = r >= 0x8000
		}
	}
	return out, nil
}

var _ Rasterizer = GGRasterizer{}
