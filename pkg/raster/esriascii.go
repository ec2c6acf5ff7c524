package raster

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gridseam/gridseam/pkg/grid"
)

// DefaultNodata is written when a profile carries no nodata sentinel.
const DefaultNodata = -9999

// ASCIIGrid reads and writes Esri ASCII grid (.asc) rasters. The format is a
// plain-text header (ncols, nrows, corner origin, cellsize, nodata) followed
// by rows of cell values, north to south. CRS is not part of the format; the
// decoded profile carries an empty CRS, which matches any canonical grid.
type ASCIIGrid struct{}

// Read decodes an .asc file into a Dataset.
func (ASCIIGrid) Read(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)

	header := map[string]float64{}
	var values []float64

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		// Header lines are "key value" pairs with a non-numeric key.
		if len(fields) == 2 && len(values) == 0 {
			if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, fmt.Errorf("header %s: %w", fields[0], err)
				}
				header[strings.ToLower(fields[0])] = v
				continue
			}
		}
		for _, fv := range fields {
			v, err := strconv.ParseFloat(fv, 64)
			if err != nil {
				return nil, fmt.Errorf("cell value %q: %w", fv, err)
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	p, err := profileFromHeader(header)
	if err != nil {
		return nil, err
	}
	if len(values) != p.Cells() {
		return nil, fmt.Errorf("expected %d cells, read %d", p.Cells(), len(values))
	}
	return &Dataset{Values: values, Profile: p}, nil
}

func profileFromHeader(h map[string]float64) (grid.Profile, error) {
	for _, key := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := h[key]; !ok {
			return grid.Profile{}, fmt.Errorf("missing header field %s", key)
		}
	}
	cols := int(h["ncols"])
	rows := int(h["nrows"])
	cell := h["cellsize"]
	if cols <= 0 || rows <= 0 || cell <= 0 {
		return grid.Profile{}, fmt.Errorf("invalid grid dimensions %dx%d cellsize %v",
			rows, cols, cell)
	}

	// The header origin is the lower-left corner; center variants shift by
	// half a cell. The transform origin is the upper-left corner.
	x0, xok := h["xllcorner"]
	y0, yok := h["yllcorner"]
	if !xok {
		if xc, ok := h["xllcenter"]; ok {
			x0, xok = xc-cell/2, true
		}
	}
	if !yok {
		if yc, ok := h["yllcenter"]; ok {
			y0, yok = yc-cell/2, true
		}
	}
	if !xok || !yok {
		return grid.Profile{}, fmt.Errorf("missing header origin (xllcorner/yllcorner)")
	}

	nodata := float64(DefaultNodata)
	if v, ok := h["nodata_value"]; ok {
		nodata = v
	}

	return grid.Profile{
		Rows: rows,
		Cols: cols,
		Transform: grid.Transform{
			A: cell, C: x0,
			E: -cell, F: y0 + float64(rows)*cell,
		},
		Nodata: nodata,
	}, nil
}

// Write encodes a scalar layer as an .asc file.
func (ASCIIGrid) Write(path string, values []float64, p grid.Profile) error {
	if len(values) != p.Cells() {
		return fmt.Errorf("expected %d cells, got %d", p.Cells(), len(values))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	cell := p.Transform.A
	x0 := p.Transform.C
	y0 := p.Transform.F + float64(p.Rows)*p.Transform.E

	fmt.Fprintf(w, "ncols %d\n", p.Cols)
	fmt.Fprintf(w, "nrows %d\n", p.Rows)
	fmt.Fprintf(w, "xllcorner %s\n", formatFloat(x0))
	fmt.Fprintf(w, "yllcorner %s\n", formatFloat(y0))
	fmt.Fprintf(w, "cellsize %s\n", formatFloat(cell))
	fmt.Fprintf(w, "NODATA_value %s\n", formatFloat(p.Nodata))

	for r := 0; r < p.Rows; r++ {
		row := values[r*p.Cols : (r+1)*p.Cols]
		for c, v := range row {
			if c > 0 {
				if err := w.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := w.WriteString(formatFloat(v)); err != nil {
				return err
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Ensure ASCIIGrid implements both codec interfaces.
var (
	_ Reader = ASCIIGrid{}
	_ Writer = ASCIIGrid{}
)
