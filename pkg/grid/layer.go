package grid

// Layers are flat row-major arrays over a Profile's shape. Category layers
// hold integer codes, scalar layers hold friction/cost magnitudes, and bool
// layers hold barrier and land-mask flags. Composition functions treat layers
// as immutable inputs and return fresh outputs; Clone before mutating a layer
// you do not own.

// Int32Layer is a category layer of integer codes.
type Int32Layer struct {
	Rows, Cols int
	Data       []int32
}

// NewInt32Layer returns a zero-filled category layer.
func NewInt32Layer(rows, cols int) *Int32Layer {
	return &Int32Layer{Rows: rows, Cols: cols, Data: make([]int32, rows*cols)}
}

// At returns the value at (row, col).
func (l *Int32Layer) At(row, col int) int32 {
	return l.Data[row*l.Cols+col]
}

// Set assigns the value at (row, col).
func (l *Int32Layer) Set(row, col int, v int32) {
	l.Data[row*l.Cols+col] = v
}

// Clone returns a deep copy.
func (l *Int32Layer) Clone() *Int32Layer {
	out := NewInt32Layer(l.Rows, l.Cols)
	copy(out.Data, l.Data)
	return out
}

// Float64Layer is a scalar layer of friction or cost magnitudes.
type Float64Layer struct {
	Rows, Cols int
	Data       []float64
}

// NewFloat64Layer returns a zero-filled scalar layer.
func NewFloat64Layer(rows, cols int) *Float64Layer {
	return &Float64Layer{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the value at (row, col).
func (l *Float64Layer) At(row, col int) float64 {
	return l.Data[row*l.Cols+col]
}

// Set assigns the value at (row, col).
func (l *Float64Layer) Set(row, col int, v float64) {
	l.Data[row*l.Cols+col] = v
}

// Fill sets every cell to v.
func (l *Float64Layer) Fill(v float64) {
	for i := range l.Data {
		l.Data[i] = v
	}
}

// Clone returns a deep copy.
func (l *Float64Layer) Clone() *Float64Layer {
	out := NewFloat64Layer(l.Rows, l.Cols)
	copy(out.Data, l.Data)
	return out
}

// BoolLayer is a boolean layer: barriers, forced inclusions, land masks.
type BoolLayer struct {
	Rows, Cols int
	Data       []bool
}

// NewBoolLayer returns an all-false boolean layer.
func NewBoolLayer(rows, cols int) *BoolLayer {
	return &BoolLayer{Rows: rows, Cols: cols, Data: make([]bool, rows*cols)}
}

// At returns the value at (row, col).
func (l *BoolLayer) At(row, col int) bool {
	return l.Data[row*l.Cols+col]
}

// Set assigns the value at (row, col).
func (l *BoolLayer) Set(row, col int, v bool) {
	l.Data[row*l.Cols+col] = v
}

// Count returns the number of true cells.
func (l *BoolLayer) Count() int {
	n := 0
	for _, v := range l.Data {
		if v {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (l *BoolLayer) Clone() *BoolLayer {
	out := NewBoolLayer(l.Rows, l.Cols)
	copy(out.Data, l.Data)
	return out
}

// Floats converts a boolean layer to 0/1 scalar values, the representation
// persisted for barrier layers.
func (l *BoolLayer) Floats() *Float64Layer {
	out := NewFloat64Layer(l.Rows, l.Cols)
	for i, v := range l.Data {
		if v {
			out.Data[i] = 1
		}
	}
	return out
}

// BoolsFromFloats interprets nonzero scalar values as true, the inverse of
// BoolLayer.Floats for layers read back from a store.
func BoolsFromFloats(l *Float64Layer) *BoolLayer {
	out := NewBoolLayer(l.Rows, l.Cols)
	for i, v := range l.Data {
		out.Data[i] = v != 0
	}
	return out
}
