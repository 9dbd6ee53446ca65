package simulation

// Field is a temperature grid with the same dimensions as its mask, stored
// row-major in a flat slice.
type Field struct {
	Rows int
	Cols int

	cells []float64
}

func NewField(rows, cols int, fill float64) *Field {
	f := &Field{
		Rows:  rows,
		Cols:  cols,
		cells: make([]float64, rows*cols),
	}
	if fill != 0 {
		for i := range f.cells {
			f.cells[i] = fill
		}
	}
	return f
}

func (f *Field) At(r, c int) float64 {
	return f.cells[r*f.Cols+c]
}

func (f *Field) Set(r, c int, v float64) {
	f.cells[r*f.Cols+c] = v
}

func (f *Field) Clone() *Field {
	out := &Field{
		Rows:  f.Rows,
		Cols:  f.Cols,
		cells: make([]float64, len(f.cells)),
	}
	copy(out.cells, f.cells)
	return out
}

// Grid returns a fresh row-major [][]float64 copy, safe to hand to callers.
func (f *Field) Grid() [][]float64 {
	out := make([][]float64, f.Rows)
	for r := 0; r < f.Rows; r++ {
		row := make([]float64, f.Cols)
		copy(row, f.cells[r*f.Cols:(r+1)*f.Cols])
		out[r] = row
	}
	return out
}

// Equal reports whether both fields have identical dimensions and values.
func (f *Field) Equal(other *Field) bool {
	if f.Rows != other.Rows || f.Cols != other.Cols {
		return false
	}
	for i := range f.cells {
		if f.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}
