package simulation

import (
	"math"

	"github.com/Agrid-Dev/heatroom/internal/geometry"
)

// Mask is the rasterized room: a boolean grid over the polygon's bounding
// box telling which cells lie inside the boundary. Cells are stored row-major
// in a flat slice; row index grows with world y.
type Mask struct {
	Rows     int
	Cols     int
	CellSize float64
	Origin   geometry.Point // world coordinates of the grid's min corner

	cells []bool
}

// Rasterize converts a room boundary into an interior mask. The grid covers
// the polygon's axis-aligned bounding box padded by one cell; a cell is
// inside iff its center point is inside the polygon (even-odd rule). The
// result depends only on the inputs, so identical calls yield identical
// masks.
func Rasterize(poly geometry.Polygon, cellSize float64) (*Mask, error) {
	if cellSize <= 0 {
		return nil, ErrInvalidCellSize
	}
	if err := poly.Validate(); err != nil {
		return nil, err
	}

	min, max := poly.BoundingBox()
	cols := int(math.Ceil((max.X-min.X)/cellSize)) + 1
	rows := int(math.Ceil((max.Y-min.Y)/cellSize)) + 1

	m := &Mask{
		Rows:     rows,
		Cols:     cols,
		CellSize: cellSize,
		Origin:   min,
		cells:    make([]bool, rows*cols),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.cells[r*cols+c] = poly.Contains(m.CellCenter(r, c))
		}
	}
	return m, nil
}

// Inside reports whether (r, c) is in bounds and inside the room.
func (m *Mask) Inside(r, c int) bool {
	if r < 0 || r >= m.Rows || c < 0 || c >= m.Cols {
		return false
	}
	return m.cells[r*m.Cols+c]
}

// CellCenter returns the world coordinates of the center of cell (r, c).
func (m *Mask) CellCenter(r, c int) geometry.Point {
	return geometry.Point{
		X: m.Origin.X + (float64(c)+0.5)*m.CellSize,
		Y: m.Origin.Y + (float64(r)+0.5)*m.CellSize,
	}
}

// Locate maps a world position to the enclosing grid cell.
func (m *Mask) Locate(x, y float64) (r, c int, ok bool) {
	c = int(math.Floor((x - m.Origin.X) / m.CellSize))
	r = int(math.Floor((y - m.Origin.Y) / m.CellSize))
	if r < 0 || r >= m.Rows || c < 0 || c >= m.Cols {
		return 0, 0, false
	}
	return r, c, true
}

// InteriorCount returns the number of in-room cells.
func (m *Mask) InteriorCount() int {
	n := 0
	for _, in := range m.cells {
		if in {
			n++
		}
	}
	return n
}
