package simulation

import "sync"

// Advance computes one explicit finite-difference step and returns the next
// field, leaving the input untouched. Cells outside the mask copy through
// unchanged. Walls are insulated: an out-of-room axis neighbor is replaced
// by the center cell's own value, so no heat crosses the boundary.
//
// The update reads only from the previous field and writes only the next
// one, so splitting the rows across workers cannot change the result.
func Advance(f *Field, m *Mask, p Params) *Field {
	next := NewField(f.Rows, f.Cols, 0)

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > f.Rows {
		workers = f.Rows
	}
	if workers == 1 {
		advanceRows(f, next, m, p, 0, f.Rows)
		return next
	}

	var wg sync.WaitGroup
	band := (f.Rows + workers - 1) / workers
	for r0 := 0; r0 < f.Rows; r0 += band {
		r1 := r0 + band
		if r1 > f.Rows {
			r1 = f.Rows
		}
		wg.Add(1)
		go func(r0, r1 int) {
			defer wg.Done()
			advanceRows(f, next, m, p, r0, r1)
		}(r0, r1)
	}
	wg.Wait()
	return next
}

func advanceRows(f, next *Field, m *Mask, p Params, r0, r1 int) {
	dx2 := p.CellSize * p.CellSize
	dr := p.Convection.Direction.RowDelta()

	for r := r0; r < r1; r++ {
		for c := 0; c < f.Cols; c++ {
			cur := f.At(r, c)
			if !m.Inside(r, c) {
				next.Set(r, c, cur)
				continue
			}

			up := neighbor(f, m, r+1, c, cur)
			down := neighbor(f, m, r-1, c, cur)
			left := neighbor(f, m, r, c-1, cur)
			right := neighbor(f, m, r, c+1, cur)
			lap := (up + down + left + right - 4*cur) / dx2

			// Buoyancy bias: warm anomalies relax toward the configured
			// vertical neighbor. Zero through a wall.
			conv := 0.0
			if p.Convection.Coefficient != 0 && dr != 0 && m.Inside(r+dr, c) {
				tDir := f.At(r+dr, c)
				conv = p.Convection.Coefficient * (cur - p.AmbientTemperature) * (tDir - cur) / p.CellSize
			}

			next.Set(r, c, cur+p.TimeStep*(p.Diffusivity*lap+conv))
		}
	}
}

func neighbor(f *Field, m *Mask, r, c int, center float64) float64 {
	if !m.Inside(r, c) {
		return center
	}
	return f.At(r, c)
}

// ApplySources pins every heat source back onto the field: the source's
// enclosing cell, plus every in-room cell whose center lies within the
// source radius, is set to the source temperature.
func ApplySources(f *Field, m *Mask, sources []Source) {
	for _, src := range sources {
		if r, c, ok := m.Locate(src.X, src.Y); ok && m.Inside(r, c) {
			f.Set(r, c, src.Temperature)
		}
		if src.Radius <= 0 {
			continue
		}

		// Scan only the bounding window of the source circle.
		r0, c0, _ := clampCell(m, src.X-src.Radius, src.Y-src.Radius)
		r1, c1, _ := clampCell(m, src.X+src.Radius, src.Y+src.Radius)
		rad2 := src.Radius * src.Radius
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				if !m.Inside(r, c) {
					continue
				}
				center := m.CellCenter(r, c)
				dx := center.X - src.X
				dy := center.Y - src.Y
				if dx*dx+dy*dy <= rad2 {
					f.Set(r, c, src.Temperature)
				}
			}
		}
	}
}

func clampCell(m *Mask, x, y float64) (r, c int, ok bool) {
	r, c, ok = m.Locate(x, y)
	if ok {
		return r, c, true
	}
	c = int((x - m.Origin.X) / m.CellSize)
	r = int((y - m.Origin.Y) / m.CellSize)
	if r < 0 {
		r = 0
	}
	if r >= m.Rows {
		r = m.Rows - 1
	}
	if c < 0 {
		c = 0
	}
	if c >= m.Cols {
		c = m.Cols - 1
	}
	return r, c, false
}
