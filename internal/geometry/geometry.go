package geometry

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
)

var (
	ErrTooFewPoints = errors.New("geometry needs at least 3 points")
	ErrZeroArea     = errors.New("geometry bounding box has zero area")
)

// Point is a position in world coordinates (meters).
type Point struct {
	X float64
	Y float64
}

// Polygon is an ordered, implicitly closed room boundary: the last point
// connects back to the first.
type Polygon []Point

// FromPairs builds a polygon from [[x, y], ...] rows.
func FromPairs(pairs [][]float64) (Polygon, error) {
	pts := make(Polygon, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("point %d: want [x, y], got %d values", i, len(pair))
		}
		pts = append(pts, Point{X: pair[0], Y: pair[1]})
	}
	return pts, nil
}

// Pairs returns the wire shape [[x, y], ...].
func (p Polygon) Pairs() [][]float64 {
	out := make([][]float64, len(p))
	for i, pt := range p {
		out[i] = []float64{pt.X, pt.Y}
	}
	return out
}

func (p *Polygon) UnmarshalJSON(b []byte) error {
	var raw [][]float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	pts, err := FromPairs(raw)
	if err != nil {
		return err
	}
	*p = pts
	return nil
}

func (p Polygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Pairs())
}

func (p Polygon) Validate() error {
	if len(p) < 3 {
		return ErrTooFewPoints
	}
	min, max := p.BoundingBox()
	if max.X-min.X <= 0 || max.Y-min.Y <= 0 {
		return ErrZeroArea
	}
	return nil
}

// BoundingBox returns the axis-aligned extent of the polygon.
func (p Polygon) BoundingBox() (min, max Point) {
	if len(p) == 0 {
		return Point{}, Point{}
	}
	min, max = p[0], p[0]
	for _, pt := range p[1:] {
		min.X = math.Min(min.X, pt.X)
		min.Y = math.Min(min.Y, pt.Y)
		max.X = math.Max(max.X, pt.X)
		max.Y = math.Max(max.Y, pt.Y)
	}
	return min, max
}

// Contains reports whether pt lies inside the polygon by the even-odd rule:
// a ray cast toward +x flips parity at each edge spanning pt's y whose
// intersection lies strictly to the right.
func (p Polygon) Contains(pt Point) bool {
	inside := false
	for i := range p {
		p1 := p[i]
		p2 := p[(i+1)%len(p)]
		if (p1.Y > pt.Y) != (p2.Y > pt.Y) {
			xIntersect := (p2.X-p1.X)*(pt.Y-p1.Y)/(p2.Y-p1.Y) + p1.X
			if pt.X < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// Fingerprint is a cheap identity over the ordered point list, used to
// detect geometry changes between resets.
func (p Polygon) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, pt := range p {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(pt.X))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(pt.Y))
		h.Write(buf[:])
	}
	return h.Sum64()
}
