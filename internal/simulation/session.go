package simulation

import (
	"math"
	"sync"

	"github.com/Agrid-Dev/heatroom/internal/geometry"
)

// Stats summarizes the in-room temperatures of a snapshot.
type Stats struct {
	Min  float64
	Max  float64
	Mean float64
}

// Snapshot is a read-only copy of a session's state. Grid and Sources are
// fresh allocations on every call; callers can never corrupt session state
// through one.
type Snapshot struct {
	Steps    int
	Rows     int
	Cols     int
	CellSize float64
	Origin   geometry.Point
	Grid     [][]float64
	Sources  []Source
	Stats    Stats
}

// Probe returns the temperature of the cell enclosing a world position.
func (s Snapshot) Probe(x, y float64) (float64, bool) {
	c := int(math.Floor((x - s.Origin.X) / s.CellSize))
	r := int(math.Floor((y - s.Origin.Y) / s.CellSize))
	if r < 0 || r >= s.Rows || c < 0 || c >= s.Cols {
		return 0, false
	}
	return s.Grid[r][c], true
}

// Session owns one simulation: the rasterized mask, the authoritative
// temperature field, the step counter and the active parameters. All
// mutation happens here; concurrent callers serialize on the mutex.
type Session struct {
	mu sync.RWMutex

	params      Params
	mask        *Mask
	field       *Field
	steps       int
	fingerprint uint64
	initialized bool
}

func NewSession() *Session {
	return &Session{}
}

// Reset rasterizes the geometry, fills a fresh field with the ambient
// temperature, pre-applies the heat sources and zeroes the step counter.
// On failure the previous state is left untouched.
func (s *Session) Reset(poly geometry.Polygon, params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	mask, err := Rasterize(poly, params.CellSize)
	if err != nil {
		return err
	}

	field := NewField(mask.Rows, mask.Cols, params.AmbientTemperature)
	ApplySources(field, mask, params.Sources)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = params
	s.mask = mask
	s.field = field
	s.steps = 0
	s.fingerprint = poly.Fingerprint()
	s.initialized = true
	return nil
}

// Step advances the field by one time increment and returns a snapshot of
// the result. A refused step (uninitialized session, unstable configuration)
// leaves the field unchanged.
func (s *Session) Step() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return Snapshot{}, ErrNotInitialized
	}
	if err := CheckStability(s.params); err != nil {
		return Snapshot{}, err
	}

	next := Advance(s.field, s.mask, s.params)
	ApplySources(next, s.mask, s.params.Sources)
	s.field = next
	s.steps++
	return s.snapshotLocked(), nil
}

// Current returns the same snapshot Step would, without advancing.
func (s *Session) Current() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return Snapshot{}, ErrNotInitialized
	}
	return s.snapshotLocked(), nil
}

// SetSourceTemperature changes a heat source's pinned temperature. The new
// value takes effect immediately and on every later step.
func (s *Session) SetSourceTemperature(index int, temp float64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return Snapshot{}, ErrNotInitialized
	}
	if index < 0 || index >= len(s.params.Sources) {
		return Snapshot{}, ErrSourceIndex
	}
	s.params.Sources[index].Temperature = temp
	ApplySources(s.field, s.mask, s.params.Sources)
	return s.snapshotLocked(), nil
}

func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Fingerprint identifies the geometry of the last successful reset.
func (s *Session) Fingerprint() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint
}

func (s *Session) snapshotLocked() Snapshot {
	sources := make([]Source, len(s.params.Sources))
	copy(sources, s.params.Sources)

	return Snapshot{
		Steps:    s.steps,
		Rows:     s.mask.Rows,
		Cols:     s.mask.Cols,
		CellSize: s.mask.CellSize,
		Origin:   s.mask.Origin,
		Grid:     s.field.Grid(),
		Sources:  sources,
		Stats:    s.statsLocked(),
	}
}

func (s *Session) statsLocked() Stats {
	var st Stats
	n := 0
	for r := 0; r < s.mask.Rows; r++ {
		for c := 0; c < s.mask.Cols; c++ {
			if !s.mask.Inside(r, c) {
				continue
			}
			v := s.field.At(r, c)
			if n == 0 {
				st.Min, st.Max = v, v
			} else {
				st.Min = math.Min(st.Min, v)
				st.Max = math.Max(st.Max, v)
			}
			st.Mean += v
			n++
		}
	}
	if n > 0 {
		st.Mean /= float64(n)
	}
	return st
}
