package simulation

import "fmt"

// Direction is an integer enum for the buoyancy direction of the convection
// term, expressed in grid rows (row index grows with world y).
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionUp
	DirectionDown
)

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "unknown"
	}
}

// RowDelta is the row offset of the neighbor the convection term reads.
func (d Direction) RowDelta() int {
	switch d {
	case DirectionUp:
		return 1
	case DirectionDown:
		return -1
	default:
		return 0
	}
}

// ParseDirection is optional but handy for env vars / CLI.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return DirectionUp, nil
	case "down":
		return DirectionDown, nil
	default:
		return DirectionUnknown, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Source is a pinned-temperature region: the cell enclosing (X, Y), plus
// every in-room cell whose center lies within Radius of it, is forced back
// to Temperature after each step.
type Source struct {
	X           float64
	Y           float64
	Radius      float64
	Temperature float64
}

// Convection configures the buoyancy bias of the stepper.
type Convection struct {
	Coefficient float64
	Direction   Direction
}

// Params holds the physical and numerical configuration of a simulation.
type Params struct {
	Diffusivity        float64 // thermal diffusivity alpha, m^2/s
	CellSize           float64 // grid resolution dx, meters
	TimeStep           float64 // dt, seconds
	AmbientTemperature float64
	Convection         Convection
	Sources            []Source
	Workers            int // row bands for the stepper; <= 1 means serial
}

func (p *Params) Validate() error {
	if p.CellSize <= 0 {
		return ErrInvalidCellSize
	}
	if p.TimeStep <= 0 {
		return ErrInvalidTimeStep
	}
	if p.Diffusivity < 0 {
		return ErrNegativeDiffusivity
	}
	if p.Convection.Coefficient < 0 {
		return ErrNegativeConvection
	}
	if p.Convection.Coefficient > 0 && !p.Convection.Direction.Valid() {
		return ErrInvalidDirection
	}
	return nil
}
