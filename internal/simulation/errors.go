package simulation

import "errors"

var (
	ErrInvalidCellSize     = errors.New("cell size must be strictly positive")
	ErrInvalidTimeStep     = errors.New("time step must be strictly positive")
	ErrNegativeDiffusivity = errors.New("thermal diffusivity must be greater or equal to zero")
	ErrNegativeConvection  = errors.New("convection coefficient must be greater or equal to zero")
	ErrInvalidDirection    = errors.New("invalid convection direction")
	ErrNotInitialized      = errors.New("session not initialized: reset with a geometry first")
	ErrUnstable            = errors.New("unstable configuration")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSourceIndex         = errors.New("heat source index out of range")
)
