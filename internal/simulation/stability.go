package simulation

import "fmt"

// StabilityLimit is the CFL-type bound for the explicit 5-point diffusion
// stencil in two dimensions: alpha*dt/dx^2 must not exceed 1/4 or the scheme
// diverges.
const StabilityLimit = 0.25

// StabilityRatio returns alpha*dt/dx^2 for the given configuration.
func StabilityRatio(p Params) float64 {
	return p.Diffusivity * p.TimeStep / (p.CellSize * p.CellSize)
}

// CheckStability refuses configurations that violate the explicit-scheme
// bound. It never clamps: the caller must supply a smaller time step, a
// coarser ratio, or a smaller diffusivity and retry.
func CheckStability(p Params) error {
	if ratio := StabilityRatio(p); ratio > StabilityLimit {
		return fmt.Errorf("%w: alpha*dt/dx^2 = %.4f exceeds %.2f", ErrUnstable, ratio, StabilityLimit)
	}
	return nil
}
