package simulation

import (
	"strings"
	"testing"
)

func TestStabilityRatio(t *testing.T) {
	p := Params{Diffusivity: 0.01, TimeStep: 0.1, CellSize: 0.1}
	if !almostEqual(StabilityRatio(p), 0.1, 1e-12) {
		t.Fatalf("ratio = %v, want 0.1", StabilityRatio(p))
	}
}

func TestCheckStability(t *testing.T) {
	tests := []struct {
		name        string
		diffusivity float64
		timeStep    float64
		cellSize    float64
		want        error
	}{
		{"well within bound", 0.01, 0.1, 0.1, nil},
		{"exactly at bound", 0.025, 0.1, 0.1, nil},
		{"zero diffusivity", 0, 0.1, 0.1, nil},
		{"over bound", 0.03, 0.1, 0.1, ErrUnstable},
		{"large time step", 0.01, 1, 0.1, ErrUnstable},
		{"fine grid pushes ratio over", 0.01, 0.1, 0.01, ErrUnstable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Params{
				Diffusivity: tt.diffusivity,
				TimeStep:    tt.timeStep,
				CellSize:    tt.cellSize,
			}
			assertError(t, CheckStability(p), tt.want)
		})
	}
}

func TestCheckStabilityReportsRatio(t *testing.T) {
	err := CheckStability(Params{Diffusivity: 0.03, TimeStep: 0.1, CellSize: 0.1})
	if err == nil {
		t.Fatal("expected error")
	}
	// The guard names the offending value so the caller can adjust.
	if got := err.Error(); !strings.Contains(got, "0.3") {
		t.Fatalf("error %q does not report the ratio", got)
	}
}
