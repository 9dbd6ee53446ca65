package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/Agrid-Dev/heatroom/internal/geometry"
	"github.com/Agrid-Dev/heatroom/internal/simulation"
)

type SourceCommand struct {
	Step        int
	Temperature float64
}

// SimulateRoom runs a square-room diffusion for the given number of steps,
// applying scheduled source-temperature commands, and dumps per-step field
// statistics plus one probe temperature to CSV.
func SimulateRoom(steps int, filename string, commands []SourceCommand) error {
	room := geometry.Polygon{
		{X: 0, Y: 0},
		{X: 2, Y: 0},
		{X: 2, Y: 2},
		{X: 0, Y: 2},
	}
	params := simulation.Params{
		Diffusivity:        0.01,
		CellSize:           0.1,
		TimeStep:           0.1,
		AmbientTemperature: 20.0,
		Sources: []simulation.Source{
			{X: 1.0, Y: 1.0, Temperature: 100.0},
		},
	}

	sess := simulation.NewSession()
	if err := sess.Reset(room, params); err != nil {
		return fmt.Errorf("failed to reset session: %v", err)
	}

	// Probe halfway between the source and the wall.
	const probeX, probeY = 1.5, 1.0

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Step", "Min", "Max", "Mean", "Probe"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for i := range steps {
		// Check if we need to override the source temperature
		for _, cmd := range commands {
			if cmd.Step == i+1 {
				if _, err := sess.SetSourceTemperature(0, cmd.Temperature); err != nil {
					return fmt.Errorf("failed to update source: %v", err)
				}
				break
			}
		}

		snap, err := sess.Step()
		if err != nil {
			return fmt.Errorf("failed to step: %v", err)
		}

		probe, _ := snap.Probe(probeX, probeY)
		if err := writer.Write([]string{
			fmt.Sprintf("%d", snap.Steps),
			fmt.Sprintf("%.4f", snap.Stats.Min),
			fmt.Sprintf("%.4f", snap.Stats.Max),
			fmt.Sprintf("%.4f", snap.Stats.Mean),
			fmt.Sprintf("%.4f", probe),
		}); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}
	}

	return nil
}

func main() {
	commands := []SourceCommand{
		{
			Step:        200,
			Temperature: 60.0,
		},
	}
	SimulateRoom(1000, "heatroom.csv", commands)
}
