package ports

import (
	"github.com/Agrid-Dev/heatroom/internal/geometry"
	"github.com/Agrid-Dev/heatroom/internal/simulation"
)

// SimulationService is the control-plane port used by controllers
// (HTTP/WS/MQTT/Modbus).
type SimulationService interface {
	// Simulate is reset-and-step: re-initialize when asked (or needed),
	// then advance one step.
	Simulate(id string, poly geometry.Polygon, reset bool) (simulation.Snapshot, error)
	Reset(id string, poly geometry.Polygon) (simulation.Snapshot, error)
	Step(id string) (simulation.Snapshot, error)
	Current(id string) (simulation.Snapshot, error)
	SetSourceTemperature(id string, index int, temp float64) (simulation.Snapshot, error)
	Sessions() []string
	Drop(id string) error
}

// GeometryStore serves the room boundary files available to clients.
type GeometryStore interface {
	List() ([]string, error)
	Load(name string) (geometry.Polygon, error)
}
