package testutil

import (
	"sort"

	"github.com/Agrid-Dev/heatroom/internal/geometry"
	"github.com/Agrid-Dev/heatroom/internal/simulation"
)

// FakeSimulationService is a reusable fake implementing
// ports.SimulationService. Put ONLY what multiple test packages need here.
type FakeSimulationService struct {
	Snap simulation.Snapshot

	SimulateCalled bool
	SimulateID     string
	SimulatePoly   geometry.Polygon
	SimulateReset  bool
	SimulateErr    error

	ResetCalled bool
	ResetID     string
	ResetPoly   geometry.Polygon
	ResetErr    error

	StepCalls []string
	StepErr   error

	CurrentCalls []string
	CurrentErr   error

	SetSourceCalled bool
	SetSourceID     string
	SetSourceIndex  int
	SetSourceTemp   float64
	SetSourceErr    error

	SessionIDs []string

	DropCalls []string
	DropErr   error
}

// NewFakeSimulationService returns a fake holding the 21x21 reference
// snapshot: ambient 20 everywhere, source cell (10, 10) at 100.
func NewFakeSimulationService() *FakeSimulationService {
	grid := make([][]float64, 21)
	for r := range grid {
		grid[r] = make([]float64, 21)
		for c := range grid[r] {
			grid[r][c] = 20
		}
	}
	grid[10][10] = 100

	return &FakeSimulationService{
		Snap: simulation.Snapshot{
			Steps:    0,
			Rows:     21,
			Cols:     21,
			CellSize: 0.1,
			Origin:   geometry.Point{X: 0, Y: 0},
			Grid:     grid,
			Sources:  []simulation.Source{{X: 1, Y: 1, Temperature: 100}},
			Stats:    simulation.Stats{Min: 20, Max: 100, Mean: 20.2},
		},
		SessionIDs: []string{"default"},
	}
}

func (f *FakeSimulationService) Simulate(id string, poly geometry.Polygon, reset bool) (simulation.Snapshot, error) {
	f.SimulateCalled = true
	f.SimulateID = id
	f.SimulatePoly = poly
	f.SimulateReset = reset
	if f.SimulateErr != nil {
		return simulation.Snapshot{}, f.SimulateErr
	}
	f.Snap.Steps++
	return f.Snap, nil
}

func (f *FakeSimulationService) Reset(id string, poly geometry.Polygon) (simulation.Snapshot, error) {
	f.ResetCalled = true
	f.ResetID = id
	f.ResetPoly = poly
	if f.ResetErr != nil {
		return simulation.Snapshot{}, f.ResetErr
	}
	f.Snap.Steps = 0
	return f.Snap, nil
}

func (f *FakeSimulationService) Step(id string) (simulation.Snapshot, error) {
	f.StepCalls = append(f.StepCalls, id)
	if f.StepErr != nil {
		return simulation.Snapshot{}, f.StepErr
	}
	f.Snap.Steps++
	return f.Snap, nil
}

func (f *FakeSimulationService) Current(id string) (simulation.Snapshot, error) {
	f.CurrentCalls = append(f.CurrentCalls, id)
	if f.CurrentErr != nil {
		return simulation.Snapshot{}, f.CurrentErr
	}
	return f.Snap, nil
}

func (f *FakeSimulationService) SetSourceTemperature(id string, index int, temp float64) (simulation.Snapshot, error) {
	f.SetSourceCalled = true
	f.SetSourceID = id
	f.SetSourceIndex = index
	f.SetSourceTemp = temp
	if f.SetSourceErr != nil {
		return simulation.Snapshot{}, f.SetSourceErr
	}
	if index >= 0 && index < len(f.Snap.Sources) {
		f.Snap.Sources[index].Temperature = temp
	}
	return f.Snap, nil
}

func (f *FakeSimulationService) Sessions() []string { return f.SessionIDs }

func (f *FakeSimulationService) Drop(id string) error {
	f.DropCalls = append(f.DropCalls, id)
	return f.DropErr
}

// FakeGeometryStore is a reusable fake implementing ports.GeometryStore.
type FakeGeometryStore struct {
	Polys   map[string]geometry.Polygon
	ListErr error
	LoadErr error

	LoadCalls []string
}

func NewFakeGeometryStore() *FakeGeometryStore {
	return &FakeGeometryStore{
		Polys: map[string]geometry.Polygon{
			"square": {{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}},
		},
	}
}

func (f *FakeGeometryStore) List() ([]string, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	names := make([]string, 0, len(f.Polys))
	for name := range f.Polys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *FakeGeometryStore) Load(name string) (geometry.Polygon, error) {
	f.LoadCalls = append(f.LoadCalls, name)
	if f.LoadErr != nil {
		return nil, f.LoadErr
	}
	p, ok := f.Polys[name]
	if !ok {
		return nil, geometry.ErrNotFound
	}
	return p, nil
}
