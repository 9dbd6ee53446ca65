package simulation

import (
	"sort"
	"sync"

	"github.com/Agrid-Dev/heatroom/internal/geometry"
)

// Manager is the registry behind the transport port: sessions keyed by
// identifier, each an independent simulation, sharing the service-wide base
// parameters from configuration.
type Manager struct {
	mu       sync.RWMutex
	params   Params
	sessions map[string]*Session
}

func NewManager(params Params) (*Manager, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		params:   params,
		sessions: make(map[string]*Session),
	}, nil
}

// Simulate is the reset-and-step operation: the session is re-initialized
// when the caller asks for it, when it has never been reset, or when the
// geometry differs from the last reset; then it advances one step.
func (m *Manager) Simulate(id string, poly geometry.Polygon, reset bool) (Snapshot, error) {
	sess := m.getOrCreate(id)

	if reset || !sess.Initialized() || sess.Fingerprint() != poly.Fingerprint() {
		if err := sess.Reset(poly, m.baseParams()); err != nil {
			return Snapshot{}, err
		}
	}
	return sess.Step()
}

func (m *Manager) Reset(id string, poly geometry.Polygon) (Snapshot, error) {
	sess := m.getOrCreate(id)
	if err := sess.Reset(poly, m.baseParams()); err != nil {
		return Snapshot{}, err
	}
	return sess.Current()
}

func (m *Manager) Step(id string) (Snapshot, error) {
	sess, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Step()
}

func (m *Manager) Current(id string) (Snapshot, error) {
	sess, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Current()
}

func (m *Manager) SetSourceTemperature(id string, index int, temp float64) (Snapshot, error) {
	sess, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.SetSourceTemperature(index, temp)
}

// Sessions returns the sorted identifiers of all live sessions.
func (m *Manager) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) Drop(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (m *Manager) getOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		sess = NewSession()
		m.sessions[id] = sess
	}
	return sess
}

// baseParams copies the service-wide parameters so each session owns its
// source list.
func (m *Manager) baseParams() Params {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.params
	p.Sources = make([]Source, len(m.params.Sources))
	copy(p.Sources, m.params.Sources)
	return p
}
