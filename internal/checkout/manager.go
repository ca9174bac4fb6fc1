package checkout

import (
	"context"
	"sync"
	"time"

	"parkflow/internal/domain"
	"parkflow/internal/logger"

	"go.uber.org/zap"
)

// Manager keeps the open checkout sessions, at most one live session per vehicle.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	byVehicle map[string]string

	rates     RateProvider
	persister Persister
	opts      Options
	onChange  func(Snapshot)
}

func NewManager(rates RateProvider, persister Persister, opts Options) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		byVehicle: make(map[string]string),
		rates:     rates,
		persister: persister,
		onChange:  opts.OnChange,
	}
	opts.OnChange = m.handleChange
	m.opts = opts.withDefaults()
	return m
}

// Open starts a checkout for the vehicle, or returns the live session already open for it.
// The bool reports whether a new session was created.
func (m *Manager) Open(ctx context.Context, actor domain.Actor, vehicle domain.Vehicle) (Snapshot, bool) {
	m.mu.Lock()
	for {
		id, ok := m.byVehicle[vehicle.ID]
		if !ok {
			break
		}
		existing, ok := m.sessions[id]
		if !ok {
			break
		}
		// Never hold m.mu while taking a session lock.
		m.mu.Unlock()
		snap := existing.Snapshot()
		m.mu.Lock()
		if m.byVehicle[vehicle.ID] != id {
			// Another caller replaced the session meanwhile; look again.
			continue
		}
		if snap.State != StateClosed {
			m.mu.Unlock()
			return snap, false
		}
		break
	}
	s := NewSession(actor, vehicle, m.rates, m.persister, m.opts)
	m.sessions[s.ID()] = s
	m.byVehicle[vehicle.ID] = s.ID()
	m.mu.Unlock()

	return s.Open(ctx), true
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Dispatch(ctx context.Context, id string, ev Event) (Snapshot, error) {
	s, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Dispatch(ctx, ev)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops closed sessions and force-closes sessions nobody has touched for ttl.
// Sessions with a confirmation in flight are left alone.
func (m *Manager) Sweep(ttl time.Duration) int {
	now := m.opts.Now()

	m.mu.Lock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.Unlock()

	removed := 0
	for _, s := range candidates {
		snap := s.Snapshot()
		switch {
		case snap.State == StateClosed:
		case snap.State == StateConfirming:
			continue
		case s.IdleFor(now) >= ttl:
			logger.Info("Closing idle checkout session", zap.String("session_id", s.ID()), zap.String("state", string(snap.State)))
			s.Close()
		default:
			continue
		}
		m.remove(s)
		removed++
	}
	return removed
}

// CloseAll closes every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
		m.remove(s)
	}
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.ID())
	if m.byVehicle[s.VehicleID()] == s.ID() {
		delete(m.byVehicle, s.VehicleID())
	}
}

func (m *Manager) handleChange(snap Snapshot) {
	if snap.State == StateClosed {
		m.mu.Lock()
		if m.byVehicle[snap.Vehicle.ID] == snap.ID {
			delete(m.byVehicle, snap.Vehicle.ID)
		}
		m.mu.Unlock()
	}
	if m.onChange != nil {
		m.onChange(snap)
	}
}
