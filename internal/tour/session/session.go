package session

import (
	"errors"
	"sync"
	"time"

	"property-tour/internal/tour/floorplan"

	"github.com/google/uuid"
)

// ============================================================
// Editor Sessions
// ============================================================

var ErrSessionNotFound = errors.New("editing session not found")

// Session: открытая правка одного объекта. Граф живет только в памяти
// до сохранения; закрытие сессии просто выбрасывает его.
type Session struct {
	ID         string
	PropertyID string

	mu       sync.Mutex
	graph    *floorplan.Graph
	lastUsed time.Time
	now      func() time.Time
}

// Do выполняет fn под замком сессии.
func (s *Session) Do(fn func(g *floorplan.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastUsed = s.now()
	return fn(s.graph)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session // sessionID -> session
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (m *Manager) Open(propertyID string, g *floorplan.Graph) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		graph:      g,
		lastUsed:   m.now(),
		now:        m.now,
	}
	m.sessions[s.ID] = s
	return s
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

// ForProperty возвращает открытые сессии объекта.
func (m *Manager) ForProperty(propertyID string) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.PropertyID == propertyID {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep закрывает сессии, простаивающие дольше ttl. Возвращает число закрытых.
func (m *Manager) Sweep(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-ttl)
	closed := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			closed++
		}
	}
	return closed
}
