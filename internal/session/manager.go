package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	mu   sync.Mutex
	game *Game
}

// Manager keeps live games isolated by session id. Each game is guarded by its
// own lock so two sessions never contend.
type Manager struct {
	mu         sync.RWMutex
	games      map[string]*entry
	room3Timer time.Duration
	now        func() time.Time
}

// NewManager returns an empty manager whose new games use room3Timer.
func NewManager(room3Timer time.Duration) *Manager {
	return &Manager{
		games:      make(map[string]*entry),
		room3Timer: room3Timer,
		now:        time.Now,
	}
}

// Create starts a game for playerID under a fresh id.
func (m *Manager) Create(playerID string) *Game {
	g := NewGame(uuid.NewString(), playerID, m.room3Timer, m.now())
	m.Put(g)
	return g
}

// Put registers g, replacing any game with the same id.
func (m *Manager) Put(g *Game) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = &entry{game: g}
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}
	return e, nil
}

// With runs fn while holding the lock for session id.
func (m *Manager) With(id string, fn func(*Game) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.game)
}

// Delete forgets the game for id.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
}

// IDs returns the live session ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
