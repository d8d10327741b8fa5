package conversation

import (
	"sync"
	"time"

	"github.com/vakya-ai/vakya/internal/types"
)

// MemoryStore is the default in-process history store. Sessions live for
// the lifetime of the server.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]types.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]types.Turn)}
}

// Append implements Store.
func (m *MemoryStore) Append(sessionID string, role types.TurnRole, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.sessions[sessionID]
	m.sessions[sessionID] = append(turns, types.Turn{
		Role:      role,
		Content:   content,
		Seq:       len(turns),
		CreatedAt: time.Now(),
	})
	return nil
}

// History implements Store. The returned slice is a copy.
func (m *MemoryStore) History(sessionID string) ([]types.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.sessions[sessionID]
	out := make([]types.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
