package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string][]Message
	maxHistory int // exchanges kept per session
}

// NewMemoryStore creates a store retaining the last maxHistory exchanges of
// every session.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string][]Message),
		maxHistory: normalizeMaxHistory(maxHistory),
	}
}

// CreateSession implements Store.
func (s *MemoryStore) CreateSession(_ context.Context) (string, error) {
	id := newSessionID()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	return id, nil
}

// GetHistory implements Store.
func (s *MemoryStore) GetHistory(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return formatHistory(s.sessions[sessionID]), nil
}

// AddExchange implements Store. Unknown sessions are created on first write.
func (s *MemoryStore) AddExchange(_ context.Context, sessionID, query, answer string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	messages := append(s.sessions[sessionID],
		Message{Role: RoleUser, Content: query},
		Message{Role: RoleAssistant, Content: answer},
	)
	if limit := s.maxHistory * 2; len(messages) > limit {
		messages = append([]Message(nil), messages[len(messages)-limit:]...)
	}
	s.sessions[sessionID] = messages
	return nil
}

// Clear forgets a session.
func (s *MemoryStore) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}
