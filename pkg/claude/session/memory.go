package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/claude-control/pkg/claude/messages"
	"github.com/conneroisu/claude-control/pkg/claude/ports"
)

// MemoryStore keeps transcripts in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*state
	now      func() time.Time
}

var _ ports.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*state),
		now:      time.Now,
	}
}

// Create implements ports.SessionStore.
func (m *MemoryStore) Create(_ context.Context, sessionID, mode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; ok {
		return alreadyExists(sessionID)
	}
	m.sessions[sessionID] = newState(sessionID, "", mode, m.now())

	return nil
}

// Append implements ports.SessionStore.
func (m *MemoryStore) Append(
	_ context.Context,
	sessionID string,
	msg messages.Message,
) (ports.TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		s = newState(sessionID, "", defaultMode, m.now())
		m.sessions[sessionID] = s
	}
	e, err := s.next(msg, m.now())
	if err != nil {
		return ports.TranscriptEntry{}, err
	}
	s.commit(e)
	e.Message = msg

	return e, nil
}

// ReplayFrom implements ports.SessionStore.
func (m *MemoryStore) ReplayFrom(_ context.Context, sessionID, fromID string) ([]ports.TranscriptEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, notFound(sessionID)
	}

	return s.suffix(fromID)
}

// Fork implements ports.SessionStore.
func (m *MemoryStore) Fork(_ context.Context, sessionID, atID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return "", notFound(sessionID)
	}
	entries, err := s.prefix(atID)
	if err != nil {
		return "", err
	}
	newID := uuid.NewString()
	m.sessions[newID] = forked(s, newID, entries, m.now())

	return newID, nil
}

// Truncate implements ports.SessionStore.
func (m *MemoryStore) Truncate(_ context.Context, sessionID, toID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	if toID == "" {
		s.entries = nil
	} else {
		kept, err := s.prefix(toID)
		if err != nil {
			return err
		}
		s.entries = kept
	}
	s.info.UpdatedAt = m.now()

	return nil
}

// Resume implements ports.SessionStore.
func (m *MemoryStore) Resume(_ context.Context, sessionID string) (ports.ResumeState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ports.ResumeState{}, notFound(sessionID)
	}

	return s.resume()
}

// SetMode implements ports.SessionStore.
func (m *MemoryStore) SetMode(_ context.Context, sessionID, mode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return notFound(sessionID)
	}
	s.info.Mode = mode
	s.info.UpdatedAt = m.now()

	return nil
}

// List implements ports.SessionStore.
func (m *MemoryStore) List(context.Context) ([]ports.SessionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]ports.SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.summary())
	}
	sortInfos(infos)

	return infos, nil
}
