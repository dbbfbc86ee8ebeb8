// Package session owns the per-conversation root aggregate and the store
// port the orchestrator fetches it through. The backing medium is pluggable;
// the in-memory store here is the only one the core ships.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/spigell/hh-screener/internal/conversation"
	"github.com/spigell/hh-screener/internal/profile"
)

// ErrNotFound is returned by Store operations addressing an unknown session.
var ErrNotFound = errors.New("session not found")

// Session is the root aggregate for one candidate conversation. Messages for
// the same session must be processed one at a time; callers serialize
// per-session access.
type Session struct {
	ID           string
	Context      *conversation.Context
	CreatedAt    time.Time
	LastActivity time.Time

	// MessageCount counts processed candidate messages against MaxMessages.
	MessageCount int
	MaxMessages  int
}

// Profile returns the candidate profile attached to the session, if any.
func (s *Session) Profile() *profile.Profile {
	return s.Context.Profile
}

// Touch records activity at the given time.
func (s *Session) Touch(at time.Time) {
	s.LastActivity = at
}

// Exhausted reports whether the session hit its message cap.
func (s *Session) Exhausted() bool {
	return s.MaxMessages > 0 && s.MessageCount >= s.MaxMessages
}

// Store is the session persistence port.
type Store interface {
	GetOrCreate(sessionID string) (*Session, bool, error)
	Save(s *Session) error
	Delete(sessionID string) error
	List() ([]*Session, error)
}

// MemoryStore keeps sessions in a mutex-guarded map. Sessions live only in
// process memory; Cleanup evicts idle ones manually.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session

	maxMessages int
	now         func() time.Time
}

// NewMemoryStore creates an empty store. maxMessages caps candidate messages
// per session (0 means uncapped).
func NewMemoryStore(maxMessages int) *MemoryStore {
	return &MemoryStore{
		sessions:    map[string]*Session{},
		maxMessages: maxMessages,
		now:         time.Now,
	}
}

// GetOrCreate returns the session for the id, creating it on first sight.
// The second result reports whether the session was created.
func (m *MemoryStore) GetOrCreate(sessionID string) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		return s, false, nil
	}

	now := m.now()
	s := &Session{
		ID:           sessionID,
		Context:      conversation.NewContext(),
		CreatedAt:    now,
		LastActivity: now,
		MaxMessages:  m.maxMessages,
	}
	m.sessions[sessionID] = s
	return s, true, nil
}

// Save stores the session. The in-memory store shares pointers, so Save only
// has to register sessions created elsewhere.
func (m *MemoryStore) Save(s *Session) error {
	if s == nil || s.ID == "" {
		return errors.New("session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

// Delete removes the session.
func (m *MemoryStore) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

// List returns all sessions ordered by creation time.
func (m *MemoryStore) List() ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Cleanup evicts sessions idle longer than ttl, returning how many were
// removed.
func (m *MemoryStore) Cleanup(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-ttl)
	removed := 0
	for id, s := range m.sessions {
		if s.LastActivity.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
