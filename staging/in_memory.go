package staging

import (
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/askmesh/core"
)

// entry holds one staged artifact plus its creation time. Content is stored
// as an owned copy so callers cannot mutate it after the fact.
type entry struct {
	content   []byte
	createdAt time.Time
}

// InMemoryStore is an in-process core.StagingStore implementation. It keeps
// all artifacts in a nested map guarded by an RWMutex and copies data on
// write and read to avoid accidental external mutation of internal buffers.
//
// Layout: sessionID -> key -> entry
//
// Writes are last-write-wins: a write on an existing key fully replaces the
// content, no versions are kept. There is no delete API; sessions are
// cleared wholesale at their end via Clear.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]entry
}

// Compile-time interface assertion.
var _ core.StagingStore = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty in-memory staging store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]map[string]entry)}
}

// Write stores (or fully replaces) the content under the given session and
// key, returning only the tiny receipt that is allowed into conversations.
func (s *InMemoryStore) Write(sessionID, key string, content []byte) (core.StagingReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.sessions[sessionID] = make(map[string]entry)
	}
	cp := make([]byte, len(content))
	copy(cp, content)
	s.sessions[sessionID][key] = entry{content: cp, createdAt: time.Now()}
	return core.StagingReceipt{Key: key, Size: len(cp)}, nil
}

// Read returns a copy of the stored content, or its first limit bytes when
// limit > 0. Unknown keys fail with ErrNotFound.
func (s *InMemoryStore) Read(sessionID, key string, limit int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	e, ok := m[key]
	if !ok {
		return nil, ErrNotFound
	}
	n := len(e.content)
	if limit > 0 && limit < n {
		n = limit
	}
	cp := make([]byte, n)
	copy(cp, e.content[:n])
	return cp, nil
}

// List returns the keys staged for the session in sorted order. The slice
// is a snapshot and safe for caller mutation.
func (s *InMemoryStore) List(sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.sessions[sessionID]
	if !ok {
		return []string{}, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear discards all artifacts of a session. Clearing an unknown session is
// a no-op.
func (s *InMemoryStore) Clear(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
