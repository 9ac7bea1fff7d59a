package state

import (
	"maps"
	"sync"
)

type memoryTracker struct {
	mu    sync.RWMutex
	byUID map[int64]*Session
}

// NewMemoryTracker constructs the in-memory Tracker.
func NewMemoryTracker() Tracker {
	return &memoryTracker{byUID: make(map[int64]*Session)}
}

// mutate runs fn on the user's session under the write lock; fn is skipped
// when there is none.
func (m *memoryTracker) mutate(userID int64, fn func(*Session)) {
	m.mu.Lock()
	if s := m.byUID[userID]; s != nil {
		fn(s)
	}
	m.mu.Unlock()
}

func (m *memoryTracker) Begin(userID int64, dialog string) {
	m.mu.Lock()
	m.byUID[userID] = &Session{Dialog: dialog, Data: map[string]string{}}
	m.mu.Unlock()
}

func (m *memoryTracker) SetField(userID int64, field, value string) {
	m.mutate(userID, func(s *Session) { s.Data[field] = value })
}

func (m *memoryTracker) SetStep(userID int64, step int) {
	m.mutate(userID, func(s *Session) { s.Step = step })
}

func (m *memoryTracker) Get(userID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.byUID[userID]
	if s == nil {
		return Session{}, false
	}
	return Session{Dialog: s.Dialog, Step: s.Step, Data: maps.Clone(s.Data)}, true
}

func (m *memoryTracker) Data(userID int64) map[string]string {
	if s, ok := m.Get(userID); ok {
		return s.Data
	}
	return map[string]string{}
}

func (m *memoryTracker) Active(userID int64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s := m.byUID[userID]; s != nil {
		return s.Dialog, true
	}
	return "", false
}

func (m *memoryTracker) Clear(userID int64) {
	m.mu.Lock()
	delete(m.byUID, userID)
	m.mu.Unlock()
}
