package session

import (
	"sync"
)

// Store is the tab-scoped key/value storage. Reads must observe earlier
// writes made through the same Store.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
	// Clear drops every key, not only the ones this package writes.
	Clear() error
}

// Navigator moves the tab to another page.
type Navigator interface {
	// Location is the current path plus query string.
	Location() string
	Navigate(path string)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	vals map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vals: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vals[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = value
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vals, key)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals = map[string]string{}
	return nil
}

// Len is the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vals)
}

// Recorder is a Navigator that remembers where it was sent.
type Recorder struct {
	Current string
	History []string
}

func NewRecorder(location string) *Recorder {
	return &Recorder{Current: location}
}

func (r *Recorder) Location() string { return r.Current }

func (r *Recorder) Navigate(path string) {
	r.History = append(r.History, path)
	r.Current = path
}

// Last returns the most recent navigation target, or "" when none happened.
func (r *Recorder) Last() string {
	if len(r.History) == 0 {
		return ""
	}
	return r.History[len(r.History)-1]
}
