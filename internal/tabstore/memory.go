package tabstore

import (
	"net/http"
	"sync"

	"github.com/hnrobert/vanconnect/internal/session"
)

// MemoryBackend keeps tab storage in process. Entries are never evicted; it
// is meant for development and tests.
type MemoryBackend struct {
	cookieName string
	secure     bool

	mu   sync.Mutex
	tabs map[string]*session.MemoryStore
}

func NewMemoryBackend(cookieName string, secure bool) *MemoryBackend {
	return &MemoryBackend{cookieName: cookieName, secure: secure, tabs: map[string]*session.MemoryStore{}}
}

func (b *MemoryBackend) Open(w http.ResponseWriter, r *http.Request) (session.Store, error) {
	id := tabID(w, r, b.cookieName, b.secure)

	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.tabs[id]
	if !ok {
		st = session.NewMemoryStore()
		b.tabs[id] = st
	}
	return st, nil
}

func (b *MemoryBackend) Close() error { return nil }
