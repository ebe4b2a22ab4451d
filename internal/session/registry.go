package session

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by [Registry.Get] for unknown session IDs.
var ErrNotFound = errors.New("session: not found")

// Registry tracks all live sessions in the process. It is safe for
// concurrent use. Sessions are process-local; there is no sharing between
// instances.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session and registers it.
func (r *Registry) Create(destination, origin string) *Session {
	s := New(destination, origin)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return s
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// End finishes the session, removes it from the registry, and returns its
// final report.
func (r *Registry) End(id string) (Report, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return Report{}, ErrNotFound
	}
	return s.End(), nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
