package session

import "sync"

// Registry is the process-wide mapping from token to live session.
// It is the single source of truth for "is this session usable" and
// performs no I/O. State lives only in memory for the process lifetime;
// that is intentional, so credentials and transport handles never
// outlive the process that opened them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Put registers a session under its token.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	r.sessions[s.Token] = s
	r.mu.Unlock()
}

// Get resolves a token to a usable session. A missing token and a
// present-but-disconnected session both fail with UnavailableError,
// with distinguishable diagnostics.
func (r *Registry) Get(token string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[token]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnavailableError{Token: token}
	}
	if !s.Connected() {
		return nil, &UnavailableError{Token: token, NotConnected: true}
	}
	return s, nil
}

// Remove deletes the token's entry and returns the session, if any.
// Removing an absent token is a no-op.
func (r *Registry) Remove(token string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[token]
	if ok {
		delete(r.sessions, token)
	}
	r.mu.Unlock()
	return s, ok
}

// ForEach calls fn for every registered session. The snapshot is taken
// under the read lock, so a concurrent Remove during iteration is safe;
// fn may observe a session that has just been evicted.
func (r *Registry) ForEach(fn func(*Session)) {
	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()
	for _, s := range snapshot {
		fn(s)
	}
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
