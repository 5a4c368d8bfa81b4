package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/isharaux/ussd-gateway/internal/ussderr"
)

// Registry tracks the active session per key. At most one session may be
// registered under a key at a time.
type Registry struct {
	logger   *zap.Logger
	mu       sync.RWMutex
	sessions map[Key]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:   logger.Named("session.registry"),
		sessions: make(map[Key]*Session),
	}
}

// Register adds a new session under its key. Fails with SessionActive if the
// key is already occupied; an occupied key is never silently replaced.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[s.Key]; ok && existing.Active {
		return ussderr.Newf(ussderr.KindSessionActive,
			"session already active on key %d (dialing %s)", s.Key, existing.Code)
	}
	r.sessions[s.Key] = s
	return nil
}

// Get returns the session registered under key, or nil.
func (r *Registry) Get(key Key) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[key]
}

// Remove deletes the session under key. Removing an absent key is a no-op.
func (r *Registry) Remove(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[key]; ok {
		delete(r.sessions, key)
	} else {
		r.logger.Debug("remove of unregistered session", zap.Int("key", int(key)))
	}
}

// Update applies fn to the session under key while holding the registry
// lock. Reports whether a session was found.
func (r *Registry) Update(key Key, fn func(*Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return false
	}
	fn(s)
	return true
}

// States returns snapshots of every active session.
func (r *Registry) States() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]State, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Active {
			states = append(states, s.Snapshot())
		}
	}
	return states
}

// Len reports the number of registered sessions, active or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
