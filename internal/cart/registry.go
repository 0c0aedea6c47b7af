package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultSessionIdleTTL = 24 * time.Hour
	DefaultMaxSessions    = 10000
)

type session struct {
	store    *Store
	lastSeen time.Time
}

// Registry keeps one Store per browser session. Nothing is persisted.
// Sessions idle for longer than the TTL are dropped, and the registry never
// holds more than its session cap; the least recently seen goes first.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*session
	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time
}

// NewRegistry returns a registry with the default idle TTL and session cap.
func NewRegistry() *Registry {
	return NewRegistryWithLimits(DefaultSessionIdleTTL, DefaultMaxSessions)
}

// NewRegistryWithLimits returns a registry that evicts sessions idle longer
// than idleTTL and keeps at most maxSessions. Non-positive values use the
// defaults.
func NewRegistryWithLimits(idleTTL time.Duration, maxSessions int) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultSessionIdleTTL
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Registry{
		sessions:    map[string]*session{},
		idleTTL:     idleTTL,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Get returns the store for sessionID. Unknown, expired or empty ids get a
// new session; the returned id is the one to hand back to the client.
func (r *Registry) Get(sessionID string) (string, *Store) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if store, ok := r.touchLocked(sessionID, now); ok {
		return sessionID, store
	}

	r.evictLocked(now)
	id := uuid.NewString()
	store := NewStore()
	r.sessions[id] = &session{store: store, lastSeen: now}
	return id, store
}

// Peek returns the store for an existing session without creating one.
func (r *Registry) Peek(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touchLocked(sessionID, r.now())
}

func (r *Registry) touchLocked(sessionID string, now time.Time) (*Store, bool) {
	if sessionID == "" {
		return nil, false
	}
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if now.Sub(s.lastSeen) > r.idleTTL {
		delete(r.sessions, sessionID)
		return nil, false
	}
	s.lastSeen = now
	return s.store, true
}

// evictLocked drops idle sessions, then the least recently seen ones until
// there is room for one more.
func (r *Registry) evictLocked(now time.Time) {
	for id, s := range r.sessions {
		if now.Sub(s.lastSeen) > r.idleTTL {
			delete(r.sessions, id)
		}
	}
	for len(r.sessions) >= r.maxSessions {
		oldestID := ""
		var oldest time.Time
		for id, s := range r.sessions {
			if oldestID == "" || s.lastSeen.Before(oldest) {
				oldestID, oldest = id, s.lastSeen
			}
		}
		delete(r.sessions, oldestID)
	}
}

// Drop ends a session and forgets its cart.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
