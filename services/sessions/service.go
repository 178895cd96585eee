package sessions

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelstream/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrClosed          = errors.New("session registry closed")
)

const (
	// DefaultIdleTimeout is how long a session survives without being touched.
	DefaultIdleTimeout = 30 * time.Minute

	minCleanupInterval = time.Second
)

// Closer is implemented by anything a registry can own.
type Closer interface {
	Close()
}

type entry[T Closer] struct {
	value T
	info  models.Session
}

// Registry hands out ids for live engines and closes them once they have been
// idle longer than the timeout.
type Registry[T Closer] struct {
	mu          sync.RWMutex
	kind        string
	entries     map[string]*entry[T]
	idleTimeout time.Duration
	now         func() time.Time
	closed      bool

	done     chan struct{}
	stopOnce sync.Once
}

// NewRegistry creates a registry for sessions of kind and starts its cleanup loop.
func NewRegistry[T Closer](kind string, idleTimeout time.Duration) *Registry[T] {
	return newRegistry[T](kind, idleTimeout, time.Now)
}

func newRegistry[T Closer](kind string, idleTimeout time.Duration, now func() time.Time) *Registry[T] {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	r := &Registry[T]{
		kind:        kind,
		entries:     make(map[string]*entry[T]),
		idleTimeout: idleTimeout,
		now:         now,
		done:        make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// Create registers value under a fresh id.
func (r *Registry[T]) Create(value T) (models.Session, error) {
	now := r.now().UTC()
	info := models.Session{
		ID:        uuid.NewString(),
		Kind:      r.kind,
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: now.Add(r.idleTimeout),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return models.Session{}, ErrClosed
	}
	r.entries[info.ID] = &entry[T]{value: value, info: info}
	return info, nil
}

// Get returns the value for id and extends its expiry.
func (r *Registry[T]) Get(id string) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrSessionNotFound
	}

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return zero, ErrSessionNotFound
	}
	now := r.now().UTC()
	if e.info.IsExpired(now) {
		delete(r.entries, id)
		r.mu.Unlock()
		e.value.Close()
		return zero, ErrSessionExpired
	}
	e.info.LastSeen = now
	e.info.ExpiresAt = now.Add(r.idleTimeout)
	r.mu.Unlock()

	return e.value, nil
}

// Info returns the session metadata for id without touching it.
func (r *Registry[T]) Info(id string) (models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return e.info, nil
}

// Remove closes and forgets the session.
func (r *Registry[T]) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.value.Close()
	return nil
}

// Cleanup closes every expired session and returns how many were removed.
func (r *Registry[T]) Cleanup() int {
	now := r.now().UTC()

	r.mu.Lock()
	var expired []*entry[T]
	for id, e := range r.entries {
		if e.info.IsExpired(now) {
			delete(r.entries, id)
			expired = append(expired, e)
		}
	}
	r.mu.Unlock()

	for _, e := range expired {
		e.value.Close()
	}
	if len(expired) > 0 {
		log.Printf("[sessions] closed %d idle %s session(s)", len(expired), r.kind)
	}
	return len(expired)
}

func (r *Registry[T]) cleanupLoop() {
	interval := r.idleTimeout / 2
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Cleanup()
		case <-r.done:
			return
		}
	}
}

// Count returns the number of registered sessions, expired or not.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close stops the cleanup loop and closes every session.
func (r *Registry[T]) Close() {
	r.stopOnce.Do(func() { close(r.done) })

	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*entry[T])
	r.mu.Unlock()

	for _, e := range entries {
		e.value.Close()
	}
}
