package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

const defaultSweepInterval = time.Minute

type sessionEntry struct {
	userID    string
	expiresAt time.Time // zero means no expiry
}

// SessionStore is an explicitly constructed session table. With a positive
// TTL entries expire and a sweeper goroutine removes them until Close.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	byUser   map[string]map[string]struct{}

	ttl  time.Duration
	now  func() time.Time
	log  zerolog.Logger
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// SessionStoreOptions configures a SessionStore.
type SessionStoreOptions struct {
	// TTL is the session lifetime; zero disables expiry and the sweeper.
	TTL time.Duration
	// SweepInterval defaults to one minute.
	SweepInterval time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

func NewSessionStore(opts SessionStoreOptions, log zerolog.Logger) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]sessionEntry),
		byUser:   make(map[string]map[string]struct{}),
		ttl:      opts.TTL,
		now:      opts.Now,
		log:      log.With().Str("component", "memory_sessions").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if s.now == nil {
		s.now = time.Now
	}

	if s.ttl <= 0 {
		close(s.done)
		return s
	}
	interval := opts.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	go s.sweep(interval)
	return s
}

func (s *SessionStore) Save(_ context.Context, sessionID, userID string) error {
	entry := sessionEntry{userID: userID}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = entry
	ids, ok := s.byUser[userID]
	if !ok {
		ids = make(map[string]struct{})
		s.byUser[userID] = ids
	}
	ids[sessionID] = struct{}{}
	return nil
}

func (s *SessionStore) UserID(_ context.Context, sessionID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok || s.expired(e) {
		return "", false, nil
	}
	return e.userID, true, nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	s.remove(sessionID, e.userID)
	return !s.expired(e), nil
}

func (s *SessionStore) DeleteUser(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := false
	for id := range s.byUser[userID] {
		if !s.expired(s.sessions[id]) {
			live = true
		}
		delete(s.sessions, id)
	}
	delete(s.byUser, userID)
	return live, nil
}

// Len returns the number of stored entries, expired or not.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired entries and returns how many it removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.sessions {
		if s.expired(e) {
			s.remove(id, e.userID)
			n++
		}
	}
	return n
}

// Close stops the sweeper and waits for it to exit.
func (s *SessionStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *SessionStore) sweep(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				metrics.SessionsExpiredTotal.Add(float64(n))
				s.log.Debug().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}

func (s *SessionStore) expired(e sessionEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

// remove must be called with mu held.
func (s *SessionStore) remove(sessionID, userID string) {
	delete(s.sessions, sessionID)
	if ids, ok := s.byUser[userID]; ok {
		delete(ids, sessionID)
		if len(ids) == 0 {
			delete(s.byUser, userID)
		}
	}
}

var _ ports.SessionStore = (*SessionStore)(nil)
