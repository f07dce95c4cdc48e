// Package memory keeps the short-term conversation memory consulted by agents.
package memory

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTTL         = 24 * time.Hour
	DefaultMaxSessions = 500
)

// Options configures a Store.
type Options struct {
	TTL         time.Duration
	MaxSessions int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Store owns one Session per conversation. Sessions idle longer than the TTL
// are swept on the next GetOrCreate. MaxSessions is a soft cap: reaching it
// logs a warning but never refuses a session.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	lastSeen map[string]time.Time
	ttl      time.Duration
	max      int
	now      func() time.Time
	logger   *zap.Logger
}

// NewStore creates an empty store.
func NewStore(opts Options, logger *zap.Logger) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		sessions: make(map[string]*Session),
		lastSeen: make(map[string]time.Time),
		ttl:      opts.TTL,
		max:      opts.MaxSessions,
		now:      opts.Now,
		logger:   logger,
	}
}

// GetOrCreate returns the session for id, creating an empty one if needed,
// and refreshes its last access time.
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	sess, ok := s.sessions[id]
	if !ok {
		if len(s.sessions) >= s.max {
			s.logger.Warn("memory session limit reached",
				zap.Int("sessions", len(s.sessions)),
				zap.Int("max", s.max),
				zap.String("conversation", id))
		}
		sess = newSession(id, now)
		s.sessions[id] = sess
		s.logger.Debug("memory session created", zap.String("conversation", id))
	}
	s.lastSeen[id] = now
	return sess
}

// Peek returns the session for id without creating it or touching its TTL.
func (s *Store) Peek(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || s.expiredLocked(id, s.now()) {
		return nil, false
	}
	return sess, true
}

// Clear drops the session for id and reports whether one existed.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	delete(s.lastSeen, id)
	s.logger.Info("memory session cleared", zap.String("conversation", id))
	return true
}

// Size returns the number of live sessions. Expired ones are swept first.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.sessions)
}

// Stats describes the store for diagnostics.
type Stats struct {
	Sessions    int           `json:"sessions"`
	MaxSessions int           `json:"max_sessions"`
	TTL         time.Duration `json:"ttl"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return Stats{Sessions: len(s.sessions), MaxSessions: s.max, TTL: s.ttl}
}

func (s *Store) expiredLocked(id string, now time.Time) bool {
	seen, ok := s.lastSeen[id]
	return !ok || now.Sub(seen) > s.ttl
}

func (s *Store) sweepLocked(now time.Time) {
	var swept int
	for id := range s.sessions {
		if s.expiredLocked(id, now) {
			delete(s.sessions, id)
			delete(s.lastSeen, id)
			swept++
		}
	}
	if swept > 0 {
		s.logger.Info("expired memory sessions swept", zap.Int("count", swept))
	}
}
