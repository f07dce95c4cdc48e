package memory

import (
	"sync"
	"time"

	"github.com/nidhogg/campus-assistant/internal/enrollment"
)

// Turn is one message in a conversation.
type Turn struct {
	Role string    `json:"role"` // user|assistant
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session holds the memory of a single conversation. All methods are safe
// for concurrent use.
type Session struct {
	id        string
	createdAt time.Time

	mu         sync.Mutex
	turns      []Turn
	enrollment enrollment.Progress
}

func newSession(id string, now time.Time) *Session {
	return &Session{id: id, createdAt: now}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Append adds turns in order.
func (s *Session) Append(turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Recent returns at most n of the latest turns.
func (s *Session) Recent(n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if n > 0 && len(s.turns) > n {
		start = len(s.turns) - n
	}
	out := make([]Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Enrollment runs fn with exclusive access to the session's enrollment progress.
func (s *Session) Enrollment(fn func(p *enrollment.Progress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.enrollment)
}
