package relay

import (
	"errors"
	"sync"

	"github.com/sandevgo/parley/internal/core"
)

var (
	ErrSessionClosed   = errors.New("session is closed")
	ErrOwnerAlreadySet = errors.New("session owner already set")
	ErrQueueFull       = errors.New("too many pending messages")
	ErrInternal        = errors.New("internal error")
)

// Session is the state of one duplex connection: its owner and the ordered
// conversation history. It is never shared between connections.
type Session struct {
	ID string

	mu      sync.Mutex
	owner   *core.User
	history []core.Turn
	closed  bool

	finish sync.Once
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

// Init attaches the owner. It succeeds once per session.
func (s *Session) Init(user core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.owner != nil {
		return ErrOwnerAlreadySet
	}
	s.owner = &user
	return nil
}

// OwnerID is empty until Init.
func (s *Session) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == nil {
		return ""
	}
	return s.owner.ID
}

func (s *Session) Append(turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.history = append(s.history, turn)
	return nil
}

// History returns a copy of the turns so far.
func (s *Session) History() []core.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// End marks the session closed; later frames are rejected.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return nil
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Finish closes the session and runs fn with the final owner and history.
// fn runs at most once no matter how many paths end the session.
func (s *Session) Finish(fn func(ownerID string, history []core.Turn)) {
	s.finish.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		fn(s.OwnerID(), s.History())
	})
}
