package session

import (
	"errors"
	"strings"
	"sync/atomic"
)

// ErrNoSession is returned when no usable token is available.
var ErrNoSession = errors.New("session: not signed in")

// Session is an immutable authentication context.
type Session struct {
	token string
}

// New creates a session for token.
func New(token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoSession
	}
	return &Session{token: token}, nil
}

// Token returns the bearer token.
func (s *Session) Token() string {
	return s.token
}

// Holder owns the current session.
type Holder struct {
	current atomic.Pointer[Session]
}

// NewHolder returns a Holder initialised with s, which may be nil.
func NewHolder(s *Session) *Holder {
	h := &Holder{}
	if s != nil {
		h.current.Store(s)
	}
	return h
}

// Replace atomically installs s as the current session.
func (h *Holder) Replace(s *Session) {
	h.current.Store(s)
}

// Current returns the current session or ErrNoSession.
func (h *Holder) Current() (*Session, error) {
	s := h.current.Load()
	if s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

// Token returns the current bearer token or ErrNoSession.
func (h *Holder) Token() (string, error) {
	s, err := h.Current()
	if err != nil {
		return "", err
	}
	return s.Token(), nil
}
