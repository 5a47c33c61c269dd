package dataframe

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrSessionClosed is returned by every Session method after Close.
	ErrSessionClosed = errors.New("dataframe: session is closed")
	// ErrFrameNotFound is returned by Get for an unknown frame name.
	ErrFrameNotFound = errors.New("dataframe: frame not found")
)

// Session is the scoped handle through which pipeline stages exchange named frames.
// It is acquired once at process start and closed at process end.
type Session struct {
	name   string
	mu     sync.RWMutex
	frames map[string]*Frame
	closed bool
}

// NewSession creates an empty, open session.
func NewSession(name string) *Session {
	return &Session{name: name, frames: make(map[string]*Frame)}
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// Put stores f as name, replacing any previous frame of that name.
func (s *Session) Put(name string, f *Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if f == nil {
		return fmt.Errorf("dataframe: cannot store nil frame %q", name)
	}
	s.frames[name] = f
	return nil
}

// Get returns the frame stored as name.
func (s *Session) Get(name string) (*Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	f, ok := s.frames[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFrameNotFound, name)
	}
	return f, nil
}

// Names returns the stored frame names, sorted.
func (s *Session) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	names := make([]string, 0, len(s.frames))
	for name := range s.frames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close releases all frames. Closing an already closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frames = nil
	return nil
}
