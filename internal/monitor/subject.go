// Package monitor routes observability events up a tree of subjects
// (/channel/1/stage/layer/10/...) to exporters such as MQTT.
package monitor

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Event is a monitor message. Path is prefixed by every subject it passes.
type Event struct {
	Path string `msgpack:"path" json:"path"`
	Args []any  `msgpack:"args" json:"args"`
}

// NewEvent creates an event with a relative path ("/paused").
func NewEvent(path string, args ...any) Event {
	return Event{Path: path, Args: args}
}

// Observer receives events that reach a subject.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Subject is a node in the monitor tree. Safe for concurrent use.
type Subject struct {
	mu        sync.RWMutex
	path      string
	parent    *Subject
	observers map[uuid.UUID]Observer
}

// NewSubject creates a detached subject. path is relative ("layer/3").
func NewSubject(path string) *Subject {
	return &Subject{
		path:      strings.Trim(path, "/"),
		observers: make(map[uuid.UUID]Observer),
	}
}

// Path returns the relative path.
func (s *Subject) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// SetPath renames the subject (a layer moved to another index).
func (s *Subject) SetPath(path string) {
	s.mu.Lock()
	s.path = strings.Trim(path, "/")
	s.mu.Unlock()
}

// FullPath returns the absolute path through every attached parent.
func (s *Subject) FullPath() string {
	var parts []string
	for n := s; n != nil; n = n.Parent() {
		if p := n.Path(); p != "" {
			parts = append([]string{p}, parts...)
		}
	}
	return "/" + strings.Join(parts, "/")
}

// AttachParent routes this subject's events to parent.
func (s *Subject) AttachParent(parent *Subject) {
	if parent == s {
		return
	}
	s.mu.Lock()
	s.parent = parent
	s.mu.Unlock()
}

// DetachParent stops routing events upward.
func (s *Subject) DetachParent() {
	s.mu.Lock()
	s.parent = nil
	s.mu.Unlock()
}

// Parent returns the attached parent, or nil.
func (s *Subject) Parent() *Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parent
}

// Subscribe registers o. The returned func unsubscribes.
func (s *Subject) Subscribe(o Observer) (cancel func()) {
	id := uuid.New()
	s.mu.Lock()
	s.observers[id] = o
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Send prefixes e with this subject's path, notifies local observers and
// forwards to the parent.
func (s *Subject) Send(e Event) {
	s.mu.RLock()
	if s.path != "" {
		e.Path = "/" + s.path + e.Path
	}
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	parent := s.parent
	s.mu.RUnlock()

	for _, o := range observers {
		o.OnEvent(e)
	}
	if parent != nil {
		parent.Send(e)
	}
}
