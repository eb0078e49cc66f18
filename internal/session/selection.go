// Package session holds the view-side selection state: which document
// the chat is currently scoped to. Purely derived state; selecting or
// deselecting never mutates a document and never cancels a call.
package session

import (
	"sync"

	"github.com/google/uuid"
)

type Selection struct {
	mu     sync.RWMutex
	active *uuid.UUID
}

func NewSelection() *Selection {
	return &Selection{}
}

// Select records the active document id. Passing nil detaches the
// chat view.
func (s *Selection) Select(id *uuid.UUID) {
	s.mu.Lock()
	if id == nil {
		s.active = nil
	} else {
		v := *id
		s.active = &v
	}
	s.mu.Unlock()
}

// Active returns the selected document id, if any.
func (s *Selection) Active() (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return uuid.UUID{}, false
	}
	return *s.active, true
}

// Clear deselects if the given document is the active one.
func (s *Selection) Clear(id uuid.UUID) {
	s.mu.Lock()
	if s.active != nil && *s.active == id {
		s.active = nil
	}
	s.mu.Unlock()
}
