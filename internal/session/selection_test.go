package session

import (
	"testing"

	"github.com/google/uuid"
)

func TestSelection(t *testing.T) {
	s := NewSelection()

	if _, ok := s.Active(); ok {
		t.Error("fresh selection must be empty")
	}

	id := uuid.New()
	s.Select(&id)
	if got, ok := s.Active(); !ok || got != id {
		t.Errorf("Active() = %v, %v", got, ok)
	}

	other := uuid.New()
	s.Select(&other)
	if got, _ := s.Active(); got != other {
		t.Errorf("Active() = %v, want %v", got, other)
	}

	s.Select(nil)
	if _, ok := s.Active(); ok {
		t.Error("nil select must deselect")
	}
}

func TestSelection_Clear(t *testing.T) {
	s := NewSelection()
	id := uuid.New()
	s.Select(&id)

	// Clearing a different id keeps the selection.
	s.Clear(uuid.New())
	if _, ok := s.Active(); !ok {
		t.Error("Clear of an inactive id must not deselect")
	}

	s.Clear(id)
	if _, ok := s.Active(); ok {
		t.Error("Clear of the active id must deselect")
	}
}
