// Package history keeps bounded undo/redo stacks of story snapshots.
//
// A checkpoint is taken before a discrete action mutates the story. Undo swaps the live
// story for the newest checkpoint and pushes the live state onto the redo stack.
package history

import (
	"time"

	"github.com/google/uuid"

	"storyloom/internal/model"
)

// DefaultCap is the number of undo checkpoints kept before the oldest is evicted.
const DefaultCap = 50

type Checkpoint struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	Snapshot   model.Story `json:"snapshot"`
	SelectedID string      `json:"selectedId,omitempty"`
	At         time.Time   `json:"at"`
}

type History struct {
	cap  int
	undo []Checkpoint
	redo []Checkpoint

	now func() time.Time
}

// New returns a History holding at most capacity undo checkpoints (DefaultCap if <= 0).
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &History{cap: capacity, now: time.Now}
}

// Restore rebuilds a History from persisted stacks (oldest first).
func Restore(capacity int, undo, redo []Checkpoint) *History {
	h := New(capacity)
	h.undo = append(h.undo, undo...)
	h.redo = append(h.redo, redo...)
	h.trim()
	return h
}

func (h *History) checkpoint(s *model.Story, selectedID, label string) Checkpoint {
	var snap model.Story
	if c := s.Clone(); c != nil {
		snap = *c
	}
	return Checkpoint{
		ID:         uuid.NewString(),
		Label:      label,
		Snapshot:   snap,
		SelectedID: selectedID,
		At:         h.now().UTC(),
	}
}

// Save records a deep copy of s. Any pending redo history is discarded.
func (h *History) Save(s *model.Story, selectedID, label string) Checkpoint {
	cp := h.checkpoint(s, selectedID, label)
	h.undo = append(h.undo, cp)
	h.trim()
	h.redo = nil
	return cp
}

func (h *History) trim() {
	if over := len(h.undo) - h.cap; over > 0 {
		h.undo = append([]Checkpoint(nil), h.undo[over:]...)
	}
}

// Undo pops the newest checkpoint. The current state is pushed onto the redo stack.
// ok is false (and nothing changes) when there is nothing to undo.
func (h *History) Undo(current *model.Story, selectedID string) (Checkpoint, bool) {
	if len(h.undo) == 0 {
		return Checkpoint{}, false
	}
	cp := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, h.checkpoint(current, selectedID, cp.Label))
	return cp, true
}

// Redo is the inverse of Undo.
func (h *History) Redo(current *model.Story, selectedID string) (Checkpoint, bool) {
	if len(h.redo) == 0 {
		return Checkpoint{}, false
	}
	cp := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, h.checkpoint(current, selectedID, cp.Label))
	h.trim()
	return cp, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

func (h *History) Len() (undo, redo int) { return len(h.undo), len(h.redo) }

// Stacks returns copies of both stacks, oldest first.
func (h *History) Stacks() (undo, redo []Checkpoint) {
	return append([]Checkpoint(nil), h.undo...), append([]Checkpoint(nil), h.redo...)
}

// Clear drops both stacks (used when a different story is loaded).
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

// RestoreSelection returns selectedID if it still names a node in s, else "".
func RestoreSelection(s *model.Story, selectedID string) string {
	if selectedID != "" && s.HasNode(selectedID) {
		return selectedID
	}
	return ""
}
