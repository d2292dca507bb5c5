// Package history tracks preview snapshots for undo/redo. Each entry is a
// full copy of the preview buffer taken before a destructive edit, held in a
// bounded stack so memory stays proportional to the depth limit.
package history

import (
	"image"
	"sync"
)

// DefaultDepth is the number of undo steps retained before the oldest
// snapshot is discarded.
const DefaultDepth = 20

// Stack is a bounded undo/redo stack of preview snapshots. A Push after an
// Undo discards the redo branch, matching the usual editor behavior.
type Stack struct {
	mu    sync.Mutex
	depth int
	undo  []*image.RGBA
	redo  []*image.RGBA
}

// NewStack creates a stack holding at most depth snapshots. depth <= 0
// selects DefaultDepth.
func NewStack(depth int) *Stack {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Stack{depth: depth}
}

// Push records a snapshot taken before an edit. The buffer is copied, so the
// caller may keep mutating its own. Pushing clears any redo entries.
func (s *Stack) Push(snapshot *image.RGBA) {
	if snapshot == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.undo = append(s.undo, cloneRGBA(snapshot))
	if len(s.undo) > s.depth {
		copy(s.undo, s.undo[1:])
		s.undo[len(s.undo)-1] = nil
		s.undo = s.undo[:len(s.undo)-1]
	}
	s.redo = s.redo[:0]
}

// Undo exchanges the current state for the most recent snapshot: current is
// pushed onto the redo stack and the popped snapshot is returned. Returns
// nil when there is nothing to undo.
func (s *Stack) Undo(current *image.RGBA) *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undo) == 0 {
		return nil
	}
	top := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	if current != nil {
		s.redo = append(s.redo, cloneRGBA(current))
	}
	return top
}

// Redo reverses the most recent Undo. Returns nil when there is nothing to
// redo.
func (s *Stack) Redo(current *image.RGBA) *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redo) == 0 {
		return nil
	}
	top := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	if current != nil {
		s.undo = append(s.undo, cloneRGBA(current))
	}
	return top
}

// CanUndo reports whether any snapshot is available.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

// CanRedo reports whether an undone edit can be reapplied.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// Len returns the current undo depth.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo)
}

// Clear drops all snapshots, typically when a new session loads.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo = nil
	s.redo = nil
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}
