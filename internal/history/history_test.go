package history

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stamp(v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestUndoRedoRoundTrip(t *testing.T) {
	s := NewStack(0)
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	before := stamp(1)
	after := stamp(2)
	s.Push(before)
	require.True(t, s.CanUndo())

	restored := s.Undo(after)
	require.NotNil(t, restored)
	assert.Equal(t, before.Pix, restored.Pix)
	assert.True(t, s.CanRedo())

	redone := s.Redo(restored)
	require.NotNil(t, redone)
	assert.Equal(t, after.Pix, redone.Pix)
	assert.True(t, s.CanUndo())
}

func TestUndoEmptyReturnsNil(t *testing.T) {
	s := NewStack(4)
	assert.Nil(t, s.Undo(stamp(1)))
	assert.Nil(t, s.Redo(stamp(1)))
}

func TestPushCopiesSnapshot(t *testing.T) {
	s := NewStack(4)
	snap := stamp(7)
	s.Push(snap)
	snap.Pix[0] = 99

	restored := s.Undo(nil)
	require.NotNil(t, restored)
	assert.Equal(t, uint8(7), restored.Pix[0])
}

func TestDepthBoundDropsOldest(t *testing.T) {
	s := NewStack(3)
	for v := uint8(1); v <= 5; v++ {
		s.Push(stamp(v))
	}
	assert.Equal(t, 3, s.Len())

	// Newest first: 5, 4, 3. Snapshots 1 and 2 were dropped.
	assert.Equal(t, uint8(5), s.Undo(nil).Pix[0])
	assert.Equal(t, uint8(4), s.Undo(nil).Pix[0])
	assert.Equal(t, uint8(3), s.Undo(nil).Pix[0])
	assert.Nil(t, s.Undo(nil))
}

func TestPushClearsRedoBranch(t *testing.T) {
	s := NewStack(4)
	s.Push(stamp(1))
	s.Undo(stamp(2))
	require.True(t, s.CanRedo())

	s.Push(stamp(3))
	assert.False(t, s.CanRedo())
}

func TestNilPushIgnored(t *testing.T) {
	s := NewStack(4)
	s.Push(nil)
	assert.Equal(t, 0, s.Len())
}

func TestClear(t *testing.T) {
	s := NewStack(4)
	s.Push(stamp(1))
	s.Undo(stamp(2))
	s.Clear()
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}
