package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscOffsetsAreTrueDisc(t *testing.T) {
	c := newDiscCache(discCacheCapacity)
	for _, pt := range c.offsets(3) {
		assert.LessOrEqual(t, pt.X*pt.X+pt.Y*pt.Y, 9)
	}
	// Corners of the bounding square are excluded.
	for _, pt := range c.offsets(3) {
		assert.False(t, pt.X == 3 && pt.Y == 3)
	}
	// Radius 1 covers the center plus the four axis neighbors.
	assert.Len(t, c.offsets(1), 5)
}

func TestDiscCacheEvictsOldest(t *testing.T) {
	c := newDiscCache(2)
	c.offsets(1)
	c.offsets(2)
	c.offsets(3) // evicts radius 1

	assert.Equal(t, 2, c.len())
	_, stillHasOne := c.entries[1]
	assert.False(t, stillHasOne)
	_, stillHasThree := c.entries[3]
	assert.True(t, stillHasThree)
}

func TestDiscCacheTrim(t *testing.T) {
	c := newDiscCache(5)
	c.offsets(1)
	c.offsets(2)
	c.offsets(3)

	c.trim()
	assert.Equal(t, 1, c.len())
	_, hasLatest := c.entries[3]
	assert.True(t, hasLatest)
}
