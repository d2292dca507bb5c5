package layers

import "charactercut/pkg/geometry"

// discCacheCapacity bounds how many brush-radius offset tables are retained.
const discCacheCapacity = 5

// discCache memoizes the pixel-offset table for recently used brush radii.
// Once the cache exceeds capacity the oldest entry is evicted.
type discCache struct {
	capacity int
	order    []int
	entries  map[int][]geometry.PointInt
}

func newDiscCache(capacity int) *discCache {
	return &discCache{
		capacity: capacity,
		entries:  make(map[int][]geometry.PointInt),
	}
}

// offsets returns the disc membership offsets for the given radius: every
// (dx, dy) with dx*dx+dy*dy <= r*r. A true disc, not a square.
func (c *discCache) offsets(radius int) []geometry.PointInt {
	if cached, ok := c.entries[radius]; ok {
		return cached
	}

	r2 := radius * radius
	var pts []geometry.PointInt
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				pts = append(pts, geometry.PointInt{X: dx, Y: dy})
			}
		}
	}

	c.entries[radius] = pts
	c.order = append(c.order, radius)
	if len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	return pts
}

// trim drops everything but the most recent entry.
func (c *discCache) trim() {
	if len(c.order) <= 1 {
		return
	}
	for _, radius := range c.order[:len(c.order)-1] {
		delete(c.entries, radius)
	}
	c.order = c.order[len(c.order)-1:]
}

// len reports the number of cached radii.
func (c *discCache) len() int {
	return len(c.entries)
}
