package layers

import (
	"image/color"
	"math"

	"charactercut/pkg/colorutil"
)

// Tolerances for the color-similarity heuristic. Hue is in degrees;
// saturation and value are in [0,1]. Pixels below grayCutoff saturation
// carry no meaningful hue and are matched on brightness alone.
const (
	hueTolerance = 30.0
	satTolerance = 0.3
	valTolerance = 0.3
	grayCutoff   = 0.15
)

// ColorSimilaritySelector includes the pixels whose original color is close
// to a seed color in HSV space, so smart strokes stay on the color region
// under the stroke's first point instead of everything the disc covers.
type ColorSimilaritySelector struct {
	hue, sat, val float64
	gray          bool
}

// NewColorSimilaritySelector builds a selector seeded from the given color,
// typically sampled from the original buffer where a smart stroke begins.
func NewColorSimilaritySelector(seed color.RGBA) *ColorSimilaritySelector {
	h, s, v := colorutil.RGBToHSV(float64(seed.R), float64(seed.G), float64(seed.B))
	return &ColorSimilaritySelector{hue: h, sat: s, val: v, gray: s < grayCutoff}
}

// Include reports whether the original pixel at (x, y) matches the seed.
func (sel *ColorSimilaritySelector) Include(buffers *BufferSet, x, y int) bool {
	i := y*buffers.Original.Stride + x*4
	pix := buffers.Original.Pix
	h, s, v := colorutil.RGBToHSV(float64(pix[i]), float64(pix[i+1]), float64(pix[i+2]))

	if math.Abs(v-sel.val) > valTolerance {
		return false
	}
	if sel.gray || s < grayCutoff {
		return sel.gray && s < grayCutoff
	}
	if math.Abs(s-sel.sat) > satTolerance {
		return false
	}
	d := math.Abs(h - sel.hue)
	if d > 180 {
		d = 360 - d
	}
	return d <= hueTolerance
}
