// Package colorutil provides shared color utilities for the CharacterCut editor.
package colorutil

import (
	"image/color"
	"math"
)

// Colors used by the render surface.
var (
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Checker = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// Distance returns the Euclidean distance between two colors in RGB space.
// Alpha is ignored; callers that care about visibility check alpha separately.
func Distance(a, b color.RGBA) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// WithinTolerance reports whether two colors are within the given RGB distance.
func WithinTolerance(a, b color.RGBA, tolerance float64) bool {
	return Distance(a, b) <= tolerance
}

// RGBToHSV converts RGB (0-255) to HSV (H 0-360, S 0-1, V 0-1).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC

	if maxC == 0 {
		s = 0
	} else {
		s = diff / maxC
	}

	if diff == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/diff, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/diff + 2)
	} else {
		h = 60 * ((r-g)/diff + 4)
	}

	if h < 0 {
		h += 360
	}

	return h, s, v
}
