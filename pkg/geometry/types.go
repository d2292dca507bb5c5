// Package geometry provides the basic point types shared by the viewport
// math and the brush disc cache.
package geometry

// Point2D is a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointInt is a 2D point with integer coordinates.
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}
