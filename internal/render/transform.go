package render

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// viewTransform is the affine map from image space to screen space as a 3x3
// homogeneous matrix:
//
//	[zoom 0    offsetX]
//	[0    zoom offsetY]
//	[0    0    1      ]
type viewTransform struct {
	m *mat.Dense
}

func newViewTransform(zoom, offsetX, offsetY float64) viewTransform {
	return viewTransform{m: mat.NewDense(3, 3, []float64{
		zoom, 0, offsetX,
		0, zoom, offsetY,
		0, 0, 1,
	})}
}

// apply maps a point through the transform.
func (t viewTransform) apply(x, y float64) (float64, float64) {
	p := mat.NewVecDense(3, []float64{x, y, 1})
	var out mat.VecDense
	out.MulVec(t.m, p)
	return out.AtVec(0), out.AtVec(1)
}

// inverse returns the inverse transform. Fails only when zoom is zero, which
// the viewport clamp rules out.
func (t viewTransform) inverse() (viewTransform, error) {
	var inv mat.Dense
	if err := inv.Inverse(t.m); err != nil {
		return viewTransform{}, fmt.Errorf("failed to invert view transform: %w", err)
	}
	return viewTransform{m: &inv}, nil
}
