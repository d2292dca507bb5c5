package pixelproc

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const defaultEdgeThreshold = 50.0

// detectEdges produces a threshold-parametrized edge map: white opaque
// pixels on a transparent background. Returns a fresh buffer.
func detectEdges(img *image.RGBA, threshold float64) (*image.RGBA, error) {
	if img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return nil, fmt.Errorf("missing or empty input buffer")
	}
	if threshold <= 0 {
		threshold = defaultEdgeThreshold
	}

	mat, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBAToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, float32(threshold), float32(threshold)*2)

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if edges.GetUCharAt(y, x) > 0 {
				i := y*out.Stride + x*4
				out.Pix[i+0] = 255
				out.Pix[i+1] = 255
				out.Pix[i+2] = 255
				out.Pix[i+3] = 255
			}
		}
	}
	return out, nil
}
