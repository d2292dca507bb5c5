package pixelproc

import (
	"fmt"
	"image"
	"image/color"

	"charactercut/pkg/colorutil"
)

// applyMask alpha-composites a mask buffer onto an image: each output pixel
// keeps the image's color with its alpha scaled by the mask's alpha. Returns
// a fresh buffer.
func applyMask(img, mask *image.RGBA) (*image.RGBA, error) {
	if img == nil || mask == nil {
		return nil, fmt.Errorf("missing input buffer")
	}
	if img.Bounds().Dx() != mask.Bounds().Dx() || img.Bounds().Dy() != mask.Bounds().Dy() {
		return nil, fmt.Errorf("mask size mismatch: %v vs %v", img.Bounds(), mask.Bounds())
	}

	out := image.NewRGBA(img.Bounds())
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i+0] = img.Pix[i+0]
		out.Pix[i+1] = img.Pix[i+1]
		out.Pix[i+2] = img.Pix[i+2]
		out.Pix[i+3] = uint8(uint16(img.Pix[i+3]) * uint16(mask.Pix[i+3]) / 255)
	}
	return out, nil
}

// replaceColor substitutes every pixel within the RGB tolerance of target
// with the replacement color. Returns a fresh buffer.
func replaceColor(img *image.RGBA, target, replacement color.RGBA, tolerance float64) (*image.RGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("missing input buffer")
	}
	if tolerance < 0 {
		tolerance = 0
	}

	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)

	for i := 0; i < len(out.Pix); i += 4 {
		px := color.RGBA{R: out.Pix[i], G: out.Pix[i+1], B: out.Pix[i+2], A: out.Pix[i+3]}
		if colorutil.WithinTolerance(px, target, tolerance) {
			out.Pix[i+0] = replacement.R
			out.Pix[i+1] = replacement.G
			out.Pix[i+2] = replacement.B
			out.Pix[i+3] = replacement.A
		}
	}
	return out, nil
}
