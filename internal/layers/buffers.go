// Package layers provides the layered image engine for refinement editing:
// four same-dimension pixel buffers and the brush operations that mutate the
// preview layer.
package layers

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"

	_ "golang.org/x/image/tiff"
)

// BufferSet holds the four pixel buffers of an editing session. All four are
// always equal in dimensions. Original and Processed are immutable snapshots
// loaded at session start; Preview is the only user-facing mutable buffer and
// starts as a copy of Processed; Mask records which pixels have been manually
// touched.
type BufferSet struct {
	Original  *image.RGBA
	Processed *image.RGBA
	Mask      *image.RGBA
	Preview   *image.RGBA
}

// Width returns the buffer width in pixels.
func (b *BufferSet) Width() int {
	if b.Processed == nil {
		return 0
	}
	return b.Processed.Bounds().Dx()
}

// Height returns the buffer height in pixels.
func (b *BufferSet) Height() int {
	if b.Processed == nil {
		return 0
	}
	return b.Processed.Bounds().Dy()
}

// newBufferSet builds the four buffers from decoded source images. The
// processed image fixes the session dimensions; the original is rescaled to
// match when it differs so per-pixel copies are always in-bounds.
func newBufferSet(original, processed image.Image) (*BufferSet, error) {
	if original == nil || processed == nil {
		return nil, fmt.Errorf("missing source image")
	}

	pb := processed.Bounds()
	w, h := pb.Dx(), pb.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("processed image has invalid dimensions %dx%d", w, h)
	}

	ob := original.Bounds()
	if ob.Dx() != w || ob.Dy() != h {
		original = resize.Resize(uint(w), uint(h), original, resize.Bilinear)
	}

	bs := &BufferSet{
		Original:  toRGBA(original),
		Processed: toRGBA(processed),
		Mask:      image.NewRGBA(image.Rect(0, 0, w, h)),
		Preview:   image.NewRGBA(image.Rect(0, 0, w, h)),
	}
	copy(bs.Preview.Pix, bs.Processed.Pix)
	return bs, nil
}

// decodeSource decodes an image from a reader (PNG, JPEG, or TIFF).
func decodeSource(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// toRGBA converts an image to RGBA with a zero-origin bounds, copying when
// the source is already a conforming RGBA.
func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// cloneRGBA returns a deep copy of an RGBA image.
func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
