// Package removal talks to the background-removal inference service. The
// service accepts a multipart image upload and returns the processed cutout
// as a base64 PNG data URL inside a JSON envelope.
package removal

import (
	"context"
	"image"
)

// Remover strips the background from an image, returning the cutout with
// transparent pixels where the background was.
type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// Passthrough returns the input unchanged. It stands in for the real service
// in offline sessions and tests.
type Passthrough struct{}

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Remove(_ context.Context, img image.Image) (image.Image, error) {
	return img, nil
}
