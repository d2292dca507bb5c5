package layers

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTwoToneBuffers builds a BufferSet whose original is red on the left
// half and blue on the right half.
func newTwoToneBuffers(t *testing.T, w, h int) *BufferSet {
	t.Helper()

	original := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 220, G: 20, B: 20, A: 255}
			if x >= w/2 {
				c = color.RGBA{R: 20, G: 20, B: 220, A: 255}
			}
			i := y*original.Stride + x*4
			original.Pix[i+0] = c.R
			original.Pix[i+1] = c.G
			original.Pix[i+2] = c.B
			original.Pix[i+3] = c.A
		}
	}
	processed := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(processed, color.RGBA{R: 128, G: 128, B: 128, A: 255})

	bs, err := newBufferSet(original, processed)
	require.NoError(t, err)
	return bs
}

func TestColorSimilaritySelectorMatchesSeedRegion(t *testing.T) {
	bs := newTwoToneBuffers(t, 20, 20)
	sel := NewColorSimilaritySelector(color.RGBA{R: 220, G: 20, B: 20, A: 255})

	assert.True(t, sel.Include(bs, 2, 10), "red pixel matches red seed")
	assert.False(t, sel.Include(bs, 15, 10), "blue pixel rejected by red seed")
}

func TestColorSimilaritySelectorHueWrapsAround(t *testing.T) {
	// Hue 350 and hue 10 are both red; the angular distance is 20, not 340.
	sel := NewColorSimilaritySelector(color.RGBA{R: 255, G: 0, B: 42, A: 255})

	original := image.NewRGBA(image.Rect(0, 0, 4, 4))
	fill(original, color.RGBA{R: 255, G: 42, B: 0, A: 255})
	processed := image.NewRGBA(image.Rect(0, 0, 4, 4))
	fill(processed, color.RGBA{A: 255})
	bs, err := newBufferSet(original, processed)
	require.NoError(t, err)

	assert.True(t, sel.Include(bs, 1, 1))
}

func TestColorSimilaritySelectorGraySeedMatchesGraysOnly(t *testing.T) {
	sel := NewColorSimilaritySelector(color.RGBA{R: 120, G: 120, B: 120, A: 255})

	original := image.NewRGBA(image.Rect(0, 0, 4, 2))
	fill(original, color.RGBA{R: 130, G: 128, B: 126, A: 255})
	i := 0*original.Stride + 3*4
	original.Pix[i+0] = 140
	original.Pix[i+1] = 30
	original.Pix[i+2] = 30
	original.Pix[i+3] = 255
	processed := image.NewRGBA(image.Rect(0, 0, 4, 2))
	fill(processed, color.RGBA{A: 255})
	bs, err := newBufferSet(original, processed)
	require.NoError(t, err)

	assert.True(t, sel.Include(bs, 0, 0), "near-gray pixel matches gray seed")
	assert.False(t, sel.Include(bs, 3, 0), "saturated pixel rejected by gray seed")
}

func TestColorSimilaritySelectorRejectsBrightnessGap(t *testing.T) {
	sel := NewColorSimilaritySelector(color.RGBA{R: 250, G: 20, B: 20, A: 255})

	original := image.NewRGBA(image.Rect(0, 0, 4, 4))
	fill(original, color.RGBA{R: 80, G: 6, B: 6, A: 255})
	processed := image.NewRGBA(image.Rect(0, 0, 4, 4))
	fill(processed, color.RGBA{A: 255})
	bs, err := newBufferSet(original, processed)
	require.NoError(t, err)

	assert.False(t, sel.Include(bs, 1, 1), "same hue but far darker")
}
