package render

import (
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"charactercut/internal/layers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a BufferSource with directly controllable buffers, so tests
// can construct the degenerate states the fallback path exists for.
type fakeSource struct {
	original  *image.RGBA
	processed *image.RGBA
	preview   *image.RGBA
}

func newFakeSource(w, h int) *fakeSource {
	f := &fakeSource{
		original:  image.NewRGBA(image.Rect(0, 0, w, h)),
		processed: image.NewRGBA(image.Rect(0, 0, w, h)),
		preview:   image.NewRGBA(image.Rect(0, 0, w, h)),
	}
	fillRGBA(f.original, color.RGBA{R: 255, A: 255})
	fillRGBA(f.processed, color.RGBA{G: 255, A: 255})
	fillRGBA(f.preview, color.RGBA{B: 255, A: 255})
	return f
}

func fillRGBA(img *image.RGBA, c color.RGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
}

func (f *fakeSource) Width() int {
	if f.processed == nil {
		return 0
	}
	return f.processed.Bounds().Dx()
}

func (f *fakeSource) Height() int {
	if f.processed == nil {
		return 0
	}
	return f.processed.Bounds().Dy()
}

func (f *fakeSource) Original() *image.RGBA  { return f.original }
func (f *fakeSource) Processed() *image.RGBA { return f.processed }
func (f *fakeSource) Preview() *image.RGBA   { return f.preview }

func framePixel(frame *image.RGBA, x, y int) color.RGBA {
	i := y*frame.Stride + x*4
	return color.RGBA{R: frame.Pix[i], G: frame.Pix[i+1], B: frame.Pix[i+2], A: frame.Pix[i+3]}
}

func TestRenderNoOpWhenClean(t *testing.T) {
	e := NewEngine(newFakeSource(10, 10), 100, 100)
	e.ForceRender()
	draws := e.Stats().Draws

	e.Render()
	e.Render()
	assert.Equal(t, draws, e.Stats().Draws)
}

func TestRenderThrottleCollapsesBursts(t *testing.T) {
	e := NewEngine(newFakeSource(10, 10), 100, 100)
	e.ForceRender()
	base := e.Stats().Draws

	// A burst of dirty-marking render requests inside the frame budget
	// must collapse: no extra draws inside the window.
	for i := 0; i < 100; i++ {
		e.MarkDirty()
		e.Render()
	}
	stats := e.Stats()
	assert.Equal(t, base, stats.Draws)
	assert.NotZero(t, stats.FramesDropped)

	// The trailing deferred render fires once the interval completes and
	// reflects the final state.
	time.Sleep(4 * minRenderInterval)
	assert.Equal(t, base+1, e.Stats().Draws)
}

// The deferred trailing render runs on a timer goroutine, so it must stay
// safe while brush strokes keep mutating the layer engine's buffers. Run
// with the race detector to exercise the snapshot contract.
func TestRenderSafeDuringConcurrentStrokes(t *testing.T) {
	original := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fillRGBA(original, color.RGBA{R: 200, G: 50, B: 50, A: 255})
	processed := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fillRGBA(processed, color.RGBA{R: 50, G: 50, B: 200, A: 255})

	le := layers.NewEngine()
	require.NoError(t, le.InitializeImages(original, processed))

	e := NewEngine(le, 100, 100)
	e.ForceRender()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			le.PerformErase(float64(i%64), float64((i*7)%64), 6)
		}
	}()

	for i := 0; i < 200; i++ {
		e.MarkDirty()
		e.Render()
	}
	wg.Wait()

	// Let any deferred render fire, then draw the settled state.
	time.Sleep(4 * minRenderInterval)
	e.ForceRender()

	require.NotNil(t, e.Frame())
	assert.NotZero(t, e.Stats().Draws)
}

func TestFrameStableAcrossLaterDraws(t *testing.T) {
	src := newFakeSource(10, 10)
	e := NewEngine(src, 40, 40)
	e.ForceRender()

	first := e.Frame()
	require.NotNil(t, first)
	saved := make([]uint8, len(first.Pix))
	copy(saved, first.Pix)

	fillRGBA(src.preview, color.RGBA{R: 255, G: 255, A: 255})
	e.MarkDirty()
	e.ForceRender()

	assert.NotSame(t, first, e.Frame())
	assert.Equal(t, saved, first.Pix, "a handed-out frame must not change when later draws run")
}

func TestRenderProcessedDrawsPreview(t *testing.T) {
	e := NewEngine(newFakeSource(10, 10), 10, 10)
	e.SetZoom(1.0)
	e.ForceRender()

	frame := e.Frame()
	require.NotNil(t, frame)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, framePixel(frame, 5, 5))
}

func TestRenderOriginalMode(t *testing.T) {
	e := NewEngine(newFakeSource(10, 10), 10, 10)
	e.SetViewMode(ModeOriginal)

	frame := e.Frame()
	require.NotNil(t, frame)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, framePixel(frame, 5, 5))
}

func TestRenderComparisonSplit(t *testing.T) {
	e := NewEngine(newFakeSource(100, 100), 100, 100)
	e.SetViewMode(ModeComparison)

	frame := e.Frame()
	require.NotNil(t, frame)

	// Original (red) on the left, preview (blue) on the right, divider at
	// the midpoint.
	assert.Equal(t, color.RGBA{R: 255, A: 255}, framePixel(frame, 10, 50))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, framePixel(frame, 90, 50))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, framePixel(frame, 50, 50))
}

func TestViewModeChangeRendersImmediately(t *testing.T) {
	e := NewEngine(newFakeSource(10, 10), 10, 10)
	e.ForceRender()
	draws := e.Stats().Draws

	e.SetViewMode(ModeOriginal)
	assert.Equal(t, draws+1, e.Stats().Draws)
	assert.Equal(t, ModeOriginal, e.ViewMode())
}

func TestFallbackDrawsFromProcessed(t *testing.T) {
	src := newFakeSource(10, 10)
	src.preview = image.NewRGBA(image.Rect(0, 0, 0, 0))
	src.original = nil

	e := NewEngine(src, 50, 50)
	require.True(t, e.ForceRenderFallback())

	frame := e.Frame()
	require.NotNil(t, frame)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, framePixel(frame, 25, 25))
}

func TestFallbackPrefersOriginal(t *testing.T) {
	src := newFakeSource(10, 10)
	src.preview = nil

	e := NewEngine(src, 50, 50)
	require.True(t, e.ForceRenderFallback())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, framePixel(e.Frame(), 25, 25))
}

func TestFallbackSkipsFullyTransparentBuffers(t *testing.T) {
	src := newFakeSource(10, 10)
	src.preview = nil
	src.original = image.NewRGBA(image.Rect(0, 0, 10, 10)) // all transparent

	e := NewEngine(src, 50, 50)
	require.True(t, e.ForceRenderFallback())
	assert.Equal(t, color.RGBA{G: 255, A: 255}, framePixel(e.Frame(), 25, 25))
}

func TestFallbackFailsWithNothingToDraw(t *testing.T) {
	src := &fakeSource{}
	e := NewEngine(src, 50, 50)
	assert.False(t, e.ForceRenderFallback())
}

func TestRenderRecoversFromDegenerateSource(t *testing.T) {
	src := newFakeSource(10, 10)
	src.preview = image.NewRGBA(image.Rect(0, 0, 0, 0))

	e := NewEngine(src, 50, 50)
	assert.NotPanics(t, e.ForceRender)
	// The primary draw failed, so the frame came from the fallback list.
	assert.True(t, sampleVisible(e.Frame(), e.Frame().Bounds()))
}

func TestExportProcessedImage(t *testing.T) {
	e := NewEngine(newFakeSource(8, 8), 50, 50)
	uri, err := e.ExportProcessedImage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	empty := NewEngine(&fakeSource{}, 50, 50)
	uri, err = empty.ExportProcessedImage()
	require.NoError(t, err)
	assert.Empty(t, uri)
}

func TestOnFrameCallback(t *testing.T) {
	e := NewEngine(newFakeSource(10, 10), 20, 20)
	var called int
	e.OnFrame(func() { called++ })

	e.ForceRender()
	assert.Equal(t, 1, called)
}
