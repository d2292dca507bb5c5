package render

import (
	"image"
	"image/draw"
	"log"
	"sync"
	"time"

	"charactercut/internal/layers"
	"charactercut/pkg/colorutil"

	xdraw "golang.org/x/image/draw"
)

// ViewMode selects what the render engine composites onto the surface.
type ViewMode int

const (
	ModeProcessed ViewMode = iota
	ModeOriginal
	ModeComparison
)

func (m ViewMode) String() string {
	switch m {
	case ModeProcessed:
		return "processed"
	case ModeOriginal:
		return "original"
	case ModeComparison:
		return "comparison"
	default:
		return "unknown"
	}
}

const (
	// Renders requested inside this window are deferred, capping the
	// effective frame rate near 60 fps.
	minRenderInterval = 16 * time.Millisecond

	comparisonDividerWidth = 2
	checkerCellSize        = 8
)

// Stats holds render diagnostics.
type Stats struct {
	Draws         uint64
	FramesDropped uint64
}

// BufferSource is the read-only view of the layer engine's buffers that the
// render engine composites from. Deferred renders run off a timer goroutine,
// so every method must be safe to call while brush operations are mutating
// the layer state: Preview must return a snapshot or an immutable buffer,
// never storage a concurrent stroke writes to.
type BufferSource interface {
	Width() int
	Height() int
	Original() *image.RGBA
	Processed() *image.RGBA
	Preview() *image.RGBA
}

// Engine owns the viewport state and the render loop. It reads the layer
// engine's buffers for compositing but never mutates them.
type Engine struct {
	mu sync.Mutex

	src      BufferSource
	viewport Viewport
	mode     ViewMode

	frame         *image.RGBA
	dirty         bool
	lastRender    time.Time
	lastResize    time.Time
	renderPending bool

	draws         uint64
	framesDropped uint64

	onFrame func()
}

// NewEngine creates a render engine over the given buffer source with an
// initial logical surface size.
func NewEngine(src BufferSource, width, height int) *Engine {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	return &Engine{
		src: src,
		viewport: Viewport{
			Zoom:          1.0,
			LogicalWidth:  width,
			LogicalHeight: height,
		},
		dirty: true,
	}
}

// OnFrame registers a callback invoked after each completed draw. The editor
// widget uses it to refresh its raster.
func (e *Engine) OnFrame(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFrame = fn
}

// SetViewMode switches the compositing mode, marks the frame dirty, and
// renders immediately.
func (e *Engine) SetViewMode(mode ViewMode) {
	e.mu.Lock()
	e.mode = mode
	e.dirty = true
	e.mu.Unlock()
	e.ForceRender()
}

// ViewMode returns the current compositing mode.
func (e *Engine) ViewMode() ViewMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// MarkDirty flags the frame for redraw on the next render pass.
func (e *Engine) MarkDirty() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirty = true
}

// Frame returns the last composited frame, or nil before the first draw.
// Each draw composites into a fresh buffer, so a returned frame is never
// written again and stays safe to read while later draws complete.
func (e *Engine) Frame() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// Stats returns render diagnostics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{Draws: e.draws, FramesDropped: e.framesDropped}
}

// Render draws the current state onto the frame. No-op unless the frame is
// dirty. Renders requested before the minimum interval has elapsed are
// deferred to fire once the interval completes, so bursts of dirty-marking
// operations collapse into a single trailing draw of the latest state.
func (e *Engine) Render() {
	e.mu.Lock()
	if !e.dirty {
		e.mu.Unlock()
		return
	}

	now := time.Now()
	if elapsed := now.Sub(e.lastRender); elapsed < minRenderInterval {
		e.framesDropped++
		if !e.renderPending {
			e.renderPending = true
			time.AfterFunc(minRenderInterval-elapsed, func() {
				e.mu.Lock()
				e.renderPending = false
				e.mu.Unlock()
				e.Render()
			})
		}
		e.mu.Unlock()
		return
	}

	e.lastRender = now
	e.dirty = false
	e.drawLocked()
	e.mu.Unlock()
	e.notify()
}

// ForceRender draws immediately, bypassing the throttle. Used for explicit
// user-triggered redraws such as after an undo.
func (e *Engine) ForceRender() {
	e.mu.Lock()
	e.lastRender = time.Now()
	e.dirty = false
	e.drawLocked()
	e.mu.Unlock()
	e.notify()
}

// ForceRenderFallback is the emergency path for when the primary preview
// buffer is empty or invalid: it tries the original and then the processed
// buffer, scaling each to fit, and verifies after each attempt that visible
// content was actually produced. Returns true once a buffer yields content.
func (e *Engine) ForceRenderFallback() bool {
	e.mu.Lock()
	ok := e.fallbackLocked()
	e.mu.Unlock()
	if ok {
		e.notify()
	}
	return ok
}

// ExportProcessedImage serializes the current preview buffer (or the
// processed buffer if no preview exists) to a base64 PNG data URI. Returns
// an empty string when no buffer exists.
func (e *Engine) ExportProcessedImage() (string, error) {
	src := e.src.Preview()
	if src == nil {
		src = e.src.Processed()
	}
	if src == nil {
		return "", nil
	}
	return layers.EncodeDataURI(src)
}

func (e *Engine) notify() {
	e.mu.Lock()
	fn := e.onFrame
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// imageSizeLocked returns the session image dimensions, or zeros before the
// layer engine is ready.
func (e *Engine) imageSizeLocked() (int, int) {
	return e.src.Width(), e.src.Height()
}

// drawLocked composites into a fresh frame, applying the viewport transform
// and the current view mode. Individual draw failures are logged and the
// frame keeps whatever was drawn before the failure. Frames handed out by
// earlier draws are never touched.
func (e *Engine) drawLocked() {
	w := e.viewport.LogicalWidth
	h := e.viewport.LogicalHeight
	e.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	e.draws++

	imgW, imgH := e.imageSizeLocked()
	if imgW == 0 || imgH == 0 {
		return
	}

	dst := e.imageDstRect(imgW, imgH)

	switch e.mode {
	case ModeOriginal:
		e.drawBuffer(e.src.Original(), image.Rect(0, 0, imgW, imgH), dst, "original")

	case ModeComparison:
		// Fixed 50/50 split: original on the left, preview on the right,
		// with a divider at the image midpoint.
		mid := imgW / 2
		midScreen, _ := e.transformLocked().apply(float64(mid), 0)
		leftDst := image.Rect(dst.Min.X, dst.Min.Y, int(midScreen), dst.Max.Y)
		rightDst := image.Rect(int(midScreen), dst.Min.Y, dst.Max.X, dst.Max.Y)

		e.drawChecker(dst)
		e.drawBuffer(e.src.Original(), image.Rect(0, 0, mid, imgH), leftDst, "original-half")
		e.drawBuffer(e.src.Preview(), image.Rect(mid, 0, imgW, imgH), rightDst, "preview-half")
		e.drawDivider(int(midScreen), dst)

	default: // ModeProcessed
		e.drawChecker(dst)
		primary := e.src.Preview()
		if !e.drawBuffer(primary, image.Rect(0, 0, imgW, imgH), dst, "preview") {
			e.fallbackLocked()
		}
	}
}

// imageDstRect maps the full image bounds through the viewport transform.
func (e *Engine) imageDstRect(imgW, imgH int) image.Rectangle {
	t := e.transformLocked()
	x0, y0 := t.apply(0, 0)
	x1, y1 := t.apply(float64(imgW), float64(imgH))
	return image.Rect(int(x0), int(y0), int(x1), int(y1))
}

func (e *Engine) transformLocked() viewTransform {
	return newViewTransform(e.viewport.Zoom, e.viewport.OffsetX, e.viewport.OffsetY)
}

// drawBuffer scales srcRect of src into dstRect of the frame. Invalid or
// zero-dimension sources are logged and skipped; a panicking draw call is
// caught so the render never throws into the caller.
func (e *Engine) drawBuffer(src *image.RGBA, srcRect, dstRect image.Rectangle, label string) (ok bool) {
	if src == nil || src.Bounds().Dx() <= 0 || src.Bounds().Dy() <= 0 {
		log.Printf("render: skipping %s, source buffer empty", label)
		return false
	}
	if srcRect.Dx() <= 0 || srcRect.Dy() <= 0 || dstRect.Dx() <= 0 || dstRect.Dy() <= 0 {
		log.Printf("render: skipping %s, degenerate rect", label)
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render: draw %s failed: %v", label, r)
			ok = false
		}
	}()
	xdraw.ApproxBiLinear.Scale(e.frame, dstRect, src, srcRect, xdraw.Over, nil)
	return true
}

// drawChecker fills the image area with a checkerboard so transparent pixels
// read as transparent rather than as the window background.
func (e *Engine) drawChecker(dst image.Rectangle) {
	area := dst.Intersect(e.frame.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			c := colorutil.White
			if ((x-area.Min.X)/checkerCellSize+(y-area.Min.Y)/checkerCellSize)%2 == 1 {
				c = colorutil.Checker
			}
			e.frame.SetRGBA(x, y, c)
		}
	}
}

// drawDivider draws the vertical comparison divider at the given screen x.
func (e *Engine) drawDivider(x int, dst image.Rectangle) {
	line := image.Rect(x-comparisonDividerWidth/2, dst.Min.Y, x+comparisonDividerWidth/2, dst.Max.Y)
	draw.Draw(e.frame, line.Intersect(e.frame.Bounds()), &image.Uniform{colorutil.White}, image.Point{}, draw.Src)
}

// fallbackLocked draws from the first fallback buffer that yields visible
// content, scaling it to fit the surface.
func (e *Engine) fallbackLocked() bool {
	w := e.viewport.LogicalWidth
	h := e.viewport.LogicalHeight
	e.frame = image.NewRGBA(image.Rect(0, 0, w, h))

	candidates := []struct {
		name string
		src  *image.RGBA
	}{
		{"original", e.src.Original()},
		{"processed", e.src.Processed()},
	}

	for _, c := range candidates {
		if c.src == nil || c.src.Bounds().Dx() <= 0 || c.src.Bounds().Dy() <= 0 {
			continue
		}
		for i := range e.frame.Pix {
			e.frame.Pix[i] = 0
		}
		e.draws++

		dst := fitRect(c.src.Bounds(), w, h)
		if !e.drawBuffer(c.src, c.src.Bounds(), dst, "fallback-"+c.name) {
			continue
		}
		if sampleVisible(e.frame, dst) {
			log.Printf("render: fallback drew %s buffer", c.name)
			return true
		}
	}
	log.Printf("render: fallback found no drawable buffer")
	return false
}

// fitRect scales src bounds to fit a w x h surface, centered.
func fitRect(src image.Rectangle, w, h int) image.Rectangle {
	sw := float64(src.Dx())
	sh := float64(src.Dy())
	scale := float64(w) / sw
	if s := float64(h) / sh; s < scale {
		scale = s
	}
	dw := int(sw * scale)
	dh := int(sh * scale)
	x0 := (w - dw) / 2
	y0 := (h - dh) / 2
	return image.Rect(x0, y0, x0+dw, y0+dh)
}

// sampleVisible reports whether the region contains any non-transparent
// pixel, sampling on a coarse grid.
func sampleVisible(img *image.RGBA, region image.Rectangle) bool {
	area := region.Intersect(img.Bounds())
	if area.Empty() {
		return false
	}
	step := area.Dx() / 16
	if step < 1 {
		step = 1
	}
	for y := area.Min.Y; y < area.Max.Y; y += step {
		for x := area.Min.X; x < area.Max.X; x += step {
			if img.Pix[y*img.Stride+x*4+3] != 0 {
				return true
			}
		}
	}
	return false
}
