package layers

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"sync"
	"time"
)

// Op identifies a brush operation.
type Op int

const (
	OpRestore Op = iota
	OpErase
	OpSmartRestore
	OpSmartErase
)

func (o Op) String() string {
	switch o {
	case OpRestore:
		return "restore"
	case OpErase:
		return "erase"
	case OpSmartRestore:
		return "smart-restore"
	case OpSmartErase:
		return "smart-erase"
	default:
		return "unknown"
	}
}

// Selector decides whether a pixel inside the brush disc participates in a
// smart stroke. The actual heuristic lives outside this engine; the default
// selector includes every pixel, which makes the smart tools identical to
// their plain counterparts at the data-flow level.
type Selector interface {
	Include(buffers *BufferSet, x, y int) bool
}

type includeAll struct{}

func (includeAll) Include(*BufferSet, int, int) bool { return true }

const cleanupInterval = 60 * time.Second

// Engine owns the four pixel buffers of an editing session and applies brush
// edits to the preview layer. Brush operations are synchronous and applied in
// call order; exactly one active stroke at a time is assumed.
type Engine struct {
	mu sync.Mutex

	buffers *BufferSet
	ready   bool

	// Peek-at-original state; swaps what renders as preview without
	// touching the stored preview pixels.
	showOriginal bool

	selector Selector

	discs       *discCache
	scratch     sync.Pool
	lastCleanup time.Time
}

// NewEngine creates an engine with no buffers loaded. Initialize must complete
// before brush operations have any effect.
func NewEngine() *Engine {
	return &Engine{
		selector: includeAll{},
		discs:    newDiscCache(discCacheCapacity),
	}
}

// Initialize decodes both image sources and populates the buffer set. The
// engine becomes ready only if both sources decode; on failure it stays not
// ready and subsequent operations no-op.
func (e *Engine) Initialize(originalSrc, processedSrc io.Reader) error {
	original, err := decodeSource(originalSrc)
	if err != nil {
		return fmt.Errorf("failed to decode original: %w", err)
	}
	processed, err := decodeSource(processedSrc)
	if err != nil {
		return fmt.Errorf("failed to decode processed: %w", err)
	}
	return e.InitializeImages(original, processed)
}

// InitializeImages populates the buffer set from already-decoded images.
func (e *Engine) InitializeImages(original, processed image.Image) error {
	buffers, err := newBufferSet(original, processed)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.buffers = buffers
	e.ready = true
	e.showOriginal = false
	e.lastCleanup = time.Now()
	e.scratch = sync.Pool{}
	return nil
}

// Ready reports whether Initialize completed successfully.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// SetSelector installs the pixel-selection heuristic used by the smart brush
// operations. Passing nil restores the include-everything default.
func (e *Engine) SetSelector(s Selector) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s == nil {
		s = includeAll{}
	}
	e.selector = s
}

// Width returns the session buffer width, or 0 before initialization.
func (e *Engine) Width() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return 0
	}
	return e.buffers.Width()
}

// Height returns the session buffer height, or 0 before initialization.
func (e *Engine) Height() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return 0
	}
	return e.buffers.Height()
}

// PerformRestore copies a circular disc of pixels from the original buffer
// into the preview. Coordinates are in image space; the center is clamped
// into bounds and the radius to at least 1.
func (e *Engine) PerformRestore(x, y, radius float64) {
	e.applyBrush(OpRestore, x, y, radius)
}

// PerformErase clears the alpha channel of a circular disc of preview pixels.
// RGB values are left untouched since only visibility changes.
func (e *Engine) PerformErase(x, y, radius float64) {
	e.applyBrush(OpErase, x, y, radius)
}

// PerformBrushOp applies a brush operation with pressure-adjusted radius
// (effective radius = round(radius * pressure), pressure in (0,1]) and
// opportunistically runs the rate-limited memory cleanup pass.
func (e *Engine) PerformBrushOp(op Op, x, y, radius, pressure float64) {
	if pressure <= 0 || pressure > 1 {
		pressure = 1
	}
	effective := float64(int(radius*pressure + 0.5))
	e.applyBrush(op, x, y, effective)
	e.maybeCleanup()
}

// applyBrush performs a single brush mutation. It reads the current preview
// pixels fresh, mutates the disc on a scratch copy, and writes the whole
// buffer back in one pass so per-stroke overhead stays bounded.
func (e *Engine) applyBrush(op Op, x, y, radius float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		log.Printf("layers: %s ignored, engine not initialized", op)
		return
	}

	w := e.buffers.Width()
	h := e.buffers.Height()

	cx := clampInt(int(x+0.5), 0, w-1)
	cy := clampInt(int(y+0.5), 0, h-1)
	r := int(radius)
	if r < 1 {
		r = 1
	}

	work := e.getScratch()
	copy(work, e.buffers.Preview.Pix)

	restore := op == OpRestore || op == OpSmartRestore
	smart := op == OpSmartRestore || op == OpSmartErase

	origPix := e.buffers.Original.Pix
	maskPix := e.buffers.Mask.Pix
	stride := e.buffers.Preview.Stride

	for _, d := range e.discs.offsets(r) {
		px := cx + d.X
		py := cy + d.Y
		if px < 0 || px >= w || py < 0 || py >= h {
			continue
		}
		if smart && !e.selector.Include(e.buffers, px, py) {
			continue
		}
		i := py*stride + px*4
		if restore {
			work[i+0] = origPix[i+0]
			work[i+1] = origPix[i+1]
			work[i+2] = origPix[i+2]
			work[i+3] = origPix[i+3]
		} else {
			work[i+3] = 0
		}
		maskPix[i+3] = 255
	}

	copy(e.buffers.Preview.Pix, work)
	e.putScratch(work)
}

// ResetPreview discards uncommitted edits by resetting the preview buffer to
// the processed contents. Also clears the touched-pixel mask.
func (e *Engine) ResetPreview() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		log.Printf("layers: reset ignored, engine not initialized")
		return
	}
	copy(e.buffers.Preview.Pix, e.buffers.Processed.Pix)
	for i := range e.buffers.Mask.Pix {
		e.buffers.Mask.Pix[i] = 0
	}
}

// ShowOriginalPreview toggles a temporary swap of what renders as the
// preview. The stored preview pixels are not modified.
func (e *Engine) ShowOriginalPreview(show bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.showOriginal = show
}

// Preview returns the buffer that should currently render as the edited
// result: the preview layer, or the original while peek is active. The
// returned image is a snapshot taken under the engine lock, so it stays
// consistent while brush strokes keep mutating the stored preview.
func (e *Engine) Preview() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil
	}
	if e.showOriginal {
		return cloneRGBA(e.buffers.Original)
	}
	return cloneRGBA(e.buffers.Preview)
}

// Original returns the immutable original buffer, or nil before
// initialization. Read-only.
func (e *Engine) Original() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil
	}
	return e.buffers.Original
}

// Processed returns the immutable processed buffer, or nil before
// initialization. Read-only.
func (e *Engine) Processed() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil
	}
	return e.buffers.Processed
}

// Mask returns a snapshot of the touched-pixel mask buffer, or nil before
// initialization.
func (e *Engine) Mask() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil
	}
	return cloneRGBA(e.buffers.Mask)
}

// OriginalColorAt returns the original buffer's color at image coordinates
// (x, y), clamped into bounds. Reports false before initialization.
func (e *Engine) OriginalColorAt(x, y int) (color.RGBA, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return color.RGBA{}, false
	}
	x = clampInt(x, 0, e.buffers.Width()-1)
	y = clampInt(y, 0, e.buffers.Height()-1)
	i := y*e.buffers.Original.Stride + x*4
	pix := e.buffers.Original.Pix
	return color.RGBA{R: pix[i], G: pix[i+1], B: pix[i+2], A: pix[i+3]}, true
}

// SnapshotPreview returns a deep copy of the stored preview buffer for
// history bookkeeping, or nil before initialization.
func (e *Engine) SnapshotPreview() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil
	}
	return cloneRGBA(e.buffers.Preview)
}

// RestorePreview overwrites the preview buffer with a history snapshot.
// The snapshot must match the session dimensions.
func (e *Engine) RestorePreview(snapshot *image.RGBA) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return fmt.Errorf("engine not initialized")
	}
	if snapshot == nil || len(snapshot.Pix) != len(e.buffers.Preview.Pix) {
		return fmt.Errorf("snapshot dimensions do not match session buffers")
	}
	copy(e.buffers.Preview.Pix, snapshot.Pix)
	return nil
}

// ExportPreview serializes the current preview buffer to a base64 PNG data
// URI. Returns an empty string when no buffer exists.
func (e *Engine) ExportPreview() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return "", nil
	}
	return EncodeDataURI(e.buffers.Preview)
}

// Cleanup evicts cached operation data down to capacity and releases scratch
// buffers. Safe to call at any time.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleanupLocked()
}

// maybeCleanup runs the cleanup pass if the rate-limit interval has elapsed.
func (e *Engine) maybeCleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if time.Since(e.lastCleanup) < cleanupInterval {
		return
	}
	e.cleanupLocked()
}

func (e *Engine) cleanupLocked() {
	e.discs.trim()
	e.scratch = sync.Pool{}
	e.lastCleanup = time.Now()
}

// getScratch returns a pooled scratch pixel buffer matching the preview size.
func (e *Engine) getScratch() []uint8 {
	n := len(e.buffers.Preview.Pix)
	if v := e.scratch.Get(); v != nil {
		buf := v.(*[]uint8)
		if len(*buf) == n {
			return *buf
		}
	}
	return make([]uint8, n)
}

func (e *Engine) putScratch(buf []uint8) {
	e.scratch.Put(&buf)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
