// Package render provides the viewport and render engine: coordinate
// transforms between screen and image space, frame-budgeted render
// scheduling, view-mode compositing, and a degraded-mode fallback path.
package render

import (
	"log"
	"math"
	"time"

	"charactercut/pkg/geometry"
)

const (
	minZoomLevel = 0.1
	maxZoomLevel = 5.0

	// Continuous container resizes inside this window are dropped.
	resizeThrottle = 16 * time.Millisecond

	fitPaddingFraction = 0.02
	fitPaddingMax      = 32.0
	maxFitUpscale      = 2.0
)

// Viewport holds the render surface state: pan offset, zoom factor, and the
// logical surface dimensions. Zoom is always within [0.1, 5.0].
type Viewport struct {
	OffsetX       float64
	OffsetY       float64
	Zoom          float64
	LogicalWidth  int
	LogicalHeight int
}

// FitConstraints reserves surface space for surrounding UI when fitting the
// image; the effective available area excludes the reserved amounts.
type FitConstraints struct {
	ReservedWidth  float64
	ReservedHeight float64
}

// Viewport returns a copy of the current viewport state.
func (e *Engine) Viewport() Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

// SetViewportSize updates the logical surface size. Calls arriving within the
// throttle interval of the previous applied update are dropped, equal sizes
// are a no-op, and non-positive dimensions are rejected with the previous
// viewport retained.
func (e *Engine) SetViewportSize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if width <= 0 || height <= 0 {
		log.Printf("render: rejected viewport resize to %dx%d", width, height)
		return
	}
	if width == e.viewport.LogicalWidth && height == e.viewport.LogicalHeight {
		return
	}
	if time.Since(e.lastResize) < resizeThrottle {
		return
	}

	e.viewport.LogicalWidth = width
	e.viewport.LogicalHeight = height
	e.lastResize = time.Now()
	e.frame = nil
	e.dirty = true
}

// SetZoom sets the zoom factor, clamped to [0.1, 5.0], and marks the frame
// dirty.
func (e *Engine) SetZoom(zoom float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewport.Zoom = clampZoom(zoom)
	e.dirty = true
}

// Zoom returns the current zoom factor.
func (e *Engine) Zoom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport.Zoom
}

// Pan shifts the view offset by the given screen-space delta and marks the
// frame dirty.
func (e *Engine) Pan(dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewport.OffsetX += dx
	e.viewport.OffsetY += dy
	e.dirty = true
}

// FitToViewport computes a zoom so the image fits the available surface area
// minus a small padding, allows upscaling small images up to 2x, and centers
// the image. Constraints may reserve space for surrounding UI.
func (e *Engine) FitToViewport(constraints *FitConstraints) {
	e.mu.Lock()
	defer e.mu.Unlock()

	imgW, imgH := e.imageSizeLocked()
	if imgW == 0 || imgH == 0 {
		return
	}

	availW := float64(e.viewport.LogicalWidth)
	availH := float64(e.viewport.LogicalHeight)
	if constraints != nil {
		availW -= constraints.ReservedWidth
		availH -= constraints.ReservedHeight
	}
	if availW <= 0 || availH <= 0 {
		return
	}

	padding := fitPaddingFraction * math.Min(availW, availH)
	if padding > fitPaddingMax {
		padding = fitPaddingMax
	}
	availW -= padding
	availH -= padding

	zoom := math.Min(availW/float64(imgW), availH/float64(imgH))
	if zoom > maxFitUpscale {
		zoom = maxFitUpscale
	}
	e.viewport.Zoom = clampZoom(zoom)
	e.centerLocked()
	e.dirty = true
}

// CenterImage recomputes the offset so the scaled image is centered in the
// logical viewport.
func (e *Engine) CenterImage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.centerLocked()
	e.dirty = true
}

func (e *Engine) centerLocked() {
	imgW, imgH := e.imageSizeLocked()
	e.viewport.OffsetX = (float64(e.viewport.LogicalWidth) - float64(imgW)*e.viewport.Zoom) / 2
	e.viewport.OffsetY = (float64(e.viewport.LogicalHeight) - float64(imgH)*e.viewport.Zoom) / 2
}

// ScreenToImage converts a screen-space point to image space by applying the
// inverse viewport transform.
func (e *Engine) ScreenToImage(sx, sy float64) geometry.Point2D {
	e.mu.Lock()
	forward := newViewTransform(e.viewport.Zoom, e.viewport.OffsetX, e.viewport.OffsetY)
	e.mu.Unlock()

	inv, err := forward.inverse()
	if err != nil {
		log.Printf("render: %v", err)
		return geometry.Point2D{}
	}
	x, y := inv.apply(sx, sy)
	return geometry.Point2D{X: x, Y: y}
}

// ImageToScreen converts an image-space point to screen space by applying the
// forward viewport transform. Exact inverse of ScreenToImage.
func (e *Engine) ImageToScreen(ix, iy float64) geometry.Point2D {
	e.mu.Lock()
	forward := newViewTransform(e.viewport.Zoom, e.viewport.OffsetX, e.viewport.OffsetY)
	e.mu.Unlock()

	x, y := forward.apply(ix, iy)
	return geometry.Point2D{X: x, Y: y}
}

func clampZoom(z float64) float64 {
	if z < minZoomLevel {
		return minZoomLevel
	}
	if z > maxZoomLevel {
		return maxZoomLevel
	}
	return z
}
