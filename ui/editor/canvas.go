// Package editor provides the interactive refinement canvas: brush strokes,
// pan, zoom, and view-mode display driven by the render engine.
package editor

import (
	"image"

	"charactercut/internal/app"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

const defaultZoomStep = 1.25

// Canvas displays the render engine's frame and translates pointer input
// into brush strokes or viewport panning.
type Canvas struct {
	widget.BaseWidget

	state    *app.State
	raster   *fynecanvas.Raster
	zoomStep float64

	dragging  bool
	lastDragX float32
	lastDragY float32

	// Callbacks
	onZoomChange func(zoom float64)
}

// NewCanvas creates the refinement canvas bound to the session state.
func NewCanvas(state *app.State) *Canvas {
	c := &Canvas{state: state, zoomStep: defaultZoomStep}

	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScalePixels
	c.raster.SetMinSize(fyne.NewSize(400, 300))

	// Redraw whenever the engine produces a new frame outside the draw path.
	state.Render.OnFrame(func() {
		c.raster.Refresh()
	})

	c.ExtendBaseWidget(c)
	return c
}

// draw is the raster callback. It keeps the viewport sized to the widget and
// hands back the engine's current frame.
func (c *Canvas) draw(w, h int) image.Image {
	c.state.Render.SetViewportSize(w, h)
	c.state.Render.Render()

	if frame := c.state.Render.Frame(); frame != nil {
		return frame
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// Dragged applies the active tool along the pointer path, or pans when the
// pan tool is selected.
func (c *Canvas) Dragged(ev *fyne.DragEvent) {
	if !c.dragging {
		c.dragging = true
		c.lastDragX = ev.Position.X
		c.lastDragY = ev.Position.Y
		if c.state.Tool() != app.ToolPan {
			c.state.BeginStroke()
		}
	}

	if c.state.Tool() == app.ToolPan {
		c.state.Render.Pan(float64(ev.Position.X-c.lastDragX), float64(ev.Position.Y-c.lastDragY))
		c.state.Render.ForceRender()
	} else {
		pt := c.state.Render.ScreenToImage(float64(ev.Position.X), float64(ev.Position.Y))
		c.state.ApplyBrush(pt.X, pt.Y, 1.0)
	}

	c.lastDragX = ev.Position.X
	c.lastDragY = ev.Position.Y
	c.raster.Refresh()
}

// DragEnd closes the current stroke.
func (c *Canvas) DragEnd() {
	c.dragging = false
}

// Tapped applies a single dab of the active tool.
func (c *Canvas) Tapped(ev *fyne.PointEvent) {
	if c.state.Tool() == app.ToolPan {
		return
	}
	c.state.BeginStroke()
	pt := c.state.Render.ScreenToImage(float64(ev.Position.X), float64(ev.Position.Y))
	c.state.ApplyBrush(pt.X, pt.Y, 1.0)
	c.raster.Refresh()
}

// Scrolled zooms with the mouse wheel.
func (c *Canvas) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		c.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		c.ZoomOut()
	}
}

// SetZoomStep overrides the wheel-zoom multiplier.
func (c *Canvas) SetZoomStep(step float64) {
	if step > 1 {
		c.zoomStep = step
	}
}

// ZoomIn increases the zoom level.
func (c *Canvas) ZoomIn() {
	c.setZoom(c.state.Render.Zoom() * c.zoomStep)
}

// ZoomOut decreases the zoom level.
func (c *Canvas) ZoomOut() {
	c.setZoom(c.state.Render.Zoom() / c.zoomStep)
}

// ActualSize resets zoom to 1:1 and recenters.
func (c *Canvas) ActualSize() {
	c.setZoom(1.0)
	c.state.Render.CenterImage()
	c.state.Render.ForceRender()
	c.raster.Refresh()
}

// Fit scales and centers the image to the viewport.
func (c *Canvas) Fit() {
	c.state.Render.FitToViewport(nil)
	c.state.Render.ForceRender()
	c.raster.Refresh()

	if c.onZoomChange != nil {
		c.onZoomChange(c.state.Render.Zoom())
	}
}

// OnZoomChange sets a callback for zoom changes.
func (c *Canvas) OnZoomChange(callback func(zoom float64)) {
	c.onZoomChange = callback
}

func (c *Canvas) setZoom(zoom float64) {
	c.state.Render.SetZoom(zoom)
	c.state.Render.ForceRender()
	c.raster.Refresh()

	if c.onZoomChange != nil {
		c.onZoomChange(c.state.Render.Zoom())
	}
}

// Refresh redraws the canvas.
func (c *Canvas) Refresh() {
	c.raster.Refresh()
	c.BaseWidget.Refresh()
}

// CreateRenderer implements fyne.Widget.
func (c *Canvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.raster)
}
