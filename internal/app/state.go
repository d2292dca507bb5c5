// Package app provides application lifecycle management, session state, and events.
package app

import (
	"context"
	"fmt"
	goimage "image"
	"image/draw"
	"os"
	"sync"

	"charactercut/internal/history"
	"charactercut/internal/layers"
	"charactercut/internal/pixelproc"
	"charactercut/internal/removal"
	"charactercut/internal/render"
)

// Tool identifies the active brush tool.
type Tool int

const (
	ToolRestore Tool = iota
	ToolErase
	ToolSmartRestore
	ToolSmartErase
	ToolPan
)

func (t Tool) String() string {
	switch t {
	case ToolRestore:
		return "Restore"
	case ToolErase:
		return "Erase"
	case ToolSmartRestore:
		return "Smart Restore"
	case ToolSmartErase:
		return "Smart Erase"
	case ToolPan:
		return "Pan"
	default:
		return "Unknown"
	}
}

// EventType identifies different application events.
type EventType int

const (
	EventSessionLoaded EventType = iota
	EventToolChanged
	EventViewModeChanged
	EventHistoryChanged
	EventModified
	EventExportReady
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// DefaultBrushRadius is the stroke radius until the user adjusts the slider.
const DefaultBrushRadius = 20.0

// Refiner is implemented by removers that can re-upload a corrected cutout.
type Refiner interface {
	Refine(ctx context.Context, img goimage.Image) (goimage.Image, error)
}

// State holds the editing session: the layer and render engines, the pixel
// worker service, undo history, and the removal collaborator. Every instance
// is self-contained; Destroy releases its workers.
type State struct {
	mu sync.RWMutex

	// Session
	SourcePath string
	Modified   bool

	tool         Tool
	brushRadius  float64
	strokePrimed bool

	Layers  *layers.Engine
	Render  *render.Engine
	Pixels  *pixelproc.Service
	History *history.Stack
	Remover removal.Remover

	// Event listeners
	listeners map[EventType][]EventListener
}

// NewState creates a new session state around the given remover.
func NewState(remover removal.Remover) *State {
	le := layers.NewEngine()
	return &State{
		tool:        ToolRestore,
		brushRadius: DefaultBrushRadius,
		Layers:      le,
		Render:      render.NewEngine(le, 800, 600),
		Pixels:      pixelproc.NewService(0),
		History:     history.NewStack(0),
		Remover:     remover,
		listeners:   make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the session as modified and emits an event on change.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	changed := s.Modified != modified
	s.Modified = modified
	s.mu.Unlock()
	if changed {
		s.Emit(EventModified, modified)
	}
}

// LoadSession reads a source image from disk, runs background removal on it,
// and initializes the engines with the original/processed pair.
func (s *State) LoadSession(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	original, _, err := goimage.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	if err := s.beginSession(ctx, original); err != nil {
		return err
	}

	s.mu.Lock()
	s.SourcePath = path
	s.mu.Unlock()
	s.Emit(EventSessionLoaded, path)
	return nil
}

// LoadSessionImage initializes a session from an already decoded image.
func (s *State) LoadSessionImage(ctx context.Context, original goimage.Image) error {
	if err := s.beginSession(ctx, original); err != nil {
		return err
	}
	s.Emit(EventSessionLoaded, "")
	return nil
}

func (s *State) beginSession(ctx context.Context, original goimage.Image) error {
	processed, err := s.Remover.Remove(ctx, original)
	if err != nil {
		return fmt.Errorf("failed to remove background: %w", err)
	}
	if err := s.Layers.InitializeImages(original, processed); err != nil {
		return fmt.Errorf("failed to initialize layers: %w", err)
	}

	s.History.Clear()
	s.Render.FitToViewport(nil)
	s.Render.ForceRender()
	s.SetModified(false)
	s.Emit(EventHistoryChanged, nil)
	return nil
}

// Tool returns the active tool.
func (s *State) Tool() Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool
}

// SetTool switches the active tool and emits an event.
func (s *State) SetTool(t Tool) {
	s.mu.Lock()
	changed := s.tool != t
	s.tool = t
	s.mu.Unlock()
	if changed {
		s.Emit(EventToolChanged, t)
	}
}

// BrushRadius returns the stroke radius in image pixels.
func (s *State) BrushRadius() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brushRadius
}

// SetBrushRadius adjusts the stroke radius.
func (s *State) SetBrushRadius(r float64) {
	if r < 1 {
		r = 1
	}
	s.mu.Lock()
	s.brushRadius = r
	s.mu.Unlock()
}

// SetViewMode switches the render mode and emits an event.
func (s *State) SetViewMode(mode render.ViewMode) {
	s.Render.SetViewMode(mode)
	s.Emit(EventViewModeChanged, mode)
}

// BeginStroke snapshots the preview so the stroke can be undone as a unit,
// and primes the smart tools to reseed their selector from the first point.
func (s *State) BeginStroke() {
	if !s.Layers.Ready() {
		return
	}
	s.History.Push(s.Layers.SnapshotPreview())
	s.mu.Lock()
	s.strokePrimed = true
	s.mu.Unlock()
	s.Emit(EventHistoryChanged, nil)
}

// takeStrokePrime consumes the begin-of-stroke flag set by BeginStroke.
func (s *State) takeStrokePrime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	primed := s.strokePrimed
	s.strokePrimed = false
	return primed
}

// ApplyBrush applies the active tool at image coordinates (x, y). Pan is
// handled by the viewport, not here.
func (s *State) ApplyBrush(x, y, pressure float64) {
	tool := s.Tool()
	if tool == ToolPan || !s.Layers.Ready() {
		return
	}

	var op layers.Op
	switch tool {
	case ToolErase:
		op = layers.OpErase
	case ToolSmartRestore:
		op = layers.OpSmartRestore
	case ToolSmartErase:
		op = layers.OpSmartErase
	default:
		op = layers.OpRestore
	}

	// Smart strokes key off the original color under the first point.
	if op == layers.OpSmartRestore || op == layers.OpSmartErase {
		if s.takeStrokePrime() {
			if seed, ok := s.Layers.OriginalColorAt(int(x+0.5), int(y+0.5)); ok {
				s.Layers.SetSelector(layers.NewColorSimilaritySelector(seed))
			}
		}
	}

	s.Layers.PerformBrushOp(op, x, y, s.BrushRadius(), pressure)
	s.Render.MarkDirty()
	s.Render.Render()
	s.SetModified(true)
}

// Undo restores the most recent stroke snapshot.
func (s *State) Undo() bool {
	snapshot := s.History.Undo(s.Layers.SnapshotPreview())
	if snapshot == nil {
		return false
	}
	if err := s.Layers.RestorePreview(snapshot); err != nil {
		return false
	}
	s.Render.ForceRender()
	s.SetModified(true)
	s.Emit(EventHistoryChanged, nil)
	return true
}

// Redo reapplies the most recently undone stroke.
func (s *State) Redo() bool {
	snapshot := s.History.Redo(s.Layers.SnapshotPreview())
	if snapshot == nil {
		return false
	}
	if err := s.Layers.RestorePreview(snapshot); err != nil {
		return false
	}
	s.Render.ForceRender()
	s.SetModified(true)
	s.Emit(EventHistoryChanged, nil)
	return true
}

// ResetPreview rewinds all manual edits back to the processed result. The
// pre-reset state is pushed to history so the reset itself is undoable.
func (s *State) ResetPreview() {
	if !s.Layers.Ready() {
		return
	}
	s.History.Push(s.Layers.SnapshotPreview())
	s.Layers.ResetPreview()
	s.Render.ForceRender()
	s.SetModified(true)
	s.Emit(EventHistoryChanged, nil)
}

// PeekOriginal toggles showing the unedited source while a button is held.
func (s *State) PeekOriginal(show bool) {
	s.Layers.ShowOriginalPreview(show)
	s.Render.ForceRender()
}

// ExportCutout serializes the current result as a base64 PNG data URI and
// emits it to export listeners.
func (s *State) ExportCutout() (string, error) {
	uri, err := s.Render.ExportProcessedImage()
	if err != nil {
		return "", err
	}
	s.Emit(EventExportReady, uri)
	return uri, nil
}

// RefinePreview uploads the corrected preview to the removal service and
// replaces the preview with the service's response.
func (s *State) RefinePreview(ctx context.Context) error {
	refiner, ok := s.Remover.(Refiner)
	if !ok {
		return fmt.Errorf("remover does not support refinement")
	}
	preview := s.Layers.Preview()
	if preview == nil {
		return fmt.Errorf("no preview to refine")
	}

	refined, err := refiner.Refine(ctx, preview)
	if err != nil {
		return fmt.Errorf("failed to refine preview: %w", err)
	}

	rgba := goimage.NewRGBA(goimage.Rect(0, 0, refined.Bounds().Dx(), refined.Bounds().Dy()))
	draw.Draw(rgba, rgba.Bounds(), refined, refined.Bounds().Min, draw.Src)
	if err := s.Layers.RestorePreview(rgba); err != nil {
		return fmt.Errorf("failed to apply refined preview: %w", err)
	}
	s.Render.ForceRender()
	return nil
}

// Destroy releases the worker pool. The state must not be used afterwards.
func (s *State) Destroy() {
	s.Pixels.Destroy()
}
