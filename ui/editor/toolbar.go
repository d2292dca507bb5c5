package editor

import (
	"fmt"

	"charactercut/internal/app"
	"charactercut/internal/render"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// Toolbar holds the tool buttons, brush-size slider, and view-mode switches.
type Toolbar struct {
	state *app.State

	toolRadio *widget.RadioGroup
	modeRadio *widget.RadioGroup
	slider    *widget.Slider
	undoBtn   *widget.Button
	redoBtn   *widget.Button
	container fyne.CanvasObject
}

var toolLabels = []string{
	app.ToolRestore.String(),
	app.ToolErase.String(),
	app.ToolSmartRestore.String(),
	app.ToolSmartErase.String(),
	app.ToolPan.String(),
}

var toolByLabel = map[string]app.Tool{
	app.ToolRestore.String():      app.ToolRestore,
	app.ToolErase.String():        app.ToolErase,
	app.ToolSmartRestore.String(): app.ToolSmartRestore,
	app.ToolSmartErase.String():   app.ToolSmartErase,
	app.ToolPan.String():          app.ToolPan,
}

var modeLabels = []string{"Result", "Original", "Compare"}

var modeByLabel = map[string]render.ViewMode{
	"Result":   render.ModeProcessed,
	"Original": render.ModeOriginal,
	"Compare":  render.ModeComparison,
}

// NewToolbar creates the editing toolbar bound to the session state.
func NewToolbar(state *app.State) *Toolbar {
	t := &Toolbar{state: state}

	t.toolRadio = widget.NewRadioGroup(toolLabels, func(label string) {
		if tool, ok := toolByLabel[label]; ok {
			state.SetTool(tool)
		}
	})
	t.toolRadio.Horizontal = true
	t.toolRadio.SetSelected(state.Tool().String())

	t.slider = widget.NewSlider(1, 100)
	t.slider.Value = state.BrushRadius()
	t.slider.OnChanged = func(v float64) {
		state.SetBrushRadius(v)
	}

	t.modeRadio = widget.NewRadioGroup(modeLabels, func(label string) {
		if mode, ok := modeByLabel[label]; ok {
			state.SetViewMode(mode)
		}
	})
	t.modeRadio.Horizontal = true
	t.modeRadio.SetSelected("Result")

	t.undoBtn = widget.NewButton("Undo", func() { state.Undo() })
	t.redoBtn = widget.NewButton("Redo", func() { state.Redo() })
	resetBtn := widget.NewButton("Reset", func() { state.ResetPreview() })

	peek := newHoldButton("Peek", func(held bool) {
		state.PeekOriginal(held)
	})

	t.refreshHistoryButtons()
	state.On(app.EventHistoryChanged, func(interface{}) {
		t.refreshHistoryButtons()
	})
	state.On(app.EventToolChanged, func(data interface{}) {
		if tool, ok := data.(app.Tool); ok && t.toolRadio.Selected != tool.String() {
			t.toolRadio.SetSelected(tool.String())
		}
	})
	state.On(app.EventViewModeChanged, func(data interface{}) {
		mode, ok := data.(render.ViewMode)
		if !ok {
			return
		}
		for label, m := range modeByLabel {
			if m == mode && t.modeRadio.Selected != label {
				t.modeRadio.SetSelected(label)
				return
			}
		}
	})

	t.container = container.NewVBox(
		container.NewHBox(
			widget.NewLabel("Tool:"),
			t.toolRadio,
			t.undoBtn,
			t.redoBtn,
			resetBtn,
			peek,
		),
		container.NewBorder(nil, nil,
			widget.NewLabel("Brush:"),
			container.NewHBox(widget.NewLabel("View:"), t.modeRadio),
			t.slider,
		),
	)
	return t
}

// Container returns the toolbar for embedding in layouts.
func (t *Toolbar) Container() fyne.CanvasObject {
	return t.container
}

func (t *Toolbar) refreshHistoryButtons() {
	if t.state.History.CanUndo() {
		t.undoBtn.Enable()
	} else {
		t.undoBtn.Disable()
	}
	if t.state.History.CanRedo() {
		t.redoBtn.Enable()
	} else {
		t.redoBtn.Disable()
	}
}

// holdButton fires its callback with true on press and false on release, for
// hold-to-peek behavior that a plain tap button cannot express.
type holdButton struct {
	widget.Button
	onHold func(held bool)
}

func newHoldButton(label string, onHold func(held bool)) *holdButton {
	b := &holdButton{onHold: onHold}
	b.Text = label
	b.ExtendBaseWidget(b)
	return b
}

func (b *holdButton) MouseDown(_ *desktop.MouseEvent) {
	b.onHold(true)
}

func (b *holdButton) MouseUp(_ *desktop.MouseEvent) {
	b.onHold(false)
}

// Tapped swallows the click so the base button does not fire.
func (b *holdButton) Tapped(_ *fyne.PointEvent) {}

// StatusText formats the zoom level for the status bar.
func StatusText(zoom float64) string {
	return fmt.Sprintf("Zoom: %.0f%%", zoom*100)
}
