// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"path/filepath"
	"strings"

	"charactercut/internal/app"
	"charactercut/internal/render"
	"charactercut/internal/version"
	"charactercut/ui/editor"
	"charactercut/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const prefKeyLastDir = "lastDirectory"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *editor.Canvas
	toolbar   *editor.Toolbar
	statusBar *widget.Label
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("CharacterCut")

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.restorePreferences()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = editor.NewCanvas(mw.state)
	mw.toolbar = editor.NewToolbar(mw.state)
	mw.statusBar = widget.NewLabel("Ready")

	mw.canvas.OnZoomChange(func(zoom float64) {
		mw.updateStatus(editor.StatusText(zoom))
	})

	content := container.NewBorder(
		mw.toolbar.Container(),            // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.canvas,                         // center
	)

	mw.SetContent(content)
	mw.Resize(fyne.NewSize(1024, 768))
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Cutout...", mw.onExportCutout),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", func() { mw.state.Undo() }),
		fyne.NewMenuItem("Redo", func() { mw.state.Redo() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reset Edits", func() { mw.state.ResetPreview() }),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.canvas.ZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.canvas.ZoomOut),
		fyne.NewMenuItem("Fit to Window", mw.canvas.Fit),
		fyne.NewMenuItem("Actual Size", mw.canvas.ActualSize),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mainMenu := fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu)
	mw.SetMainMenu(mainMenu)
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventSessionLoaded, func(data interface{}) {
		if path, ok := data.(string); ok && path != "" {
			mw.SetTitle("CharacterCut - " + filepath.Base(path))
			mw.updateStatus("Loaded: " + path)
		} else {
			mw.updateStatus("Session loaded")
		}
		mw.canvas.Fit()
	})

	mw.state.On(app.EventModified, func(data interface{}) {
		if modified, ok := data.(bool); ok && modified {
			title := mw.Title()
			if !strings.HasSuffix(title, "*") {
				mw.SetTitle(title + " *")
			}
		}
	})

	mw.state.On(app.EventToolChanged, func(data interface{}) {
		if tool, ok := data.(app.Tool); ok {
			mw.prefs.SetString(prefs.KeyLastTool, tool.String())
			mw.updateStatus("Tool: " + tool.String())
		}
	})

	mw.state.On(app.EventExportReady, func(interface{}) {
		mw.updateStatus("Cutout exported")
	})
}

// restorePreferences applies stored brush size and tool selection.
func (mw *MainWindow) restorePreferences() {
	if size := mw.prefs.Float(prefs.KeyBrushSize); size > 0 {
		mw.state.SetBrushRadius(size)
	}
	mw.canvas.SetZoomStep(mw.prefs.FloatWithFallback(prefs.KeyZoomStep, 1.25))
	if mode := mw.prefs.String(prefs.KeyViewMode); mode != "" {
		for _, m := range []render.ViewMode{render.ModeProcessed, render.ModeOriginal, render.ModeComparison} {
			if m.String() == mode {
				mw.state.SetViewMode(m)
				break
			}
		}
	}
	if last := mw.prefs.String(prefs.KeyLastTool); last != "" {
		for _, t := range []app.Tool{app.ToolRestore, app.ToolErase, app.ToolSmartRestore, app.ToolSmartErase, app.ToolPan} {
			if t.String() == last {
				mw.state.SetTool(t)
				break
			}
		}
	}
}

// SavePreferences persists session UI settings. Called on shutdown.
func (mw *MainWindow) SavePreferences() {
	mw.prefs.SetFloat(prefs.KeyBrushSize, mw.state.BrushRadius())
	mw.prefs.SetString(prefs.KeyLastTool, mw.state.Tool().String())
	mw.prefs.SetString(prefs.KeyViewMode, mw.state.Render.ViewMode().String())
	if err := mw.prefs.Save(); err != nil {
		mw.updateStatus("Failed to save preferences: " + err.Error())
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	dir := filepath.Dir(filePath)
	mw.app.Preferences().SetString(prefKeyLastDir, dir)
}

// Menu action handlers

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		_ = reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)

		mw.updateStatus("Removing background...")
		go func() {
			if err := mw.state.LoadSession(context.Background(), path); err != nil {
				dialog.ShowError(err, mw.Window)
				mw.updateStatus("Ready")
			}
		}()
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".tiff", ".tif"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportCutout() {
	uri, err := mw.state.ExportCutout()
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer func() {
			_ = writer.Close()
		}()

		raw, err := editor.DataURIBytes(uri)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if _, err := writer.Write(raw); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.saveLastDir(writer.URI().Path())
		mw.updateStatus("Saved: " + writer.URI().Path())
	}, mw.Window)
	fd.SetFileName("cutout.png")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About",
		"CharacterCut "+version.Version+"\nInteractive background-removal refinement.",
		mw.Window)
}
