// Package main provides the entry point for the CharacterCut application.
package main

import (
	"context"
	"log"
	"os"
	"time"

	fyneapp "fyne.io/fyne/v2/app"

	"charactercut/internal/app"
	"charactercut/internal/removal"
	"charactercut/internal/version"
	"charactercut/ui/mainwindow"
	"charactercut/ui/prefs"
)

const appTitle = "CharacterCut"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Long())

	fyneApp := fyneapp.NewWithID("charactercut")
	fyneApp.Settings().SetTheme(&app.Theme{})

	remover := newRemover()
	state := app.NewState(remover)
	defer state.Destroy()

	appPrefs := prefs.Load()
	win := mainwindow.New(fyneApp, state, appPrefs)

	// Handle command line arguments
	if len(os.Args) > 1 {
		imagePath := os.Args[1]
		go func() {
			if err := state.LoadSession(context.Background(), imagePath); err != nil {
				log.Printf("Failed to load image %s: %v", imagePath, err)
			}
		}()
	}

	setupHotReload(win)

	win.Show()
	fyneApp.Run()

	win.SavePreferences()
}

// newRemover selects the removal backend. Without a configured endpoint the
// editor still works, it just starts from the unmodified source.
func newRemover() removal.Remover {
	if endpoint := os.Getenv("CHARACTERCUT_API"); endpoint != "" {
		log.Printf("Using removal service at %s", endpoint)
		return removal.NewClient(endpoint)
	}
	log.Println("No removal service configured, editing without automatic removal")
	return removal.NewPassthrough()
}

// setupHotReload configures automatic restart detection when the binary is recompiled.
func setupHotReload(win *mainwindow.MainWindow) {
	reloader := app.NewHotReloader(2 * time.Second)
	if reloader == nil {
		log.Println("Hot reload: unable to determine executable path")
		return
	}

	log.Printf("Hot reload: watching %s (modified %s)",
		reloader.ExecPath(), reloader.StartupTime().Format("15:04:05"))

	reloader.OnNewBinary(func() {
		log.Println("Hot reload: newer binary detected, restarting...")
		win.SavePreferences()
		if err := reloader.Restart(); err != nil {
			log.Printf("Hot reload: restart failed: %v", err)
		}
	})

	reloader.Start()
}
