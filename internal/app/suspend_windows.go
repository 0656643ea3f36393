//go:build windows

package app

import "os"

func resumeSignals() []os.Signal { return nil }

// Windows consoles have no job control.
func (app *Application) suspendToShell() {
	app.ctx.Logger.Debug("suspend ignored on windows")
}

func (app *Application) resumeAfterStop() bool {
	return false
}
