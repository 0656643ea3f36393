//go:build !windows

package app

import (
	"os"
	"syscall"

	"github.com/gdamore/tcell/v2"
	statepkg "github.com/kk-code-lab/rthumb/internal/state"
	"go.uber.org/zap"
)

// resumeSignals are delivered when the shell brings the process back.
func resumeSignals() []os.Signal {
	return []os.Signal{syscall.SIGCONT}
}

func (app *Application) suspendToShell() {
	if err := app.screen.Suspend(); err != nil {
		app.ctx.Logger.Warn("suspend failed", zap.Error(err))
		return
	}
	// Stop only this process; signalling the process group would also stop
	// a wrapping shell function and break `fg`.
	_ = syscall.Kill(syscall.Getpid(), syscall.SIGTSTP)
}

func (app *Application) resumeAfterStop() bool {
	if err := app.screen.Resume(); err != nil {
		return false
	}
	// Re-enable mouse reporting after resume
	app.screen.EnableMouse()
	app.screen.Sync()
	_ = app.screen.PostEvent(tcell.NewEventInterrupt("resume"))
	if w, h := app.screen.Size(); w > 0 && h > 0 {
		_, _ = app.reducer.Reduce(app.state, statepkg.ResizeAction{Width: w, Height: h})
		app.syncThumbnails()
	}
	return true
}
