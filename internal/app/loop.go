package app

import (
	"os"
	"os/signal"
	"time"

	"github.com/gdamore/tcell/v2"
	statepkg "github.com/kk-code-lab/rthumb/internal/state"
	renderui "github.com/kk-code-lab/rthumb/internal/ui/render"
	"go.uber.org/zap"
)

const doubleClickThreshold = 300 * time.Millisecond

// Run processes events until the user quits. The monitoring timer is armed
// only while thumbnail work is outstanding.
func (app *Application) Run() {
	defer app.screen.Fini()

	app.renderer.Render(app.state)
	renderPending := false

	done := make(chan struct{})
	defer close(done)
	eventChan := make(chan tcell.Event)
	go func() {
		for {
			ev := app.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-done:
				return
			}
		}
	}()

	var sigContCh chan os.Signal
	if sigs := resumeSignals(); len(sigs) > 0 {
		sigContCh = make(chan os.Signal, 1)
		signal.Notify(sigContCh, sigs...)
		defer signal.Stop(sigContCh)
	}

	var monitorTimer *time.Timer
	var monitorCh <-chan time.Time

	startMonitor := func() {
		if monitorCh != nil {
			return
		}
		if monitorTimer == nil {
			monitorTimer = time.NewTimer(monitorInterval)
		} else {
			monitorTimer.Reset(monitorInterval)
		}
		monitorCh = monitorTimer.C
	}

	stopMonitor := func() {
		if monitorTimer == nil {
			return
		}
		if !monitorTimer.Stop() {
			select {
			case <-monitorTimer.C:
			default:
			}
		}
		monitorCh = nil
	}

	for !app.shouldQuit {
		if renderPending {
			app.renderer.Render(app.state)
			renderPending = false
		}

		if app.thumbs.Active() {
			startMonitor()
		} else {
			stopMonitor()
		}

		select {
		case ev := <-eventChan:
			if app.handleEvent(ev) {
				renderPending = true
			}
		case <-monitorCh:
			monitorCh = nil
			app.tickThumbnails()
			renderPending = true
		case action := <-app.actionCh:
			if app.handleAction(action) {
				renderPending = true
			}
		case <-sigContCh:
			if app.resumeAfterStop() {
				renderPending = true
			}
		}

		if app.processActions() {
			renderPending = true
		}
	}

	stopMonitor()
}

func (app *Application) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey, *tcell.EventResize:
		if !app.input.ProcessEvent(ev) {
			app.shouldQuit = true
		}
	case *tcell.EventMouse:
		app.handleMouse(ev)
	case *tcell.EventInterrupt:
		return true
	default:
		return false
	}
	return true
}

// handleMouse maps wheel scrolling to navigation, primary clicks to selection
// and double clicks to opening.
func (app *Application) handleMouse(ev *tcell.EventMouse) {
	buttons := ev.Buttons()
	switch {
	case buttons&tcell.WheelUp != 0:
		app.actionCh <- statepkg.NavigateUpAction{}
		return
	case buttons&tcell.WheelDown != 0:
		app.actionCh <- statepkg.NavigateDownAction{}
		return
	case buttons&tcell.Button1 == 0:
		return
	}

	x, y := ev.Position()
	if x >= renderui.ListWidth(app.state.ScreenWidth) {
		return
	}
	idx := app.state.ItemIndexAtRow(y)
	if idx < 0 {
		return
	}

	now := app.now()
	doubleClick := idx == app.lastClickIndex && now.Sub(app.lastClickTime) <= doubleClickThreshold
	app.lastClickIndex = idx
	app.lastClickTime = now

	app.actionCh <- statepkg.SelectIndexAction{Index: idx}
	if doubleClick {
		app.actionCh <- statepkg.EnterFolderAction{}
		app.lastClickIndex = -1
	}
}

func (app *Application) processActions() bool {
	changed := false
	for {
		select {
		case action := <-app.actionCh:
			if app.handleAction(action) {
				changed = true
			}
		default:
			return changed
		}
	}
}

func (app *Application) handleAction(action statepkg.Action) bool {
	if action == nil {
		return false
	}

	switch action.(type) {
	case statepkg.QuitAction:
		app.shouldQuit = true
		return false
	case statepkg.SuspendAction:
		app.suspendToShell()
		app.resumeAfterStop()
		return true
	}

	if _, err := app.reducer.Reduce(app.state, action); err != nil {
		app.state.LastError = err
		app.ctx.Logger.Warn("action failed", zap.String("action", actionName(action)), zap.Error(err))
	}
	app.syncThumbnails()
	return true
}

func actionName(action statepkg.Action) string {
	switch action.(type) {
	case statepkg.EnterFolderAction:
		return "enter"
	case statepkg.GoUpAction:
		return "up"
	case statepkg.GoToPathAction:
		return "goto"
	case statepkg.RefreshAction:
		return "refresh"
	default:
		return "other"
	}
}
