package app

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	fsutil "github.com/kk-code-lab/rthumb/internal/fs"
	statepkg "github.com/kk-code-lab/rthumb/internal/state"
	inputui "github.com/kk-code-lab/rthumb/internal/ui/input"
	renderui "github.com/kk-code-lab/rthumb/internal/ui/render"
	"go.uber.org/zap"
)

// Application represents the running app.
type Application struct {
	ctx        *Context
	screen     tcell.Screen
	state      *statepkg.AppState
	reducer    *statepkg.StateReducer
	renderer   *renderui.Renderer
	input      *inputui.InputHandler
	actionCh   chan statepkg.Action
	thumbs     *thumbnailScheduler
	shouldQuit bool
	now        func() time.Time

	// Last folder and selection the scheduler was told about.
	lastFolder   *fsutil.Item
	lastSelected *fsutil.Item

	lastClickIndex int
	lastClickTime  time.Time
}

// NewApplication initialises screen and opens the configured start folder.
func NewApplication(ctx *Context, screen tcell.Screen) (*Application, error) {
	flushPendingInput()
	if err := screen.Init(); err != nil {
		return nil, err
	}
	// Parse mouse sequences so modified clicks don't leak as key events.
	screen.EnableMouse()

	state := &statepkg.AppState{ShowHidden: ctx.Config.ShowHidden}
	state.ScreenWidth, state.ScreenHeight = screen.Size()

	folder := ctx.FS.ItemFromPath(ctx.Config.StartPath)
	if folder == nil {
		screen.Fini()
		return nil, fmt.Errorf("cannot open %s: not found", ctx.Config.StartPath)
	}
	if err := statepkg.LoadFolder(state, folder); err != nil {
		screen.Fini()
		return nil, err
	}

	actionCh := make(chan statepkg.Action, 10)
	app := &Application{
		ctx:            ctx,
		screen:         screen,
		state:          state,
		reducer:        statepkg.NewStateReducer(ctx.FS),
		renderer:       renderui.NewRenderer(screen),
		input:          inputui.NewInputHandler(actionCh),
		actionCh:       actionCh,
		thumbs:         newThumbnailScheduler(ctx),
		now:            time.Now,
		lastClickIndex: -1,
	}
	app.syncThumbnails()
	return app, nil
}

// Close stops listening for cache removals and abandons queued thumbnails.
func (app *Application) Close() error {
	app.thumbs.Reset()
	app.thumbs.close()
	return nil
}

// CurrentPath returns the open folder.
func (app *Application) CurrentPath() string {
	return app.state.CurrentPath()
}

// syncThumbnails tells the scheduler what is on screen. Leaving a folder
// abandons the work queued for it.
func (app *Application) syncThumbnails() {
	if app.state.Folder != app.lastFolder {
		app.thumbs.Reset()
		app.lastFolder = app.state.Folder
		app.lastSelected = nil
		app.ctx.Logger.Debug("folder opened", zap.String("path", app.state.CurrentPath()), zap.Int("items", len(app.state.Items)))
	}

	app.thumbs.Request(app.state.VisibleItems())
	if current := app.state.CurrentItem(); current != app.lastSelected {
		app.lastSelected = current
		app.thumbs.Select(current)
	}
	app.updateThumbnailStatus()
}

func (app *Application) tickThumbnails() {
	app.thumbs.Tick()
	app.updateThumbnailStatus()
}

func (app *Application) updateThumbnailStatus() {
	gen := app.ctx.Thumbnails
	app.state.Thumbnails = statepkg.ThumbnailStatus{
		Live:   gen.LiveWorkers(),
		Max:    gen.MaxWorkers(),
		Queued: gen.QueueLen() + app.thumbs.Pending(),
	}
}
