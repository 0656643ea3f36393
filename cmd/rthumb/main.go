package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	apppkg "github.com/kk-code-lab/rthumb/internal/app"
	"github.com/kk-code-lab/rthumb/internal/config"
	"go.uber.org/zap"
)

const shutdownTimeout = 2 * time.Second

func printHelp() {
	fmt.Print(`rthumb - Terminal image browser with background thumbnails

USAGE:
    rthumb [OPTIONS] [FOLDER]

OPTIONS:
    -h, --help                Show this help message and exit
    -a, --all                 Show hidden files
    --workers=N               Thumbnail workers (default: CPUs - 1)
    --metrics-addr=ADDR       Serve Prometheus metrics on ADDR

ENVIRONMENT:
    RTHUMB_LOG_FILE           Write logs to this file (default: no logs)
    RTHUMB_LOG_LEVEL          debug, info, warn or error (default: info)
    RTHUMB_LOG_FORMAT         json or console (default: json)
    RTHUMB_WORKERS            Same as --workers
    RTHUMB_METRICS_ADDR       Same as --metrics-addr
    RTHUMB_SHOW_HIDDEN        Same as --all
`)
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printHelp()
		return 2
	}
	if cfg.ShowHelp {
		printHelp()
		return 0
	}

	// Set UTF-8 as fallback encoding for maximum compatibility
	tcell.SetEncodingFallback(tcell.EncodingFallbackUTF8)

	appCtx, err := apppkg.NewContext(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing application: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = appCtx.Close(ctx)
	}()

	serveCtx, stopServing := context.WithCancel(context.Background())
	defer stopServing()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := appCtx.Metrics.Serve(serveCtx, cfg.MetricsAddr); err != nil {
				appCtx.Logger.Error("metrics endpoint failed", zap.String("addr", cfg.MetricsAddr), zap.Error(err))
			}
		}()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing terminal: %v\n", err)
		return 1
	}

	app, err := apppkg.NewApplication(appCtx, screen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing application: %v\n", err)
		return 1
	}
	defer func() {
		_ = app.Close()
	}()

	app.Run()
	appCtx.Logger.Info("session ended", zap.String("folder", app.CurrentPath()))
	return 0
}
