package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/vkngwrapper/meshviewer/internal/app"
	"github.com/vkngwrapper/meshviewer/internal/config"
	"github.com/vkngwrapper/meshviewer/internal/logging"
)

func main() {
	// SDL and the presentation engine want the main thread.
	runtime.LockOSThread()

	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := app.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("%+v\n", err)
	}
}
