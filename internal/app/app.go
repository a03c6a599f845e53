// Package app wires the window, the assets and the renderer together and
// runs the main loop until the window closes or the context is cancelled.
package app

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/meshviewer/internal/config"
	"github.com/vkngwrapper/meshviewer/internal/frame"
	"github.com/vkngwrapper/meshviewer/internal/logging"
	"github.com/vkngwrapper/meshviewer/internal/platform"
)

// Window is the part of *platform.Window the loop drives.
type Window interface {
	Poll() platform.Events
	Minimized() bool
	Idle()
}

// Ticker is the part of *frame.Scheduler the loop drives.
type Ticker interface {
	Tick() (frame.Outcome, error)
	NotifyResized()
}

// Run opens the window, loads the assets, builds the renderer and draws
// until the user quits or ctx is cancelled. Shutdown always waits for the
// device before anything is released.
func Run(ctx context.Context, cfg config.Config) (err error) {
	err = cfg.Validate()
	if err != nil {
		return err
	}

	window, err := platform.Open(cfg.Title, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer window.Close()

	assets, err := LoadAssets(ctx, osFS{}, cfg)
	if err != nil {
		return err
	}

	r, err := newRenderer(window, assets, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownErr := r.shutdown()
		if err == nil {
			err = shutdownErr
		}
	}()

	info := r.ctx.Info()
	logging.Logger().Info("renderer ready", "device", info.Name, "pipelineCacheSeeded", r.cache.Seeded)

	return Loop(ctx, window, r.scheduler)
}

// Loop polls window events and ticks once per iteration. Nothing is drawn
// while the window is minimized.
func Loop(ctx context.Context, window Window, ticker Ticker) error {
	rendering := !window.Minimized()

	for {
		select {
		case <-ctx.Done():
			logging.Logger().Info("shutting down", "reason", context.Cause(ctx))
			return nil
		default:
		}

		events := window.Poll()
		if events.Quit {
			logging.Logger().Info("shutting down", "reason", "window closed")
			return nil
		}
		if events.Minimized {
			rendering = false
		}
		if events.Restored {
			rendering = true
		}
		if events.Resized {
			ticker.NotifyResized()
		}

		if !rendering {
			window.Idle()
			continue
		}

		outcome, err := ticker.Tick()
		if err != nil {
			return errors.Wrap(err, "failed to draw frame")
		}
		if outcome.Kind == frame.OutcomeStale {
			logging.Logger().Debug("skipped stale frame", "rebuilt", outcome.Rebuilt)
		}
	}
}
