// Package app wires the engine's components together and manages the
// application lifecycle: feeds in, evaluator and paper monitor ticking,
// approval surfaces up, and a drain of deferred audit work on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/oddsarb/internal/config"
	"github.com/alanyoungcy/oddsarb/internal/server"
)

// App is the root application object.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts every run loop, and blocks until the
// context is cancelled. Deferred trade-audit snapshots are flushed before
// return.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting engine",
		slog.String("sell_mode", a.cfg.Engine.SellMode),
		slog.Float64("arb_ratio", a.cfg.Engine.ArbRatio),
		slog.Bool("test_mode", a.cfg.Engine.TestMode),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	defer cleanup()

	a.replayPendingLog(deps)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.SportsFeed.Run(ctx)
	})
	g.Go(func() error {
		return deps.GammaPoller.Run(ctx)
	})
	g.Go(func() error {
		return deps.Evaluator.Run(ctx)
	})
	g.Go(func() error {
		return deps.Monitor.Run(ctx)
	})
	g.Go(func() error {
		return a.reviewLoop(ctx, deps)
	})

	if a.cfg.Server.Enabled {
		srv := server.NewServer(server.Config{
			Port:   a.cfg.Server.Port,
			APIKey: a.cfg.Server.APIKey,
		}, deps.APIHandler, a.logger)
		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	err = g.Wait()

	// Flush deferred trade-audit snapshots before tearing anything down.
	deps.Gateway.Wait()
	a.logger.Info("engine stopped")
	return err
}

// replayPendingLog re-enqueues unreviewed candidates from the persisted
// pending log so a restart does not lose the review backlog. Rows already
// classified (approved since, or re-seen this run) are skipped without
// re-appending to the log.
func (a *App) replayPendingLog(deps *Dependencies) {
	rows, err := deps.PendStore.LoadPending()
	if err != nil {
		a.logger.Error("pending log replay failed", slog.String("error", err.Error()))
		return
	}
	replayed := 0
	for _, c := range rows {
		if deps.Registry.IsKnown(c) {
			continue
		}
		deps.Registry.EnqueuePending(c)
		deps.State.EnqueueReview(c)
		replayed++
	}
	if replayed > 0 {
		a.logger.Info("replayed pending match candidates", slog.Int("count", replayed))
	}
}
