// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/settingsd/internal/log"
	"github.com/ManuGH/settingsd/internal/store"
)

// App owns the long-lived runtime: the config watcher, change logging and
// manual reload, and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	store        ConfigStore
	watch        bool
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, st ConfigStore, watch bool) *App {
	return &App{
		logger:       logger.With().Str(xglog.FieldComponent, "daemon").Logger(),
		manager:      manager,
		store:        st,
		watch:        watch,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run blocks until ctx is cancelled or the server fails. It returns after
// every goroutine it started has exited.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.store == nil {
		return ErrMissingStore
	}

	// A broken file must not keep the front end from starting: it falls back
	// to defaults and sees the error on its own load.
	if doc, err := a.store.Load(ctx); err != nil {
		a.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str(xglog.FieldPath, a.store.Path()).
			Msg("initial config load failed, continuing")
	} else {
		a.logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str(xglog.FieldPath, a.store.Path()).
			Int(xglog.FieldKeys, doc.Len()).
			Msg("config loaded")
	}

	g, ctx := errgroup.WithContext(ctx)

	changes := make(chan store.Change, 16)
	unsubscribe := a.store.Subscribe(changes)
	defer unsubscribe()

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case c := <-changes:
				a.logger.Info().
					Str(xglog.FieldEvent, "config.changed").
					Str(xglog.FieldSource, c.Source).
					Strs("changed", c.Keys).
					Msg("configuration changed")
			}
		}
	})

	// The watcher keeps publishing external edits while requests drain. The
	// shutdown hook stops it once the server is down.
	watchCtx, stopWatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWatch()
	if a.watch {
		if err := a.store.Watch(watchCtx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		} else {
			a.manager.RegisterShutdownHook("config-watcher", func(hookCtx context.Context) error {
				stopWatch()
				return waitStore(hookCtx, a.store)
			})
		}
	}

	if a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(xglog.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")
					if err := a.store.Reload(ctx); err != nil {
						a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		// A bind failure never reaches the shutdown hooks.
		stopWatch()
		return err
	})

	err := g.Wait()
	a.store.Wait()
	return err
}

// waitStore waits for the store's watcher to exit or ctx to expire.
func waitStore(ctx context.Context, st ConfigStore) error {
	done := make(chan struct{})
	go func() {
		st.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
