// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/ManuGH/settingsd/internal/api"
	"github.com/ManuGH/settingsd/internal/config"
	"github.com/ManuGH/settingsd/internal/daemon"
	"github.com/ManuGH/settingsd/internal/health"
	"github.com/ManuGH/settingsd/internal/invoke"
	xglog "github.com/ManuGH/settingsd/internal/log"
	"github.com/ManuGH/settingsd/internal/platform/paths"
	"github.com/ManuGH/settingsd/internal/store"
	"github.com/ManuGH/settingsd/internal/telemetry"
	"github.com/ManuGH/settingsd/internal/version"
)

// resolver is replaced by tests to pin the per-user config root.
var resolver = paths.Resolver{}

func runServe(ctx context.Context, args, environ []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("settingsd", flag.ContinueOnError)
	fs.SetOutput(stderr)

	showVersion := fs.Bool("version", false, "print version and exit")
	listen := fs.String("listen", "", "HTTP bridge address (overrides SETTINGSD_LISTEN)")
	file := fs.String("config", "", "settings file path (overrides SETTINGSD_CONFIG_PATH)")
	watch := fs.Bool("watch", true, "watch the settings file for external edits (overrides SETTINGSD_WATCH)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	settings, err := loadSettings(environ, func(s *config.Settings) {
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "listen":
				s.Listen = *listen
			case "config":
				s.ConfigPath = *file
			case "watch":
				s.Watch = *watch
			}
		})
	})
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}

	xglog.Configure(xglog.Config{
		Level:   settings.LogLevel,
		Format:  settings.LogFormat,
		Output:  stderr,
		Service: "settingsd",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	st, err := openStore(settings)
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "startup.store_failed").Msg("failed to open config store")
		return 1
	}

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str(xglog.FieldPath, st.Path()).
		Object("settings", settings).
		Msg("starting settingsd")

	router := invoke.NewRouter()
	if err := invoke.RegisterConfigCommands(router, st); err != nil {
		logger.Error().Err(err).Msg("failed to register commands")
		return 1
	}

	readiness := health.NewManager(version.Version)
	readiness.RegisterChecker(health.NewDocumentChecker(func(ctx context.Context) error {
		_, err := st.Load(ctx)
		return err
	}))
	readiness.RegisterChecker(health.NewWritableDirChecker(filepath.Dir(st.Path())))

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName:    "settingsd",
		ServiceVersion: version.Version,
		Endpoint:       settings.OTLPEndpoint,
		Insecure:       settings.OTLPInsecure,
		SamplingRate:   settings.TraceSampling,
	})
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "startup.telemetry_failed").Msg("failed to set up tracing")
		return 1
	}

	apiCfg := api.Config{
		AllowedOrigins: settings.AllowedOrigins,
		Token:          settings.Token,
		RateLimit:      settings.RateLimit,
		EnableLogging:  true,
		EnableMetrics:  true,
		Readiness:      http.HandlerFunc(readiness.ServeReady),
	}
	if tracing.Enabled() {
		apiCfg.TracerProvider = tracing.TracerProvider()
	}
	handler := api.NewHandler(router, apiCfg)

	serverCfg := daemon.DefaultServerConfig(settings.Listen)
	serverCfg.ShutdownTimeout = settings.ShutdownTimeout
	mgr, err := daemon.NewManager(serverCfg, daemon.Deps{Logger: logger, APIHandler: handler})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create daemon manager")
		return 1
	}
	// Registered first so it runs last, after the watcher has stopped.
	mgr.RegisterShutdownHook("telemetry", tracing.Shutdown)

	app := daemon.NewApp(logger, mgr, st, settings.Watch)
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.failed").Msg("settingsd stopped with error")
		return 1
	}
	logger.Info().Str(xglog.FieldEvent, "shutdown").Msg("settingsd stopped")
	return 0
}

// loadSettings reads environ, lets override adjust the result and validates
// the final settings once more.
func loadSettings(environ []string, override func(*config.Settings)) (config.Settings, error) {
	s, err := config.LoadFromEnviron(environ)
	if err != nil {
		return config.Settings{}, err
	}
	if override != nil {
		override(&s)
		if err := s.Validate(); err != nil {
			return config.Settings{}, err
		}
	}
	return s, nil
}

func openStore(s config.Settings) (*store.Store, error) {
	path, err := s.FilePath(resolver)
	if err != nil {
		return nil, fmt.Errorf("resolve settings path: %w", err)
	}
	return store.New(path,
		store.WithLogger(xglog.WithComponent("store")),
		store.WithDebounce(s.Debounce),
	)
}
