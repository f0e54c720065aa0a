package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/hotswap/internal/di"
	"github.com/omarluq/hotswap/internal/signals"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hotswap server",
	Long: `Load the configuration, bind the listener and start serving. The
configuration is reloaded on POST /reload, on SIGHUP and, when control.watch
is enabled, whenever the file changes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	path := configPath()
	container := di.NewContainer(path)

	// A startup config that cannot be loaded is fatal.
	cfgSvc, err := di.Invoke[*di.ConfigService](container)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to load config")
		return err
	}

	logSvc, err := di.Invoke[*di.LoggerService](container)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize logger")
		return err
	}
	log.Logger = *logSvc.Logger
	zerolog.DefaultContextLogger = logSvc.Logger

	appSvc := di.MustInvoke[*di.AppService](container)
	srv := di.MustInvoke[*di.ServerService](container).Server

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// So is a listener that cannot be bound.
	if err := srv.Listen(ctx); err != nil {
		log.Error().Err(err).Msg("failed to bind listener")
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve()
	}()
	log.Info().Str("listen", srv.Addr()).Str("config", path).Msg("starting hotswap")

	if err := appSvc.App.Activate(ctx, cfgSvc.Initial); err != nil {
		return err
	}

	reload := func(ctx context.Context) error {
		if err := appSvc.App.Reload(ctx, true); err != nil {
			log.Warn().Err(err).Msg("reload failed")
			return err
		}
		return nil
	}
	cfgSvc.StartWatching(ctx, reload)

	sub := signals.OnReload(ctx, func(ctx context.Context, sig os.Signal) {
		log.Info().Str("signal", sig.String()).Msg("reload requested")
		_ = reload(ctx) //nolint:errcheck // logged in reload
	})
	defer sub.Unsubscribe()

	shutdown := make(chan os.Signal, 1)
	go func() {
		if sig, err := signals.WaitForShutdown(ctx); err == nil {
			shutdown <- sig
		}
	}()

	var runErr error
	select {
	case runErr = <-serveErr:
		if runErr != nil {
			log.Error().Err(runErr).Msg("server error")
		}
	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("shutting down...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := container.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	log.Info().Msg("server stopped")
	return runErr
}
