package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labportal/portal/frontend/internal/router"
	"github.com/labportal/portal/frontend/internal/setup"
	"github.com/labportal/portal/shared/config"
	"github.com/labportal/portal/shared/logger"
)

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.Logging.Level, cfg.Public.Logging.JSON)

	deps, err := setup.SetupDependencies(cfg)
	if err != nil {
		logger.Log.Error("failed to set up dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.Storage.Cleanup()
	defer deps.CancelFunc()

	server := &http.Server{
		Addr:              ":" + cfg.Public.Server.Port,
		Handler:           router.SetupRouter(deps),
		ReadHeaderTimeout: cfg.Public.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Public.Server.ReadTimeout,
		WriteTimeout:      cfg.Public.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.Info("starting frontend", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Log.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Log.Error("server failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Public.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", "error", err)
	}
	// open compositions get their page-unload save before the process exits
	if err := deps.Sessions.UnloadAll(ctx); err != nil {
		logger.Log.Warn("not every unload save finished", "error", err)
	}
	logger.Log.Info("frontend stopped")
}
