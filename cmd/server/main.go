package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/afero"

	"github.com/nfrund/msgtopology/internal/app"
	"github.com/nfrund/msgtopology/internal/config"
	"github.com/nfrund/msgtopology/internal/logging"
	"github.com/nfrund/msgtopology/internal/schema"
	"github.com/nfrund/msgtopology/internal/server"
	"github.com/nfrund/msgtopology/internal/topology"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.New()
	logging.New()

	osFs := afero.NewOsFs()

	local, err := topology.LoadManifest(osFs, cfg.Manifest, cfg.DefaultConnector)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("No topology manifest found", "manifest", cfg.Manifest)
	case err != nil:
		slog.Error("Invalid topology manifest", "manifest", cfg.Manifest, "error", err)
		os.Exit(1)
	default:
		slog.Info("Topology manifest loaded", "service", local.ServiceName, "channels", len(local.Channels))
	}

	types := schema.NewTypeRegistry()
	app.RegisterTypes(types)

	injector := app.NewInjector(cfg, osFs, types, local)
	a := do.MustInvoke[*app.App](injector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		slog.Error("Failed to start messaging topology", "error", err)
		os.Exit(1)
	}

	s := server.New(cfg, a)
	if err := s.Start(ctx); err != nil {
		slog.Error("HTTP server failed", "error", err)
	}
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if err := a.Stop(shutdownCtx); err != nil {
		slog.Error("Messaging topology shutdown failed", "error", err)
	}
}
