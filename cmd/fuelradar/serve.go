package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/urfave/cli/v2"

	"github.com/nmoreras/fuelradar/internal/config"
	"github.com/nmoreras/fuelradar/internal/server"
	"github.com/nmoreras/fuelradar/internal/storage"
	"github.com/nmoreras/fuelradar/pkg/terpel"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides FUELRADAR_ADDR)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file (overrides FUELRADAR_DB)",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg := config.FromEnv()
	if addr := c.String("addr"); addr != "" {
		cfg.ListenAddr = addr
	}
	if db := c.String("db"); db != "" {
		cfg.DBPath = db
	}
	if c.Bool("verbose") {
		cfg.LogLevel = slog.LevelDebug
	}

	ctx := c.Context

	logger := httplog.NewLogger("fuelradar", httplog.Options{
		JSON:            false,
		LogLevel:        cfg.LogLevel,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})

	store, err := storage.NewStorage(ctx, cfg.DBPath, logger.Logger)
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer store.Close()

	srv := server.New(store, logger, cfg.RateLimit)

	// Refresh the feed in the background for as long as the server
	// runs. Going through srv.Ingest keeps the refresher and any
	// HTTP-triggered ingestions serialized.
	go refreshLoop(ctx, srv, logger, cfg.UpdateInterval)

	logger.Info("starting server", "addr", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, srv.Router())
}

func refreshLoop(ctx context.Context, srv *server.Server, logger *httplog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := srv.Ingest(ctx, terpel.Source)
		if err != nil {
			logger.Error("feed refresh failed", "error", err)
		} else {
			logger.Info("feed refresh completed", "succeeded", report.Succeeded, "failed", report.Failed)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
