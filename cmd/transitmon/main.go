package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"transitmon/internal/config"
	"transitmon/internal/coordinator"
	"transitmon/internal/server"
	"transitmon/internal/storage"
)

func main() {
	cfg := config.Load()

	// CLI flags
	checkOnly := flag.Bool("check-stations", false, "Validate the stations file, then exit")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.StationsFile, "stations", cfg.StationsFile, "YAML file with stations to add on startup")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	var stations []config.Station
	if cfg.StationsFile != "" {
		var err error
		stations, err = config.LoadStations(cfg.StationsFile)
		if err != nil {
			logger.Error("failed to load stations", "path", cfg.StationsFile, "error", err)
			os.Exit(1)
		}
		logger.Info("stations file loaded", "path", cfg.StationsFile, "count", len(stations))
	}
	if *checkOnly {
		return
	}

	// Cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// The stations file only seeds an empty database; later changes go
	// through the API.
	if db.HasEntries(ctx) {
		stations = nil
	}
	for _, st := range stations {
		e, err := db.InsertEntry(ctx, st)
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			logger.Debug("station already configured", "unique_id", st.UniqueID())
		case err != nil:
			logger.Error("failed to add station", "unique_id", st.UniqueID(), "error", err)
		default:
			logger.Info("station added", "id", e.ID, "title", e.Title)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	manager := coordinator.NewManager(ctx, cfg.RateLimitPerDay, coordinator.ProviderSettings{
		FeedFormat: cfg.NTAFeedFormat,
		UserAgent:  cfg.UserAgent,
	}, logger)

	entries, err := db.ListEntries(ctx)
	if err != nil {
		logger.Error("failed to list entries", "error", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if _, err := manager.Start(e.ID, e.Station); err != nil {
			logger.Error("failed to start entry", "id", e.ID, "error", err)
		}
	}

	srv := server.New(cfg, db, manager, logger)

	g.Go(manager.Run)
	g.Go(func() error { return srv.ListenAndServe(ctx) })

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}
