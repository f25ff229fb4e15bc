// Package main is the entry point for the sauce-service HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fleveque/sauce-service/internal/config"
	"github.com/fleveque/sauce-service/internal/metrics"
	"github.com/fleveque/sauce-service/internal/server"
	"github.com/fleveque/sauce-service/internal/service"
	"github.com/fleveque/sauce-service/internal/source"
	"github.com/fleveque/sauce-service/internal/storage"
	"github.com/fleveque/sauce-service/internal/webclient"
)

func main() {
	// run keeps deferred cleanup working; os.Exit skips defers.
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("SAUCE_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var logger *zap.Logger
	if cfg.Log.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync fails on stdout/stderr on some platforms; nothing to do about it.
	defer func() { _ = logger.Sync() }()

	client := webclient.NewNetHTTPClient(webclient.Config{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}, nil, logger)

	sources, err := source.NewAll(cfg.Sources.Enabled, cfg.Sources, source.Deps{
		Client:        client,
		Logger:        logger,
		SearchTimeout: cfg.Sources.SearchTimeout,
	})
	if err != nil {
		return fmt.Errorf("building sources: %w", err)
	}
	for _, src := range sources {
		logger.Info("source enabled", zap.String("source", src.Name()))
	}

	var repo storage.SearchRepository
	if cfg.Storage.DatabasePath != "" {
		db, err := openDatabase(cfg.Storage.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = storage.NewSearchRepository(db)
	} else {
		logger.Info("audit log disabled")
	}

	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.NewRecorder()
	}

	searchService := service.NewSearchService(sources, repo, rec, logger)

	srv := server.New(cfg, server.Deps{
		SearchService: searchService,
		SearchRepo:    repo,
		Metrics:       rec,
	}, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// In-flight searches get one search timeout plus slack to finish.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sources.SearchTimeout+5*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}

func openDatabase(path string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := storage.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
