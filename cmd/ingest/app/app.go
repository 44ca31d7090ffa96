package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roman-kulish/lap-energy/internal/openf1"
	"github.com/roman-kulish/lap-energy/internal/storage"
)

const (
	storageDir = "data"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer func() {
		if cErr := store.Close(); cErr != nil {
			logger.Error("closing storage", slog.String("error", cErr.Error()))
		}
	}()

	client := openf1.NewClient(
		openf1.WithBaseURL(config.OpenF1.BaseURL),
		openf1.WithTimeout(config.OpenF1.Timeout.Duration()),
		openf1.WithLogger(logger),
	)

	importer := NewImporter(client, store, logger,
		WithConcurrency(config.Settings.Concurrency),
		WithLaps(config.Session.Laps),
	)

	stats, err := importer.Run(ctx, config.Session.Key, config.Session.Drivers)
	if err != nil {
		return fmt.Errorf("importing session %d: %w", config.Session.Key, err)
	}

	logger.Info("import completed", stats.Attr())
	return nil
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dataDir := storageDir
	if config.DataDirectory != "" {
		dataDir = config.DataDirectory
	}
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(wd, dataDir)
	}

	stat, err := os.Stat(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dataDir, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dataDir, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dataDir)
	}

	dbPath := filepath.Join(dataDir, config.DBFile)
	return storage.NewSqliteStore(dbPath, storage.WithMaxBatchSize(config.MaxBatchSize)), nil
}
