// Package warehouse selects and builds the configured warehouse backend.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/stageloader/internal/config"
	"github.com/JonMunkholm/stageloader/internal/core"
	"github.com/JonMunkholm/stageloader/internal/objstore"
	"github.com/JonMunkholm/stageloader/internal/warehouse/bigquery"
	"github.com/JonMunkholm/stageloader/internal/warehouse/postgres"
)

// Open builds the backend named by cfg.Warehouse.Backend. The returned
// function releases every client it opened.
func Open(ctx context.Context, cfg *config.Config) (core.Warehouse, func(), error) {
	switch cfg.Warehouse.Backend {
	case config.BackendBigQuery:
		wh, err := bigquery.New(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.Location)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using bigquery warehouse",
			"project", cfg.Warehouse.ProjectID,
			"location", cfg.Warehouse.Location,
		)
		return wh, func() { wh.Close() }, nil

	case config.BackendPostgres:
		opener, closeOpener, err := openObjects(ctx, cfg.Storage)
		if err != nil {
			return nil, nil, err
		}
		pool, closePool, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			closeOpener()
			return nil, nil, err
		}
		return postgres.New(pool, opener), func() {
			closePool()
			closeOpener()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown warehouse backend %q", cfg.Warehouse.Backend)
	}
}

// openObjects routes gs:// to Cloud Storage and file:// to the local root.
// The GCS client is only created when the configured scheme needs it.
func openObjects(ctx context.Context, cfg config.StorageConfig) (objstore.Router, func(), error) {
	router := objstore.Router{"file": objstore.Dir{Root: cfg.LocalRoot}}
	if cfg.Scheme != "gs" {
		return router, func() {}, nil
	}

	gcs, err := objstore.NewGCS(ctx)
	if err != nil {
		return nil, nil, err
	}
	router["gs"] = gcs
	return router, func() { gcs.Close() }, nil
}
