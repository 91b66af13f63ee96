package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/stageloader/internal/config"
)

// Connect opens and pings a pool for cfg. When cfg.CloudSQLInstance is set,
// connections go through the Cloud SQL connector with IAM authentication
// and DATABASE_URL only supplies user and database name.
//
// The returned close function releases the pool and any dialer.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, func(), error) {
	dsn := cfg.URL
	if dsn == "" {
		// user and database come from PGUSER / PGDATABASE
		dsn = "sslmode=disable"
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	var dialer *cloudsqlconn.Dialer
	if cfg.CloudSQLInstance != "" {
		dialer, err = cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
		if err != nil {
			return nil, nil, fmt.Errorf("create cloud sql dialer: %w", err)
		}
		instance := cfg.CloudSQLInstance
		poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.Dial(ctx, instance)
		}
	}

	closeDialer := func() {
		if dialer != nil {
			dialer.Close()
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		closeDialer()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		closeDialer()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("connected to database",
		"database", poolConfig.ConnConfig.Database,
		"cloudsql_instance", cfg.CloudSQLInstance,
		"max_conns", cfg.MaxConns,
	)

	return pool, func() {
		pool.Close()
		closeDialer()
	}, nil
}
