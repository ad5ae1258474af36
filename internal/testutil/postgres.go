// Package testutil starts throwaway infrastructure for integration tests.
package testutil

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/nikhilbhutani/ragguard/internal/config"
	"github.com/nikhilbhutani/ragguard/internal/database"
	"github.com/nikhilbhutani/ragguard/migrations"
)

// StartPostgres runs a pgvector-enabled Postgres container, applies the
// schema and returns a pool plus a teardown func.
func StartPostgres(ctx context.Context) (*pgxpool.Pool, func(), error) {
	ctr, err := postgres.Run(ctx, "pgvector/pgvector:pg16",
		postgres.WithDatabase("rag"),
		postgres.WithUsername("rag"),
		postgres.WithPassword("rag"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}
	teardown := func() { _ = testcontainers.TerminateContainer(ctr) }

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		teardown()
		return nil, nil, fmt.Errorf("connection string: %w", err)
	}

	pool, err := database.NewPool(ctx, config.DatabaseConfig{URL: dsn, MaxConns: 5})
	if err != nil {
		teardown()
		return nil, nil, err
	}
	if err := database.RunMigrations(ctx, pool, migrations.FS); err != nil {
		pool.Close()
		teardown()
		return nil, nil, err
	}

	return pool, func() {
		pool.Close()
		teardown()
	}, nil
}
