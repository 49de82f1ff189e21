package repository_test

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/artesano/internal/db"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres starts a disposable postgres and applies the schema migrations.
func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("artesano"),
		postgres.WithUsername("artesano"),
		postgres.WithPassword("artesano"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, "", fmt.Errorf("container.ConnectionString: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return container, "", fmt.Errorf("pgxpool.New: %w", err)
	}
	defer pool.Close()

	migrator, err := db.NewMigrator(pool)
	if err != nil {
		return container, "", fmt.Errorf("db.NewMigrator: %w", err)
	}
	defer migrator.Close()

	if _, err := migrator.Up(ctx); err != nil {
		return container, "", fmt.Errorf("migrator.Up: %w", err)
	}

	return container, connStr, nil
}
