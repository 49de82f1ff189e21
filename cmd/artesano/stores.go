package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/artesano/internal/config"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/nikolayk812/artesano/internal/repository"
	"github.com/nikolayk812/artesano/internal/repository/memory"
)

type stores struct {
	orders   port.OrderRepository
	payments port.PaymentRepository
	grants   port.AccessGrantRepository
	events   port.SecurityEventRepository

	// catalog is nil for the memory driver.
	catalog *repository.CatalogRepository
	pool    *pgxpool.Pool
}

func (s stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		m := memory.NewStore()
		return stores{orders: m, payments: m, grants: m, events: m}, nil
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return stores{}, err
	}

	s := stores{pool: pool}

	if s.orders, err = repository.NewOrder(pool); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("repository.NewOrder: %w", err)
	}
	if s.payments, err = repository.NewPayment(pool); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("repository.NewPayment: %w", err)
	}
	if s.grants, err = repository.NewAccessGrant(pool); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("repository.NewAccessGrant: %w", err)
	}
	if s.events, err = repository.NewSecurityEvent(pool); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("repository.NewSecurityEvent: %w", err)
	}
	if s.catalog, err = repository.NewCatalog(pool); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("repository.NewCatalog: %w", err)
	}

	return s, nil
}

func openPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pool.Ping: %w", err)
	}

	return pool, nil
}
