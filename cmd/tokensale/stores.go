package main

import (
	"context"
	"fmt"
	"log"

	"solana-token-sale/internal/storage"
	chstore "solana-token-sale/internal/storage/clickhouse"
	"solana-token-sale/internal/storage/memory"
	"solana-token-sale/internal/storage/migrations"
	pgstore "solana-token-sale/internal/storage/postgres"
)

// storeConfig selects where accounts, activities and sync progress live.
type storeConfig struct {
	Backend       string // memory or postgres
	PostgresDSN   string
	ClickhouseDSN string // optional; moves the activity log to ClickHouse
}

type stores struct {
	accounts   storage.AccountStore
	activities storage.ActivityStore
	progress   storage.SyncProgressStore
	closers    []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured backends and applies their migrations.
// Every store reports its queries to rec when rec is non-nil.
func openStores(ctx context.Context, cfg storeConfig, rec storage.QueryRecorder, logger *log.Logger) (*stores, error) {
	s := &stores{}
	accountsDB := cfg.Backend

	switch cfg.Backend {
	case "", "memory":
		accountsDB = "memory"
		s.accounts = memory.NewAccountStore()
		s.activities = memory.NewActivityStore()
		s.progress = memory.NewSyncProgressStore()
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres store requires --postgres-dsn or POSTGRES_DSN")
		}
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.accounts = pgstore.NewAccountStore(pool)
		s.activities = pgstore.NewActivityStore(pool)
		s.progress = pgstore.NewSyncProgressStore(pool)
		logger.Printf("Using PostgreSQL storage")
	default:
		return nil, fmt.Errorf("unknown store %q (want memory or postgres)", cfg.Backend)
	}

	activitiesDB := accountsDB
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.closers = append(s.closers, func() {
			if err := conn.Close(); err != nil {
				logger.Printf("Close clickhouse: %v", err)
			}
		})
		s.activities = chstore.NewActivityStore(conn)
		activitiesDB = "clickhouse"
		logger.Printf("Using ClickHouse activity log")
	}

	if rec != nil {
		s.accounts = storage.InstrumentAccounts(s.accounts, rec, accountsDB)
		s.activities = storage.InstrumentActivities(s.activities, rec, activitiesDB)
		s.progress = storage.InstrumentProgress(s.progress, rec, accountsDB)
	}
	return s, nil
}
