// Package store is the Persistence component: pgx/v5-backed repositories for
// accounts, bots, bot configs, and droplets, plus the atomic counter/version
// helpers the provisioning saga depends on. There is no ORM here — ent's
// generated client isn't part of this tree, so every repository is raw SQL
// over a pgxpool.Pool, in the shape pkg/apikey.Store uses in wisbric-nightowl.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"

	"github.com/conorholds/openclaw-control-plane/internal/logger"
)

// ErrNotFound is returned by Get* methods when no row matches.
var ErrNotFound = errors.New("store: not found")

// Store bundles the pool and every repository, mirroring the teacher's single
// ent.Client entry point but over pgx.
type Store struct {
	pool *pgxpool.Pool

	Accounts *AccountStore
	Bots     *BotStore
	Configs  *ConfigStore
	Droplets *DropletStore
}

// New builds a Store from a connected pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		Accounts: &AccountStore{pool: pool},
		Bots:     &BotStore{pool: pool},
		Configs:  &ConfigStore{pool: pool},
		Droplets: &DropletStore{pool: pool},
	}
}

// Ping verifies the pool can still reach the database, used by the HTTP
// edge's /health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Connect opens a pgxpool against databaseURL. Query logs flow through zl via
// pgx's tracelog package, so SQL activity lands in the same structured
// stream as every other component's logs.
func Connect(ctx context.Context, databaseURL string, zl *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parsing database url: %w", err)
	}
	poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   tracelog.LoggerFunc(logger.QueryLogAdapter(zl)),
		LogLevel: tracelog.LogLevelWarn,
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("store: connecting: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: pinging: %w", err)
	}
	return pool, nil
}

// WithTx runs fn inside a transaction, committing on success and rolling back
// on error or panic. Grounded on the teacher's internal/db.WithTx, adapted
// from ent's *Tx to pgx.Tx.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}

	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback(ctx)
			panic(v)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(ctx); rerr != nil {
			return fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: committing transaction: %w", err)
	}
	return nil
}

// mapRowErr turns pgx.ErrNoRows into the package-level ErrNotFound so callers
// never need to import pgx just to detect a miss.
func mapRowErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
