// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

// Package store provides PostgreSQL persistence: the connection pool,
// schema migrations, and the repositories backed by them.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// poolIface is the subset of pgxpool.Pool the repositories use. It
// matches pgxmock, so repository tests run without a database.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool connects to PostgreSQL and verifies the connection with a
// bounded retry, so a server racing its database container at startup
// settles instead of crashing.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("POOL_CONFIG_FAILED").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("POOL_CONNECT_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("POOL_PING_FAILED").Wrap(err)
	}
	return pool, nil
}
