// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements the credential repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/authengine/internal/auth"
)

// Querier is the statement surface shared by pgxpool.Pool, pgx.Tx and
// pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a Querier that can open transactions.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txKey struct{}

// DB hands out repositories that share one pool and run inside the
// transaction opened by Do when there is one.
type DB struct {
	pool Pool
}

// New creates a DB over pool.
func New(pool Pool) *DB {
	return &DB{pool: pool}
}

// Do runs fn in a transaction. Nested calls join the outer transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (db *DB) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return oops.Code("TX_ROLLBACK_FAILED").
				With("cause", err.Error()).
				Wrap(rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

// conn returns the transaction carried by ctx, or the pool.
func (db *DB) conn(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db.pool
}

// Users returns the user repository.
func (db *DB) Users() *UserRepository { return &UserRepository{db: db} }

// Sessions returns the session repository.
func (db *DB) Sessions() *SessionRepository { return &SessionRepository{db: db} }

// Blacklist returns the redeemed-token repository.
func (db *DB) Blacklist() *BlacklistRepository { return &BlacklistRepository{db: db} }

// DeviceVerifications returns the device challenge repository.
func (db *DB) DeviceVerifications() *DeviceVerificationRepository {
	return &DeviceVerificationRepository{db: db}
}

// UserDevices returns the trusted device repository.
func (db *DB) UserDevices() *UserDeviceRepository { return &UserDeviceRepository{db: db} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

var _ auth.UnitOfWork = (*DB)(nil)
