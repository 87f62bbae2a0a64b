// Package postgres contains PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opentutorials-org/otu-sync/internal/errs"
)

// PgxPool is a minimal abstraction over a Postgres connection pool,
// used by repositories. It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	// Exec executes a SQL command and returns the command tag.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Query executes a SELECT and returns a rows iterator.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// QueryRow executes a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close shuts down the pool and frees resources.
	Close()
}

// DB wraps pgxpool.Pool to satisfy repository constructors and allow testing.
type DB struct{ Pool PgxPool }

// New creates a new connection pool for the given DSN.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

// exec runs a write and wraps failures with their SQL state.
func (db *DB) exec(ctx context.Context, op, table, sql string, args ...any) error {
	if _, err := db.Pool.Exec(ctx, sql, args...); err != nil {
		return storeErr(op, table, err)
	}
	return nil
}

// exists runs a SELECT EXISTS probe.
func (db *DB) exists(ctx context.Context, table, sql string, args ...any) (bool, error) {
	var ok bool
	if err := db.Pool.QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false, storeErr("select", table, err)
	}
	return ok, nil
}

// storeErr converts a driver error into errs.StoreError.
func storeErr(op, table string, err error) error {
	se := &errs.StoreError{Op: op, Table: table, Err: err}
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		se.Code = pg.Code
	}
	return se
}
