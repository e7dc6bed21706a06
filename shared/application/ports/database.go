package ports

import (
	"context"
	"database/sql"
)

// Executor is the statement surface shared by a pool and a transaction.
type Executor interface {
	Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Database is the relational store behind the postgres repositories. Select
// and Get scan with sqlx struct mapping; Get returns sql.ErrNoRows on an
// empty result.
type Database interface {
	Executor

	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Transaction) error) error

	Ping(ctx context.Context) error
	SQL() *sql.DB // for golang-migrate
	Close() error
}

type Transaction interface {
	Executor
	Commit() error
	Rollback() error
}
