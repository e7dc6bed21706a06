package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
)

const pingTimeout = 5 * time.Second

// DB is the PostgreSQL store behind the crawler's relational repositories.
// Every call is timed under database.<op>.duration_ms and counted as
// database.<op>.success or database.<op>.errors.
type DB struct {
	conn    *sqlx.DB
	logger  ports.Logger
	metrics ports.Metrics
}

// NewPostgresAdapter connects to the catalog database and verifies it
// answers before handing the pool out.
func NewPostgresAdapter(cfg *config.DatabaseConfig, obs ports.Observability) (*DB, error) {
	logger, metrics, err := obs.ComponentsScoped("database.postgres")
	if err != nil {
		return nil, err
	}

	logger.Info("Opening catalog database",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
		"max_open_conns", cfg.MaxOpenConns)

	conn, err := sqlx.Open("postgres", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		logger.Error("Catalog database unreachable", "host", cfg.Host, "error", err)
		return nil, fmt.Errorf("ping catalog database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	metrics.IncrementCounter("database.connection.success", map[string]string{"type": "postgres"})
	return NewFromConn(conn, logger, metrics), nil
}

// NewFromConn wraps an already open handle. Tests pass one backed by sqlmock.
func NewFromConn(conn *sqlx.DB, logger ports.Logger, metrics ports.Metrics) *DB {
	return &DB{conn: conn, logger: logger, metrics: metrics}
}

// connString renders cfg as a postgres:// URL so credentials with spaces or
// quotes survive intact.
func connString(cfg *config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (d *DB) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var res sql.Result
	err := d.observe("execute", query, func() (err error) {
		res, err = d.conn.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

func (d *DB) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	var rows *sql.Rows
	err := d.observe("query", query, func() (err error) {
		rows, err = d.conn.QueryContext(ctx, query, args...)
		return err
	})
	return rows, err
}

// QueryRow defers its error to Scan, so only the latency is recorded.
func (d *DB) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := d.conn.QueryRowContext(ctx, query, args...)
	d.metrics.RecordHistogram("database.query_row.duration_ms", float64(time.Since(start).Milliseconds()), nil)
	return row
}

func (d *DB) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return d.observe("get", query, func() error {
		return d.conn.GetContext(ctx, dest, query, args...)
	})
}

func (d *DB) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return d.observe("select", query, func() error {
		return d.conn.SelectContext(ctx, dest, query, args...)
	})
}

// Transaction commits when fn returns nil. Any error or panic from fn rolls
// the transaction back; panics are re-raised after the rollback.
func (d *DB) Transaction(ctx context.Context, fn func(tx ports.Transaction) error) error {
	return d.observe("transaction", "", func() (err error) {
		tx, err := d.conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}

		committed := false
		defer func() {
			if committed {
				return
			}
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				d.logger.Error("Rollback failed", "error", rbErr)
			}
		}()

		if err := fn(pgTx{tx}); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		committed = true
		return nil
	})
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// SQL hands the raw pool to golang-migrate.
func (d *DB) SQL() *sql.DB {
	return d.conn.DB
}

func (d *DB) Close() error {
	d.logger.Info("Closing catalog database")
	return d.conn.Close()
}

// observe runs op and records its latency and outcome. sql.ErrNoRows is an
// answer, not a failure.
func (d *DB) observe(op, query string, run func() error) error {
	start := time.Now()
	err := run()
	d.metrics.RecordHistogram("database."+op+".duration_ms", float64(time.Since(start).Milliseconds()), nil)

	if err == nil || errors.Is(err, sql.ErrNoRows) {
		d.metrics.IncrementCounter("database."+op+".success", nil)
		return err
	}

	d.metrics.IncrementCounter("database."+op+".errors", nil)
	if query != "" {
		d.logger.Error("Database call failed", "op", op, "query", query, "error", err)
	} else {
		d.logger.Error("Database call failed", "op", op, "error", err)
	}
	return err
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t pgTx) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t pgTx) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t pgTx) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t pgTx) Commit() error {
	return t.tx.Commit()
}

func (t pgTx) Rollback() error {
	return t.tx.Rollback()
}
