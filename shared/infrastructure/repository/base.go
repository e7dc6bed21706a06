package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"mavencrawler/shared/application/ports"
)

// baseRepository carries what every table repository needs. T is the row type
// scanned by sqlx.
type baseRepository[T any] struct {
	db      ports.Database
	logger  ports.Logger
	metrics ports.Metrics
	table   string
	columns []string
	qb      squirrel.StatementBuilderType
}

func newBaseRepository[T any](db ports.Database, logger ports.Logger, metrics ports.Metrics, table string, columns ...string) *baseRepository[T] {
	return &baseRepository[T]{
		db:      db,
		logger:  logger,
		metrics: metrics,
		table:   table,
		columns: columns,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// listAll returns every row ordered by orderBy.
func (r *baseRepository[T]) listAll(ctx context.Context, orderBy ...string) ([]*T, error) {
	r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.list", r.table), nil)

	query, args, err := r.qb.
		Select(r.columns...).
		From(r.table).
		OrderBy(orderBy...).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []T
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		return nil, r.fail("list", err)
	}

	result := make([]*T, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result, nil
}

func (r *baseRepository[T]) count(ctx context.Context) (int64, error) {
	r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.count", r.table), nil)

	query, args, err := r.qb.Select("COUNT(*)").From(r.table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var n int64
	if err := r.db.Get(ctx, &n, query, args...); err != nil {
		return 0, r.fail("count", err)
	}
	return n, nil
}

// exec runs a built statement and returns the affected row count.
func (r *baseRepository[T]) exec(ctx context.Context, op string, b squirrel.Sqlizer) (int64, error) {
	r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.%s", r.table, op), nil)

	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.Execute(ctx, query, args...)
	if err != nil {
		return 0, r.fail(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, r.fail(op, err)
	}
	return n, nil
}

func (r *baseRepository[T]) fail(op string, err error) error {
	r.logger.Error("Repository operation failed", "table", r.table, "operation", op, "error", err)
	r.metrics.IncrementCounter(fmt.Sprintf("repository.%s.errors", r.table), map[string]string{"operation": op})
	return fmt.Errorf("%s %s: %w", op, r.table, err)
}
