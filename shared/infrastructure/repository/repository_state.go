package repository

import (
	"context"
	"fmt"
	"time"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
)

type repositoryStateRepository struct {
	*baseRepository[entity.Repository]
}

func newRepositoryStateRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) *repositoryStateRepository {
	return &repositoryStateRepository{newBaseRepository[entity.Repository](db, logger, metrics, "repositories",
		"url", "last_checked_at", "last_updated_at")}
}

// Touch creates the row when absent and returns the stored state. The no-op
// update makes RETURNING produce the row in both cases.
func (r *repositoryStateRepository) Touch(ctx context.Context, url string) (*entity.Repository, error) {
	r.metrics.IncrementCounter("repository.repositories.touch", nil)

	query, args, err := r.qb.Insert(r.table).
		Columns("url").
		Values(url).
		Suffix("ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url RETURNING url, last_checked_at, last_updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var repo entity.Repository
	if err := r.db.Get(ctx, &repo, query, args...); err != nil {
		return nil, r.fail("touch", err)
	}
	return &repo, nil
}

func (r *repositoryStateRepository) MarkChecked(ctx context.Context, url string, at time.Time) error {
	return r.mark(ctx, "last_checked_at", url, at)
}

func (r *repositoryStateRepository) MarkUpdated(ctx context.Context, url string, at time.Time) error {
	return r.mark(ctx, "last_updated_at", url, at)
}

func (r *repositoryStateRepository) mark(ctx context.Context, column, url string, at time.Time) error {
	stmt := r.qb.Insert(r.table).
		Columns("url", column).
		Values(url, at.UTC()).
		Suffix(fmt.Sprintf("ON CONFLICT (url) DO UPDATE SET %[1]s = EXCLUDED.%[1]s", column))

	_, err := r.exec(ctx, "mark", stmt)
	return err
}

func (r *repositoryStateRepository) List(ctx context.Context) ([]*entity.Repository, error) {
	return r.listAll(ctx, "url")
}
