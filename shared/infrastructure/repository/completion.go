package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
)

type completionRepository struct {
	*baseRepository[entity.Downloaded]
}

func newCompletionRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) *completionRepository {
	return &completionRepository{newBaseRepository[entity.Downloaded](db, logger, metrics, "downloaded",
		"group_id", "artifact_id", "repository", "version", "downloaded_at", "storage_path")}
}

// Record keeps the first downloaded_at when the triple is recorded again.
func (r *completionRepository) Record(ctx context.Context, d *entity.Downloaded) error {
	if err := d.Triple().Validate(); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}

	stmt := r.qb.Insert(r.table).
		Columns(r.columns...).
		Values(d.GroupID, d.ArtifactID, d.Repository, d.Version, d.DownloadedAt, d.StoragePath).
		Suffix("ON CONFLICT (group_id, artifact_id, repository, version) DO UPDATE SET storage_path = EXCLUDED.storage_path")

	_, err := r.exec(ctx, "record", stmt)
	return err
}

func (r *completionRepository) Exists(ctx context.Context, job entity.DownloadJob) (bool, error) {
	query, args, err := r.qb.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(r.table).
		Where(squirrel.Eq{
			"group_id":    job.GroupID,
			"artifact_id": job.ArtifactID,
			"repository":  job.Repository,
			"version":     job.Version,
		}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.db.Get(ctx, &exists, query, args...); err != nil {
		return false, r.fail("exists", err)
	}
	return exists, nil
}

func (r *completionRepository) DownloadedVersions(ctx context.Context, coordinate entity.Coordinate, repository string) (map[string]struct{}, error) {
	query, args, err := r.qb.
		Select("version").
		From(r.table).
		Where(squirrel.Eq{
			"group_id":    coordinate.GroupID,
			"artifact_id": coordinate.ArtifactID,
			"repository":  repository,
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var versions []string
	if err := r.db.Select(ctx, &versions, query, args...); err != nil {
		return nil, r.fail("versions", err)
	}

	out := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		out[v] = struct{}{}
	}
	return out, nil
}

func (r *completionRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx)
}
