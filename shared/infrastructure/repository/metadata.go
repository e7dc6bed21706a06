package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
)

var metadataColumns = []string{
	"group_id", "artifact_id", "repository", "latest", "release", "versions", "last_updated",
}

type metadataRow struct {
	GroupID     string         `db:"group_id"`
	ArtifactID  string         `db:"artifact_id"`
	Repository  string         `db:"repository"`
	Latest      string         `db:"latest"`
	Release     string         `db:"release"`
	Versions    pq.StringArray `db:"versions"`
	LastUpdated *time.Time     `db:"last_updated"`
}

func (row *metadataRow) toEntity() *entity.Metadata {
	return &entity.Metadata{
		GroupID:     row.GroupID,
		ArtifactID:  row.ArtifactID,
		Repository:  row.Repository,
		Latest:      row.Latest,
		Release:     row.Release,
		Versions:    []string(row.Versions),
		LastUpdated: row.LastUpdated,
	}
}

// mergeSuffix applies entity.MergeMetadata inside the upsert. The WHERE
// clause is the freshness predicate; when it fails no row is touched and the
// candidate counts as rejected. Stored versions are unioned with the
// candidate's and sorted by byte order; an empty stored list takes the
// candidate's list as given.
const mergeSuffix = `ON CONFLICT (group_id, artifact_id) DO UPDATE SET
    repository = EXCLUDED.repository,
    latest = EXCLUDED.latest,
    release = EXCLUDED.release,
    versions = CASE
        WHEN cardinality(m.versions) = 0 THEN EXCLUDED.versions
        ELSE ARRAY(SELECT DISTINCT v COLLATE "C" FROM unnest(m.versions || EXCLUDED.versions) AS u(v) ORDER BY 1)
    END,
    last_updated = EXCLUDED.last_updated
WHERE m.last_updated IS NULL
   OR (EXCLUDED.last_updated IS NOT NULL AND m.last_updated < EXCLUDED.last_updated)`

type metadataRepository struct {
	*baseRepository[metadataRow]
}

func newMetadataRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) *metadataRepository {
	return &metadataRepository{newBaseRepository[metadataRow](db, logger, metrics, "metadata", metadataColumns...)}
}

func (r *metadataRepository) Merge(ctx context.Context, candidate *entity.Metadata) (bool, error) {
	if candidate == nil || candidate.Coordinate().IsZero() {
		return false, fmt.Errorf("merge metadata: coordinate is required")
	}

	versions := candidate.Versions
	if versions == nil {
		versions = []string{}
	}

	stmt := r.qb.Insert("metadata AS m").
		Columns(metadataColumns...).
		Values(
			candidate.GroupID,
			candidate.ArtifactID,
			candidate.Repository,
			candidate.Latest,
			candidate.Release,
			pq.Array(versions),
			candidate.LastUpdated,
		).
		Suffix(mergeSuffix)

	n, err := r.exec(ctx, "merge", stmt)
	if err != nil {
		return false, err
	}

	accepted := n > 0
	if !accepted {
		r.metrics.IncrementCounter("repository.metadata.rejected", nil)
	}
	return accepted, nil
}

func (r *metadataRepository) Get(ctx context.Context, coordinate entity.Coordinate) (*entity.Metadata, error) {
	query, args, err := r.qb.
		Select(metadataColumns...).
		From(r.table).
		Where(squirrel.Eq{"group_id": coordinate.GroupID, "artifact_id": coordinate.ArtifactID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row metadataRow
	if err := r.db.Get(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, r.fail("get", err)
	}
	return row.toEntity(), nil
}

func (r *metadataRepository) List(ctx context.Context, after entity.Coordinate, limit int) ([]*entity.Metadata, error) {
	r.metrics.IncrementCounter("repository.metadata.list", nil)

	b := r.qb.
		Select(metadataColumns...).
		From(r.table).
		OrderBy("group_id", "artifact_id").
		Limit(uint64(limit))
	if after != (entity.Coordinate{}) {
		b = b.Where(squirrel.Expr("(group_id, artifact_id) > (?, ?)", after.GroupID, after.ArtifactID))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []metadataRow
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		return nil, r.fail("list", err)
	}

	out := make([]*entity.Metadata, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

func (r *metadataRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx)
}
