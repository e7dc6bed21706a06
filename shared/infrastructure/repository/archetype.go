package repository

import (
	"context"
	"fmt"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
)

type archetypeRepository struct {
	*baseRepository[entity.Archetype]
}

func newArchetypeRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) *archetypeRepository {
	return &archetypeRepository{newBaseRepository[entity.Archetype](db, logger, metrics, "archetypes",
		"group_id", "artifact_id", "version", "repository", "description")}
}

func (r *archetypeRepository) Upsert(ctx context.Context, a *entity.Archetype) error {
	if a.Coordinate().IsZero() || a.Version == "" {
		return fmt.Errorf("upsert archetype: groupId, artifactId and version are required")
	}

	stmt := r.qb.Insert(r.table).
		Columns(r.columns...).
		Values(a.GroupID, a.ArtifactID, a.Version, a.Repository, a.Description).
		Suffix(`ON CONFLICT (group_id, artifact_id, version) DO UPDATE SET
    repository = EXCLUDED.repository,
    description = EXCLUDED.description`)

	_, err := r.exec(ctx, "upsert", stmt)
	return err
}

func (r *archetypeRepository) ListAll(ctx context.Context) ([]*entity.Archetype, error) {
	return r.listAll(ctx, "group_id", "artifact_id", "version")
}
