package repository

import (
	"context"
	"fmt"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
)

type versionPomRepository struct {
	*baseRepository[entity.VersionPom]
}

func newVersionPomRepository(db ports.Database, logger ports.Logger, metrics ports.Metrics) *versionPomRepository {
	return &versionPomRepository{newBaseRepository[entity.VersionPom](db, logger, metrics, "version_poms",
		"group_id", "artifact_id", "version", "repository", "name", "description", "project_url", "scm_connection", "scm_url")}
}

func (r *versionPomRepository) Upsert(ctx context.Context, p *entity.VersionPom) error {
	if p.GroupID == "" || p.ArtifactID == "" || p.Version == "" {
		return fmt.Errorf("upsert version pom: groupId, artifactId and version are required")
	}

	stmt := r.qb.Insert(r.table).
		Columns(r.columns...).
		Values(p.GroupID, p.ArtifactID, p.Version, p.Repository, p.Name, p.Description, p.ProjectURL, p.SCMConnection, p.SCMURL).
		Suffix(`ON CONFLICT (group_id, artifact_id, version, repository) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    project_url = EXCLUDED.project_url,
    scm_connection = EXCLUDED.scm_connection,
    scm_url = EXCLUDED.scm_url`)

	_, err := r.exec(ctx, "upsert", stmt)
	return err
}
