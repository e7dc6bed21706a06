package repository

import (
	"context"
	"fmt"

	"mavencrawler/shared/application/ports"
)

// Repositories is the PostgreSQL implementation of ports.Repositories.
type Repositories struct {
	db          ports.Database
	metadata    *metadataRepository
	archetypes  *archetypeRepository
	completions *completionRepository
	states      *repositoryStateRepository
	poms        *versionPomRepository
}

func NewRepositories(db ports.Database, obs ports.Observability) (*Repositories, error) {
	logger, metrics, err := obs.ComponentsScoped("repository")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability: %w", err)
	}

	return &Repositories{
		db:          db,
		metadata:    newMetadataRepository(db, logger, metrics),
		archetypes:  newArchetypeRepository(db, logger, metrics),
		completions: newCompletionRepository(db, logger, metrics),
		states:      newRepositoryStateRepository(db, logger, metrics),
		poms:        newVersionPomRepository(db, logger, metrics),
	}, nil
}

func (r *Repositories) Metadata() ports.MetadataRepository                { return r.metadata }
func (r *Repositories) Archetypes() ports.ArchetypeRepository             { return r.archetypes }
func (r *Repositories) Completions() ports.CompletionRepository           { return r.completions }
func (r *Repositories) RepositoryStates() ports.RepositoryStateRepository { return r.states }
func (r *Repositories) VersionPoms() ports.VersionPomRepository           { return r.poms }

func (r *Repositories) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repositories) Close(context.Context) error {
	return r.db.Close()
}
