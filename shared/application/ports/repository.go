package ports

import (
	"context"
	"errors"
	"time"

	"mavencrawler/shared/domain/entity"
)

var ErrNotFound = errors.New("record not found")

// MetadataRepository is the metadata store keyed by coordinate.
type MetadataRepository interface {
	// Merge applies entity.MergeMetadata atomically against the stored
	// record. accepted is false when the candidate was stale; that is not an
	// error.
	Merge(ctx context.Context, candidate *entity.Metadata) (accepted bool, err error)

	Get(ctx context.Context, coordinate entity.Coordinate) (*entity.Metadata, error)

	// List pages through records ordered by coordinate, starting strictly
	// after the given coordinate. The zero coordinate starts at the
	// beginning.
	List(ctx context.Context, after entity.Coordinate, limit int) ([]*entity.Metadata, error)

	Count(ctx context.Context) (int64, error)
}

type ArchetypeRepository interface {
	// Upsert writes by (groupId, artifactId, version).
	Upsert(ctx context.Context, archetype *entity.Archetype) error
	ListAll(ctx context.Context) ([]*entity.Archetype, error)
}

// CompletionRepository is the completion ledger.
type CompletionRepository interface {
	// Record upserts by (groupId, artifactId, repository, version).
	Record(ctx context.Context, downloaded *entity.Downloaded) error
	Exists(ctx context.Context, job entity.DownloadJob) (bool, error)

	// DownloadedVersions returns the versions of coordinate already fetched
	// from repository.
	DownloadedVersions(ctx context.Context, coordinate entity.Coordinate, repository string) (map[string]struct{}, error)

	Count(ctx context.Context) (int64, error)
}

// RepositoryStateRepository is the freshness tracker.
type RepositoryStateRepository interface {
	// Touch reads the state for url, creating it if needed.
	Touch(ctx context.Context, url string) (*entity.Repository, error)
	MarkChecked(ctx context.Context, url string, at time.Time) error
	MarkUpdated(ctx context.Context, url string, at time.Time) error
	List(ctx context.Context) ([]*entity.Repository, error)
}

type VersionPomRepository interface {
	// Upsert writes by (groupId, artifactId, version, repository).
	Upsert(ctx context.Context, pom *entity.VersionPom) error
}

// Repositories groups the stores so backends can be swapped as a unit.
type Repositories interface {
	Metadata() MetadataRepository
	Archetypes() ArchetypeRepository
	Completions() CompletionRepository
	RepositoryStates() RepositoryStateRepository
	VersionPoms() VersionPomRepository

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
