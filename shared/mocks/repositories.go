// Package mocks provides testify doubles for the application ports.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
)

type MetadataRepository struct {
	mock.Mock
}

func (m *MetadataRepository) Merge(ctx context.Context, candidate *entity.Metadata) (bool, error) {
	args := m.Called(ctx, candidate)
	return args.Bool(0), args.Error(1)
}

func (m *MetadataRepository) Get(ctx context.Context, coordinate entity.Coordinate) (*entity.Metadata, error) {
	args := m.Called(ctx, coordinate)
	md, _ := args.Get(0).(*entity.Metadata)
	return md, args.Error(1)
}

func (m *MetadataRepository) List(ctx context.Context, after entity.Coordinate, limit int) ([]*entity.Metadata, error) {
	args := m.Called(ctx, after, limit)
	list, _ := args.Get(0).([]*entity.Metadata)
	return list, args.Error(1)
}

func (m *MetadataRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type ArchetypeRepository struct {
	mock.Mock
}

func (m *ArchetypeRepository) Upsert(ctx context.Context, archetype *entity.Archetype) error {
	return m.Called(ctx, archetype).Error(0)
}

func (m *ArchetypeRepository) ListAll(ctx context.Context) ([]*entity.Archetype, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*entity.Archetype)
	return list, args.Error(1)
}

type CompletionRepository struct {
	mock.Mock
}

func (m *CompletionRepository) Record(ctx context.Context, downloaded *entity.Downloaded) error {
	return m.Called(ctx, downloaded).Error(0)
}

func (m *CompletionRepository) Exists(ctx context.Context, job entity.DownloadJob) (bool, error) {
	args := m.Called(ctx, job)
	return args.Bool(0), args.Error(1)
}

func (m *CompletionRepository) DownloadedVersions(ctx context.Context, coordinate entity.Coordinate, repository string) (map[string]struct{}, error) {
	args := m.Called(ctx, coordinate, repository)
	set, _ := args.Get(0).(map[string]struct{})
	return set, args.Error(1)
}

func (m *CompletionRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type RepositoryStateRepository struct {
	mock.Mock
}

func (m *RepositoryStateRepository) Touch(ctx context.Context, url string) (*entity.Repository, error) {
	args := m.Called(ctx, url)
	repo, _ := args.Get(0).(*entity.Repository)
	return repo, args.Error(1)
}

func (m *RepositoryStateRepository) MarkChecked(ctx context.Context, url string, at time.Time) error {
	return m.Called(ctx, url, at).Error(0)
}

func (m *RepositoryStateRepository) MarkUpdated(ctx context.Context, url string, at time.Time) error {
	return m.Called(ctx, url, at).Error(0)
}

func (m *RepositoryStateRepository) List(ctx context.Context) ([]*entity.Repository, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*entity.Repository)
	return list, args.Error(1)
}

type VersionPomRepository struct {
	mock.Mock
}

func (m *VersionPomRepository) Upsert(ctx context.Context, pom *entity.VersionPom) error {
	return m.Called(ctx, pom).Error(0)
}

// Repositories bundles the individual doubles. Construct it with
// NewRepositories so every store is non-nil.
type Repositories struct {
	mock.Mock
	MetadataRepo   *MetadataRepository
	ArchetypeRepo  *ArchetypeRepository
	CompletionRepo *CompletionRepository
	StateRepo      *RepositoryStateRepository
	PomRepo        *VersionPomRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		MetadataRepo:   &MetadataRepository{},
		ArchetypeRepo:  &ArchetypeRepository{},
		CompletionRepo: &CompletionRepository{},
		StateRepo:      &RepositoryStateRepository{},
		PomRepo:        &VersionPomRepository{},
	}
}

func (m *Repositories) Metadata() ports.MetadataRepository                { return m.MetadataRepo }
func (m *Repositories) Archetypes() ports.ArchetypeRepository             { return m.ArchetypeRepo }
func (m *Repositories) Completions() ports.CompletionRepository           { return m.CompletionRepo }
func (m *Repositories) RepositoryStates() ports.RepositoryStateRepository { return m.StateRepo }
func (m *Repositories) VersionPoms() ports.VersionPomRepository           { return m.PomRepo }

func (m *Repositories) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Repositories) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
