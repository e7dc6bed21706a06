// Package mongo implements ports.Repositories on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
)

const (
	metadataCollection   = "metadata"
	archetypeCollection  = "archetypes"
	downloadedCollection = "downloaded"
	versionPomCollection = "version_poms"
	repositoryCollection = "repositories"
)

// collection is the subset of *mongo.Collection the repositories use.
type collection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// Repositories is the MongoDB implementation of ports.Repositories.
type Repositories struct {
	client      *mongo.Client
	metadata    *metadataRepository
	archetypes  *archetypeRepository
	completions *completionRepository
	states      *repositoryStateRepository
	poms        *versionPomRepository
}

// Connect opens a client, pings it and makes sure the unique indexes exist.
func Connect(ctx context.Context, cfg *config.MongoConfig, obs ports.Observability) (*Repositories, error) {
	logger, metrics, err := obs.ComponentsScoped("repository.mongo")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability: %w", err)
	}

	logger.Info("Connecting to MongoDB", "database", cfg.Database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)
	if err := EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	repos := newRepositories(
		db.Collection(metadataCollection),
		db.Collection(archetypeCollection),
		db.Collection(downloadedCollection),
		db.Collection(repositoryCollection),
		db.Collection(versionPomCollection),
		logger, metrics,
	)
	repos.client = client
	return repos, nil
}

func newRepositories(md, arch, dl, repo, pom collection, logger ports.Logger, metrics ports.Metrics) *Repositories {
	mk := func(name string, c collection) base {
		return base{coll: c, name: name, logger: logger, metrics: metrics}
	}
	return &Repositories{
		metadata:    &metadataRepository{mk(metadataCollection, md)},
		archetypes:  &archetypeRepository{mk(archetypeCollection, arch)},
		completions: &completionRepository{mk(downloadedCollection, dl)},
		states:      &repositoryStateRepository{mk(repositoryCollection, repo)},
		poms:        &versionPomRepository{mk(versionPomCollection, pom)},
	}
}

// EnsureIndexes creates the unique keys every collection relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string]bson.D{
		metadataCollection:   {{Key: "groupId", Value: 1}, {Key: "artifactId", Value: 1}},
		archetypeCollection:  {{Key: "groupId", Value: 1}, {Key: "artifactId", Value: 1}, {Key: "version", Value: 1}},
		downloadedCollection: {{Key: "groupId", Value: 1}, {Key: "artifactId", Value: 1}, {Key: "repository", Value: 1}, {Key: "version", Value: 1}},
		versionPomCollection: {{Key: "groupId", Value: 1}, {Key: "artifactId", Value: 1}, {Key: "version", Value: 1}, {Key: "repository", Value: 1}},
		repositoryCollection: {{Key: "url", Value: 1}},
	}

	for name, keys := range indexes {
		_, err := db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create index on %s: %w", name, err)
		}
	}
	return nil
}

func (r *Repositories) Metadata() ports.MetadataRepository                { return r.metadata }
func (r *Repositories) Archetypes() ports.ArchetypeRepository             { return r.archetypes }
func (r *Repositories) Completions() ports.CompletionRepository           { return r.completions }
func (r *Repositories) RepositoryStates() ports.RepositoryStateRepository { return r.states }
func (r *Repositories) VersionPoms() ports.VersionPomRepository           { return r.poms }

func (r *Repositories) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx, nil)
}

func (r *Repositories) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}

type base struct {
	coll    collection
	name    string
	logger  ports.Logger
	metrics ports.Metrics
}

func (b base) observe(op string) {
	b.metrics.IncrementCounter(fmt.Sprintf("repository.%s.%s", b.name, op), nil)
}

func (b base) fail(op string, err error) error {
	b.logger.Error("Repository operation failed", "collection", b.name, "operation", op, "error", err)
	b.metrics.IncrementCounter(fmt.Sprintf("repository.%s.errors", b.name), map[string]string{"operation": op})
	return fmt.Errorf("%s %s: %w", op, b.name, err)
}
