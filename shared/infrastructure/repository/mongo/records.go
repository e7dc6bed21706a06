package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mavencrawler/shared/domain/entity"
)

type archetypeRepository struct {
	base
}

func (r *archetypeRepository) Upsert(ctx context.Context, a *entity.Archetype) error {
	if a.Coordinate().IsZero() || a.Version == "" {
		return fmt.Errorf("upsert archetype: groupId, artifactId and version are required")
	}
	r.observe("upsert")

	filter := bson.D{
		{Key: "groupId", Value: a.GroupID},
		{Key: "artifactId", Value: a.ArtifactID},
		{Key: "version", Value: a.Version},
	}
	if _, err := r.coll.ReplaceOne(ctx, filter, a, options.Replace().SetUpsert(true)); err != nil {
		return r.fail("upsert", err)
	}
	return nil
}

func (r *archetypeRepository) ListAll(ctx context.Context) ([]*entity.Archetype, error) {
	r.observe("list")

	opts := options.Find().SetSort(bson.D{{Key: "groupId", Value: 1}, {Key: "artifactId", Value: 1}, {Key: "version", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, r.fail("list", err)
	}

	var out []*entity.Archetype
	if err := cur.All(ctx, &out); err != nil {
		return nil, r.fail("list", err)
	}
	return out, nil
}

type completionRepository struct {
	base
}

func tripleFilter(j entity.DownloadJob) bson.D {
	return bson.D{
		{Key: "groupId", Value: j.GroupID},
		{Key: "artifactId", Value: j.ArtifactID},
		{Key: "repository", Value: j.Repository},
		{Key: "version", Value: j.Version},
	}
}

// Record keeps the first downloadedAt when the triple is recorded again.
func (r *completionRepository) Record(ctx context.Context, d *entity.Downloaded) error {
	if err := d.Triple().Validate(); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	r.observe("record")

	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "storagePath", Value: d.StoragePath}}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "downloadedAt", Value: d.DownloadedAt}}},
	}
	if _, err := r.coll.UpdateOne(ctx, tripleFilter(d.Triple()), update, options.Update().SetUpsert(true)); err != nil {
		return r.fail("record", err)
	}
	return nil
}

func (r *completionRepository) Exists(ctx context.Context, job entity.DownloadJob) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, tripleFilter(job), options.Count().SetLimit(1))
	if err != nil {
		return false, r.fail("exists", err)
	}
	return n > 0, nil
}

func (r *completionRepository) DownloadedVersions(ctx context.Context, c entity.Coordinate, repository string) (map[string]struct{}, error) {
	filter := bson.D{
		{Key: "groupId", Value: c.GroupID},
		{Key: "artifactId", Value: c.ArtifactID},
		{Key: "repository", Value: repository},
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetProjection(bson.D{{Key: "version", Value: 1}}))
	if err != nil {
		return nil, r.fail("versions", err)
	}

	var docs []struct {
		Version string `bson:"version"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, r.fail("versions", err)
	}

	out := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		out[d.Version] = struct{}{}
	}
	return out, nil
}

func (r *completionRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, r.fail("count", err)
	}
	return n, nil
}

type repositoryStateRepository struct {
	base
}

func (r *repositoryStateRepository) Touch(ctx context.Context, url string) (*entity.Repository, error) {
	r.observe("touch")

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "url", Value: url}}}}

	var repo entity.Repository
	if err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "url", Value: url}}, update, opts).Decode(&repo); err != nil {
		return nil, r.fail("touch", err)
	}
	return &repo, nil
}

func (r *repositoryStateRepository) MarkChecked(ctx context.Context, url string, at time.Time) error {
	return r.mark(ctx, "lastCheckedAt", url, at)
}

func (r *repositoryStateRepository) MarkUpdated(ctx context.Context, url string, at time.Time) error {
	return r.mark(ctx, "lastUpdatedAt", url, at)
}

func (r *repositoryStateRepository) mark(ctx context.Context, field, url string, at time.Time) error {
	r.observe("mark")

	update := bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: at.UTC()}}}}
	if _, err := r.coll.UpdateOne(ctx, bson.D{{Key: "url", Value: url}}, update, options.Update().SetUpsert(true)); err != nil {
		return r.fail("mark", err)
	}
	return nil
}

func (r *repositoryStateRepository) List(ctx context.Context) ([]*entity.Repository, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "url", Value: 1}}))
	if err != nil {
		return nil, r.fail("list", err)
	}

	var out []*entity.Repository
	if err := cur.All(ctx, &out); err != nil {
		return nil, r.fail("list", err)
	}
	return out, nil
}

type versionPomRepository struct {
	base
}

func (r *versionPomRepository) Upsert(ctx context.Context, p *entity.VersionPom) error {
	if p.GroupID == "" || p.ArtifactID == "" || p.Version == "" {
		return fmt.Errorf("upsert version pom: groupId, artifactId and version are required")
	}
	r.observe("upsert")

	filter := bson.D{
		{Key: "groupId", Value: p.GroupID},
		{Key: "artifactId", Value: p.ArtifactID},
		{Key: "version", Value: p.Version},
		{Key: "repository", Value: p.Repository},
	}
	if _, err := r.coll.ReplaceOne(ctx, filter, p, options.Replace().SetUpsert(true)); err != nil {
		return r.fail("upsert", err)
	}
	return nil
}
