package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
)

type metadataRepository struct {
	base
}

// freshnessFilter matches the stored document only if candidate may replace
// it. When nothing matches, the upsert's insert collides with the unique
// index and the candidate is rejected.
func freshnessFilter(candidate *entity.Metadata) bson.D {
	filter := bson.D{
		{Key: "groupId", Value: candidate.GroupID},
		{Key: "artifactId", Value: candidate.ArtifactID},
	}
	if candidate.LastUpdated == nil {
		return append(filter, bson.E{Key: "lastUpdated", Value: nil})
	}
	return append(filter, bson.E{Key: "$or", Value: bson.A{
		bson.D{{Key: "lastUpdated", Value: nil}},
		bson.D{{Key: "lastUpdated", Value: bson.D{{Key: "$lt", Value: *candidate.LastUpdated}}}},
	}})
}

// mergePipeline writes candidate over the matched document, unioning the
// version lists when the stored one is non-empty.
func mergePipeline(candidate *entity.Metadata) mongo.Pipeline {
	versions := candidate.Versions
	if versions == nil {
		versions = []string{}
	}
	literal := func(v interface{}) bson.D { return bson.D{{Key: "$literal", Value: v}} }
	stored := bson.D{{Key: "$ifNull", Value: bson.A{"$versions", bson.A{}}}}

	var lastUpdated interface{}
	if candidate.LastUpdated != nil {
		lastUpdated = *candidate.LastUpdated
	}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "repository", Value: literal(candidate.Repository)},
			{Key: "latest", Value: literal(candidate.Latest)},
			{Key: "release", Value: literal(candidate.Release)},
			{Key: "lastUpdated", Value: literal(lastUpdated)},
			{Key: "versions", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gt", Value: bson.A{bson.D{{Key: "$size", Value: stored}}, 0}}},
				bson.D{{Key: "$sortArray", Value: bson.D{
					{Key: "input", Value: bson.D{{Key: "$setUnion", Value: bson.A{stored, literal(versions)}}}},
					{Key: "sortBy", Value: 1},
				}}},
				literal(versions),
			}}}},
		}}},
	}
}

func (r *metadataRepository) Merge(ctx context.Context, candidate *entity.Metadata) (bool, error) {
	if candidate == nil || candidate.Coordinate().IsZero() {
		return false, fmt.Errorf("merge metadata: coordinate is required")
	}
	r.observe("merge")

	res, err := r.coll.UpdateOne(ctx, freshnessFilter(candidate), mergePipeline(candidate), options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.observe("rejected")
			return false, nil
		}
		return false, r.fail("merge", err)
	}
	return res.MatchedCount > 0 || res.UpsertedCount > 0, nil
}

func (r *metadataRepository) Get(ctx context.Context, c entity.Coordinate) (*entity.Metadata, error) {
	var md entity.Metadata
	err := r.coll.FindOne(ctx, bson.D{{Key: "groupId", Value: c.GroupID}, {Key: "artifactId", Value: c.ArtifactID}}).Decode(&md)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ports.ErrNotFound
		}
		return nil, r.fail("get", err)
	}
	return &md, nil
}

// afterFilter selects coordinates strictly greater than after in
// (groupId, artifactId) order.
func afterFilter(after entity.Coordinate) bson.D {
	if after == (entity.Coordinate{}) {
		return bson.D{}
	}
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "groupId", Value: bson.D{{Key: "$gt", Value: after.GroupID}}}},
		bson.D{
			{Key: "groupId", Value: after.GroupID},
			{Key: "artifactId", Value: bson.D{{Key: "$gt", Value: after.ArtifactID}}},
		},
	}}}
}

func (r *metadataRepository) List(ctx context.Context, after entity.Coordinate, limit int) ([]*entity.Metadata, error) {
	r.observe("list")

	opts := options.Find().
		SetSort(bson.D{{Key: "groupId", Value: 1}, {Key: "artifactId", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, afterFilter(after), opts)
	if err != nil {
		return nil, r.fail("list", err)
	}

	var out []*entity.Metadata
	if err := cur.All(ctx, &out); err != nil {
		return nil, r.fail("list", err)
	}
	return out, nil
}

func (r *metadataRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, r.fail("count", err)
	}
	return n, nil
}
