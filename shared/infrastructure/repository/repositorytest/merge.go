// Package repositorytest holds behaviour suites that every
// ports.Repositories backend runs from its own tests against a live store.
package repositorytest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
)

// MergeStep is one maven-metadata.xml observation for a coordinate.
type MergeStep struct {
	Repository  string
	Latest      string
	Versions    []string
	LastUpdated *time.Time
}

// MergeCase is a sequence of observations merged in order.
type MergeCase struct {
	Name  string
	Steps []MergeStep
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// MergeCases covers freshness, stale rejection, unset-timestamp handling and
// version-list growth.
func MergeCases() []MergeCase {
	t0, t1, t2, t3 := at("2019-12-31T23:59:59Z"), at("2020-01-01T00:00:00Z"), at("2020-02-01T00:00:00Z"), at("2020-03-01T00:00:00Z")

	return []MergeCase{
		{"first write keeps candidate order", []MergeStep{
			{Versions: []string{"2.0", "1.0"}, LastUpdated: t1},
		}},
		{"untimestamped record accepts untimestamped candidate", []MergeStep{
			{Versions: []string{"1.0"}},
			{Versions: []string{"1.1"}},
		}},
		{"untimestamped record accepts timestamped candidate", []MergeStep{
			{Versions: []string{"1.0"}},
			{Versions: []string{"1.1"}, LastUpdated: t1},
		}},
		{"untimestamped candidate cannot clobber timestamped record", []MergeStep{
			{Versions: []string{"1.0"}, LastUpdated: t1, Repository: "https://repo.example.org/maven2"},
			{Versions: []string{"9.9"}, Repository: "https://mirror.example.org"},
		}},
		{"equal timestamp is rejected", []MergeStep{
			{Versions: []string{"1.0"}, LastUpdated: t1},
			{Versions: []string{"1.1"}, LastUpdated: t1},
		}},
		{"older timestamp is rejected", []MergeStep{
			{Versions: []string{"1.0"}, LastUpdated: t1},
			{Versions: []string{"1.1"}, LastUpdated: t0},
		}},
		{"newer timestamp unions versions in byte order", []MergeStep{
			{Versions: []string{"1.2", "1.0"}, LastUpdated: t1, Repository: "http://old", Latest: "1.2"},
			{Versions: []string{"1.10", "1.0", "1.1"}, LastUpdated: t2, Repository: "http://new", Latest: "1.10"},
		}},
		{"empty stored list takes candidate order", []MergeStep{
			{LastUpdated: t1},
			{Versions: []string{"2.0", "1.0"}, LastUpdated: t2},
		}},
		{"versions never shrink across accepted merges", []MergeStep{
			{Versions: []string{"1.0", "1.1"}, LastUpdated: t1},
			{Versions: []string{"1.2"}, LastUpdated: t2},
			{Versions: []string{"0.9"}, LastUpdated: t0},
			{LastUpdated: t3},
		}},
	}
}

// RunMetadataMerge replays MergeCases against repo. After every step the
// accepted flag and the stored record must match what entity.MergeMetadata
// yields for the same history. Each case writes its own coordinate, unique
// per run, so the suite can share a database with other data.
func RunMetadataMerge(t *testing.T, repo ports.MetadataRepository) {
	t.Helper()
	run := uuid.NewString()[:8]

	for i, tc := range MergeCases() {
		t.Run(tc.Name, func(t *testing.T) {
			ctx := context.Background()
			coordinate := entity.Coordinate{
				GroupID:    "org.mergesuite." + run,
				ArtifactID: fmt.Sprintf("case-%d", i),
			}

			var want *entity.Metadata
			for n, step := range tc.Steps {
				candidate := &entity.Metadata{
					GroupID:     coordinate.GroupID,
					ArtifactID:  coordinate.ArtifactID,
					Repository:  step.Repository,
					Latest:      step.Latest,
					Versions:    step.Versions,
					LastUpdated: step.LastUpdated,
				}

				merged, wantAccepted := entity.MergeMetadata(want, candidate)
				accepted, err := repo.Merge(ctx, candidate)
				require.NoError(t, err, "step %d", n)
				require.Equal(t, wantAccepted, accepted, "step %d accepted", n)
				if wantAccepted {
					want = merged
				}

				got, err := repo.Get(ctx, coordinate)
				require.NoError(t, err, "step %d", n)
				assertSameRecord(t, want, got, n)
			}
		})
	}
}

func assertSameRecord(t *testing.T, want, got *entity.Metadata, step int) {
	t.Helper()

	assert.Equal(t, want.Repository, got.Repository, "step %d repository", step)
	assert.Equal(t, want.Latest, got.Latest, "step %d latest", step)
	assert.Equal(t, want.Release, got.Release, "step %d release", step)

	if len(want.Versions) == 0 {
		assert.Empty(t, got.Versions, "step %d versions", step)
	} else {
		assert.Equal(t, want.Versions, got.Versions, "step %d versions", step)
	}

	switch {
	case want.LastUpdated == nil:
		assert.Nil(t, got.LastUpdated, "step %d lastUpdated", step)
	case assert.NotNil(t, got.LastUpdated, "step %d lastUpdated", step):
		assert.True(t, want.LastUpdated.Equal(*got.LastUpdated),
			"step %d lastUpdated: want %s, got %s", step, want.LastUpdated, got.LastUpdated)
	}
}
