package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) *time.Time {
	t, err := time.Parse("20060102150405", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestMergeMetadata(t *testing.T) {
	t.Run("no stored record accepts candidate as is", func(t *testing.T) {
		cand := &Metadata{GroupID: "g", ArtifactID: "a", Versions: []string{"2.0", "1.0"}, LastUpdated: ts("20200101000000")}

		merged, ok := MergeMetadata(nil, cand)

		require.True(t, ok)
		assert.Equal(t, []string{"2.0", "1.0"}, merged.Versions)
	})

	t.Run("stored without timestamp accepts candidate without timestamp", func(t *testing.T) {
		stored := &Metadata{GroupID: "g", ArtifactID: "a", Versions: []string{"1.0"}}
		cand := &Metadata{GroupID: "g", ArtifactID: "a", Versions: []string{"1.1"}}

		merged, ok := MergeMetadata(stored, cand)

		require.True(t, ok)
		assert.Equal(t, []string{"1.0", "1.1"}, merged.Versions)
	})

	t.Run("candidate without timestamp cannot clobber timestamped record", func(t *testing.T) {
		stored := &Metadata{GroupID: "g", ArtifactID: "a", Versions: []string{"1.0"}, LastUpdated: ts("20200101000000")}
		cand := &Metadata{GroupID: "g", ArtifactID: "a", Versions: []string{"9.9"}}

		merged, ok := MergeMetadata(stored, cand)

		assert.False(t, ok)
		assert.Nil(t, merged)
		assert.Equal(t, []string{"1.0"}, stored.Versions)
	})

	t.Run("equal timestamp is rejected", func(t *testing.T) {
		stored := &Metadata{Versions: []string{"1.0"}, LastUpdated: ts("20200101000000")}
		cand := &Metadata{Versions: []string{"1.1"}, LastUpdated: ts("20200101000000")}

		_, ok := MergeMetadata(stored, cand)
		assert.False(t, ok)
	})

	t.Run("older timestamp is rejected", func(t *testing.T) {
		stored := &Metadata{Versions: []string{"1.0"}, LastUpdated: ts("20200101000000")}
		cand := &Metadata{Versions: []string{"1.1"}, LastUpdated: ts("20191231235959")}

		_, ok := MergeMetadata(stored, cand)
		assert.False(t, ok)
	})

	t.Run("newer timestamp unions and sorts versions", func(t *testing.T) {
		stored := &Metadata{Versions: []string{"1.2", "1.0"}, LastUpdated: ts("20200101000000"), Repository: "http://old"}
		cand := &Metadata{Versions: []string{"1.10", "1.0", "1.1"}, LastUpdated: ts("20200102000000"), Repository: "http://new"}

		merged, ok := MergeMetadata(stored, cand)

		require.True(t, ok)
		assert.Equal(t, []string{"1.0", "1.1", "1.10", "1.2"}, merged.Versions)
		assert.Equal(t, "http://new", merged.Repository)
		assert.Equal(t, []string{"1.10", "1.0", "1.1"}, cand.Versions, "candidate must not be mutated")
	})

	t.Run("versions never shrink across accepted merges", func(t *testing.T) {
		var stored *Metadata
		candidates := []*Metadata{
			{Versions: []string{"1.0", "1.1"}, LastUpdated: ts("20200101000000")},
			{Versions: []string{"1.2"}, LastUpdated: ts("20200201000000")},
			{Versions: []string{"0.9"}, LastUpdated: ts("20190101000000")},
			{Versions: nil, LastUpdated: ts("20200301000000")},
		}

		for _, c := range candidates {
			if merged, ok := MergeMetadata(stored, c); ok {
				stored = merged
			}
		}

		assert.Equal(t, []string{"1.0", "1.1", "1.2"}, stored.Versions)
		assert.Equal(t, ts("20200301000000"), stored.LastUpdated)
	})
}

func TestMetadata_Jobs(t *testing.T) {
	m := &Metadata{GroupID: "log4j", ArtifactID: "log4j", Repository: "https://repo1.maven.org/maven2", Versions: []string{"1.2.16", "1.2.17"}}

	jobs := m.Jobs()

	require.Len(t, jobs, 2)
	assert.Equal(t, DownloadJob{GroupID: "log4j", ArtifactID: "log4j", Repository: "https://repo1.maven.org/maven2", Version: "1.2.17"}, jobs[1])
}

func TestRepository_IsFresh(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)

	assert.False(t, (*Repository)(nil).IsFresh(now, time.Hour))
	assert.False(t, (&Repository{URL: "u"}).IsFresh(now, time.Hour))
	assert.True(t, (&Repository{URL: "u", LastCheckedAt: &recent}).IsFresh(now, 2*time.Hour))
	assert.False(t, (&Repository{URL: "u", LastCheckedAt: &recent}).IsFresh(now, 30*time.Minute))
}

func TestDownloadJob_Validate(t *testing.T) {
	assert.NoError(t, DownloadJob{GroupID: "g", ArtifactID: "a", Repository: "r", Version: "1"}.Validate())

	err := DownloadJob{GroupID: "g", Version: "1"}.Validate()
	require.ErrorIs(t, err, ErrIncompleteJob)
	assert.Contains(t, err.Error(), "artifactId")
	assert.Contains(t, err.Error(), "repository")
}
