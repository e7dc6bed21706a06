package crawl

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
	"mavencrawler/shared/infrastructure/observability/adapters/noop"
	"mavencrawler/shared/mocks"
)

const root = "https://repo.example.org/maven2"

var testObs = &mocks.Observability{Log: noop.Logger{}, Met: noop.Metrics{}}

const catalogXML = `<?xml version="1.0" encoding="UTF-8"?>
<archetype-catalog>
  <archetypes>
    <archetype>
      <groupId>am.ik.archetype</groupId>
      <artifactId>maven-reactjs-blank-archetype</artifactId>
      <version>0.0.3</version>
      <repository>https://other.example.org/releases</repository>
      <description>Blank Project for React.js</description>
    </archetype>
    <archetype>
      <groupId>am.ik.archetype</groupId>
      <artifactId>msgpack-rpc-jersey-blank-archetype</artifactId>
      <version>0.1.1</version>
    </archetype>
  </archetypes>
</archetype-catalog>`

const metadataXML = `<?xml version="1.0" encoding="UTF-8"?>
<metadata>
  <groupId>log4j</groupId>
  <artifactId>log4j</artifactId>
  <versioning>
    <versions>
      <version>1.2.16</version>
      <version>1.2.17</version>
    </versions>
    <lastUpdated>20140318154402</lastUpdated>
  </versioning>
</metadata>`

func body(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

func newCatalogCrawler(t *testing.T, fetcher ports.Fetcher, repos *mocks.Repositories, leaser ports.Leaser) *CatalogCrawler {
	t.Helper()
	c, err := NewCatalogCrawler(fetcher, repos.ArchetypeRepo, repos.StateRepo, leaser, time.Minute, 24*time.Hour, testObs)
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCatalogCrawl(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts entries with the default repository", func(t *testing.T) {
		repos := mocks.NewRepositories()
		fetcher := &mocks.Fetcher{}
		fetcher.On("Fetch", mock.Anything, root+"/archetype-catalog.xml").Return(body(catalogXML), nil)

		repos.StateRepo.On("Touch", mock.Anything, root).Return(&entity.Repository{URL: root}, nil)
		repos.StateRepo.On("MarkChecked", mock.Anything, root, mock.Anything).Return(nil)
		repos.StateRepo.On("MarkUpdated", mock.Anything, root, mock.Anything).Return(nil)

		var stored []*entity.Archetype
		repos.ArchetypeRepo.On("Upsert", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { stored = append(stored, args.Get(1).(*entity.Archetype)) }).
			Return(nil)

		res, err := newCatalogCrawler(t, fetcher, repos, nil).Crawl(ctx, root+"/", false)
		require.NoError(t, err)
		assert.Equal(t, CatalogResult{Root: root, Archetypes: 2, Upserted: 2}, res)

		require.Len(t, stored, 2)
		assert.Equal(t, "https://other.example.org/releases", stored[0].Repository)
		assert.Equal(t, "Blank Project for React.js", stored[0].Description)
		assert.Equal(t, root, stored[1].Repository)
		repos.StateRepo.AssertExpectations(t)
	})

	t.Run("fresh repository is skipped", func(t *testing.T) {
		repos := mocks.NewRepositories()
		checked := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
		repos.StateRepo.On("Touch", mock.Anything, root).Return(&entity.Repository{URL: root, LastCheckedAt: &checked}, nil)
		fetcher := &mocks.Fetcher{}

		res, err := newCatalogCrawler(t, fetcher, repos, nil).Crawl(ctx, root, false)
		require.NoError(t, err)
		assert.Equal(t, "fresh", res.SkipReason)
		fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
		repos.StateRepo.AssertNotCalled(t, "MarkChecked", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("force ignores freshness", func(t *testing.T) {
		repos := mocks.NewRepositories()
		fetcher := &mocks.Fetcher{}
		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(body(catalogXML), nil)
		repos.StateRepo.On("MarkChecked", mock.Anything, root, mock.Anything).Return(nil)
		repos.StateRepo.On("MarkUpdated", mock.Anything, root, mock.Anything).Return(nil)
		repos.ArchetypeRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

		res, err := newCatalogCrawler(t, fetcher, repos, nil).Crawl(ctx, root, true)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Upserted)
		repos.StateRepo.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything)
	})

	t.Run("fetch failure still marks the repository checked", func(t *testing.T) {
		repos := mocks.NewRepositories()
		fetcher := &mocks.Fetcher{}
		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
		repos.StateRepo.On("Touch", mock.Anything, root).Return(&entity.Repository{URL: root}, nil)
		repos.StateRepo.On("MarkChecked", mock.Anything, root, mock.Anything).Return(nil)

		_, err := newCatalogCrawler(t, fetcher, repos, nil).Crawl(ctx, root, false)
		require.Error(t, err)
		repos.StateRepo.AssertCalled(t, "MarkChecked", mock.Anything, root, mock.Anything)
	})

	t.Run("one failing upsert does not stop the batch", func(t *testing.T) {
		repos := mocks.NewRepositories()
		fetcher := &mocks.Fetcher{}
		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(body(catalogXML), nil)
		repos.StateRepo.On("MarkChecked", mock.Anything, root, mock.Anything).Return(nil)
		repos.StateRepo.On("MarkUpdated", mock.Anything, root, mock.Anything).Return(nil)
		repos.ArchetypeRepo.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("duplicate")).Once()
		repos.ArchetypeRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

		res, err := newCatalogCrawler(t, fetcher, repos, nil).Crawl(ctx, root, true)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Upserted)
		assert.Equal(t, 1, res.Failed)
	})

	t.Run("held lease skips and free lease is released", func(t *testing.T) {
		repos := mocks.NewRepositories()
		leaser := &mocks.Leaser{}
		leaser.On("Acquire", mock.Anything, "crawl:"+root, time.Minute).Return(false, nil).Once()

		res, err := newCatalogCrawler(t, &mocks.Fetcher{}, repos, leaser).Crawl(ctx, root, true)
		require.NoError(t, err)
		assert.Equal(t, "locked", res.SkipReason)

		fetcher := &mocks.Fetcher{}
		fetcher.On("Fetch", mock.Anything, mock.Anything).Return(body(catalogXML), nil)
		repos.StateRepo.On("MarkChecked", mock.Anything, root, mock.Anything).Return(nil)
		repos.StateRepo.On("MarkUpdated", mock.Anything, root, mock.Anything).Return(nil)
		repos.ArchetypeRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
		leaser.On("Acquire", mock.Anything, "crawl:"+root, time.Minute).Return(true, nil).Once()
		leaser.On("Release", mock.Anything, "crawl:"+root).Return(nil).Once()

		_, err = newCatalogCrawler(t, fetcher, repos, leaser).Crawl(ctx, root, true)
		require.NoError(t, err)
		leaser.AssertExpectations(t)
	})

	t.Run("invalid root", func(t *testing.T) {
		_, err := newCatalogCrawler(t, &mocks.Fetcher{}, mocks.NewRepositories(), nil).Crawl(ctx, "ftp://nope", true)
		assert.Error(t, err)
	})
}

func TestRefreshArchetypes(t *testing.T) {
	ctx := context.Background()

	repos := mocks.NewRepositories()
	repos.ArchetypeRepo.On("ListAll", mock.Anything).Return([]*entity.Archetype{
		{GroupID: "log4j", ArtifactID: "log4j", Version: "1.2.16", Repository: root},
		{GroupID: "log4j", ArtifactID: "log4j", Version: "1.2.17", Repository: root},
		{GroupID: "org.broken", ArtifactID: "gone", Version: "1", Repository: root},
		{GroupID: "org.stale", ArtifactID: "old", Version: "1", Repository: root},
	}, nil)

	fetcher := &mocks.Fetcher{}
	fetcher.On("Fetch", mock.Anything, root+"/log4j/log4j/maven-metadata.xml").Return(body(metadataXML), nil).Once()
	fetcher.On("Fetch", mock.Anything, root+"/org/broken/gone/maven-metadata.xml").Return(nil, errors.New("not found"))
	fetcher.On("Fetch", mock.Anything, root+"/org/stale/old/maven-metadata.xml").
		Return(body(`<metadata><groupId>org.stale</groupId><artifactId>old</artifactId></metadata>`), nil)

	repos.MetadataRepo.On("Merge", mock.Anything, mock.MatchedBy(func(md *entity.Metadata) bool {
		return md.GroupID == "log4j" && md.Repository == root && len(md.Versions) == 2 && md.LastUpdated != nil
	})).Return(true, nil)
	repos.MetadataRepo.On("Merge", mock.Anything, mock.MatchedBy(func(md *entity.Metadata) bool {
		return md.GroupID == "org.stale"
	})).Return(false, nil)

	r, err := NewMetadataRefresher(fetcher, repos.ArchetypeRepo, repos.MetadataRepo, testObs)
	require.NoError(t, err)

	res, err := r.RefreshArchetypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Archetypes: 4, Coordinates: 3, Accepted: 1, Stale: 1, Failed: 1}, res)
	fetcher.AssertExpectations(t)
}

func TestVisitor(t *testing.T) {
	ctx := context.Background()
	seeds := []string{root, "https://repo.example.org"}

	newVisitor := func(repos *mocks.Repositories) *Visitor {
		v, err := NewVisitor(seeds, repos.MetadataRepo, repos.PomRepo, testObs)
		require.NoError(t, err)
		return v
	}

	t.Run("ShouldVisit", func(t *testing.T) {
		v := newVisitor(mocks.NewRepositories())
		folder := root + "/log4j/log4j/"

		assert.True(t, v.ShouldVisit("", root+"/"))
		assert.True(t, v.ShouldVisit(folder, folder+"1.2.17/"))
		assert.True(t, v.ShouldVisit(folder, folder+"maven-metadata.xml"))
		assert.False(t, v.ShouldVisit(folder, root+"/junit/"), "outside the referring folder")
		assert.False(t, v.ShouldVisit(root+"/", root+"/archetype-catalog.xml"))
		for _, ext := range []string{".md5", ".SHA1", ".asc", ".jar", ".aar"} {
			assert.False(t, v.ShouldVisit(folder, folder+"1.2.17/log4j-1.2.17"+ext), ext)
		}
	})

	t.Run("NormalizeURL and SeedFor", func(t *testing.T) {
		v := newVisitor(mocks.NewRepositories())
		assert.Equal(t, root+"/log4j/", v.NormalizeURL(root+"/:log4j/"))
		assert.Equal(t, root, v.SeedFor(root+"/log4j/log4j/maven-metadata.xml"))
		assert.Equal(t, "https://repo.example.org", v.SeedFor("https://repo.example.org/snapshots/x"))
		assert.Equal(t, "", v.SeedFor("https://elsewhere.example.com/x"))
	})

	t.Run("metadata is merged with the seed as repository", func(t *testing.T) {
		repos := mocks.NewRepositories()
		repos.MetadataRepo.On("Merge", mock.Anything, mock.MatchedBy(func(md *entity.Metadata) bool {
			return md.Repository == root && md.Coordinate() == entity.Coordinate{GroupID: "log4j", ArtifactID: "log4j"}
		})).Return(true, nil)

		err := newVisitor(repos).Visit(ctx, root+"/log4j/log4j/maven-metadata.xml", strings.NewReader(metadataXML))
		require.NoError(t, err)
		repos.MetadataRepo.AssertExpectations(t)
	})

	t.Run("pom keeps project url and scm url apart", func(t *testing.T) {
		repos := mocks.NewRepositories()
		var got *entity.VersionPom
		repos.PomRepo.On("Upsert", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).(*entity.VersionPom) }).
			Return(nil)

		pom := `<project>
  <parent><groupId>org.sonatype.oss</groupId><url>http://parent.example.com</url></parent>
  <groupId>com.google.code.gson</groupId>
  <artifactId>gson</artifactId>
  <version>2.3.1</version>
  <name>Gson</name>
  <url>https://github.com/google/gson</url>
  <scm>
    <connection>scm:git:https://github.com/google/gson.git</connection>
    <url>https://github.com/google/gson/</url>
  </scm>
</project>`
		err := newVisitor(repos).Visit(ctx, root+"/com/google/code/gson/gson/2.3.1/gson-2.3.1.pom", strings.NewReader(pom))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "https://github.com/google/gson", got.ProjectURL)
		assert.Equal(t, "https://github.com/google/gson/", got.SCMURL)
		assert.Equal(t, root, got.Repository)
	})

	t.Run("pom inherits groupId and version from its path", func(t *testing.T) {
		repos := mocks.NewRepositories()
		repos.PomRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(p *entity.VersionPom) bool {
			return p.GroupID == "org.example.tools" && p.ArtifactID == "cli" && p.Version == "3.0"
		})).Return(nil)

		pom := `<project><parent><groupId>org.example</groupId><version>3.0</version></parent><artifactId>cli</artifactId></project>`
		err := newVisitor(repos).Visit(ctx, root+"/org/example/tools/cli/3.0/cli-3.0.pom", strings.NewReader(pom))
		require.NoError(t, err)
		repos.PomRepo.AssertExpectations(t)
	})

	t.Run("other pages are ignored", func(t *testing.T) {
		repos := mocks.NewRepositories()
		err := newVisitor(repos).Visit(ctx, root+"/log4j/", strings.NewReader("<html></html>"))
		assert.NoError(t, err)
		assert.False(t, newVisitor(repos).Wants(root+"/log4j/"))
		assert.True(t, newVisitor(repos).Wants(root+"/log4j/log4j/maven-metadata.xml"))
	})

	t.Run("metadata without coordinate is an error", func(t *testing.T) {
		repos := mocks.NewRepositories()
		err := newVisitor(repos).Visit(ctx, root+"/x/maven-metadata.xml", strings.NewReader("<metadata><versioning/></metadata>"))
		assert.Error(t, err)
		repos.MetadataRepo.AssertNotCalled(t, "Merge", mock.Anything, mock.Anything)
	})
}
