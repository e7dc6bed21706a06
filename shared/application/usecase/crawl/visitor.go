package crawl

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/extractor"
	"mavencrawler/shared/domain/maven"
)

var skippedFiles = regexp.MustCompile(`\.(md5|sha1|asc|jar|aar)$`)

// Visitor decides which pages of a repository listing are crawled and
// stores what the interesting ones contain: maven-metadata.xml documents are
// merged into the metadata store and .pom files become version records.
type Visitor struct {
	seeds    []string
	metadata ports.MetadataRepository
	poms     ports.VersionPomRepository
	logger   ports.Logger
	metrics  ports.Metrics
}

// NewVisitor attributes pages to the first seed in seeds that prefixes
// their URL, so order matters when seeds overlap.
func NewVisitor(seeds []string, metadata ports.MetadataRepository, poms ports.VersionPomRepository, obs ports.Observability) (*Visitor, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.visitor")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return &Visitor{
		seeds:    seeds,
		metadata: metadata,
		poms:     poms,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

func (v *Visitor) NormalizeURL(raw string) string {
	return maven.NormalizeURL(raw)
}

// ShouldVisit only follows links below the referring folder and never
// catalogs, checksums, signatures or payloads. An empty referrer means url
// is a seed.
func (v *Visitor) ShouldVisit(referrer, url string) bool {
	if referrer != "" && !strings.HasPrefix(url, referrer) {
		return false
	}
	lower := strings.ToLower(url)
	if strings.HasSuffix(lower, strings.ToLower(maven.CatalogFile)) {
		return false
	}
	return !skippedFiles.MatchString(lower)
}

// Wants reports whether Visit does anything with the page at url. Pages
// that are neither listings nor wanted need not be fetched.
func (v *Visitor) Wants(url string) bool {
	return strings.HasSuffix(url, maven.MetadataFile) || strings.HasSuffix(url, ".pom")
}

// SeedFor returns the first seed that prefixes pageURL, or "".
func (v *Visitor) SeedFor(pageURL string) string {
	for _, seed := range v.seeds {
		if strings.HasPrefix(pageURL, seed) {
			return seed
		}
	}
	return ""
}

// Visit stores the content of a fetched page. Pages other than metadata
// documents and POMs are ignored.
func (v *Visitor) Visit(ctx context.Context, pageURL string, body io.Reader) error {
	switch {
	case strings.HasSuffix(pageURL, maven.MetadataFile):
		return v.visitMetadata(ctx, pageURL, body)
	case strings.HasSuffix(pageURL, ".pom"):
		return v.visitPOM(ctx, pageURL, body)
	default:
		return nil
	}
}

func (v *Visitor) visitMetadata(ctx context.Context, pageURL string, body io.Reader) error {
	md, err := extractor.ExtractMetadata(ctx, body)
	if err != nil {
		v.logger.Error("Malformed maven-metadata.xml", "url", pageURL, "error", err)
		v.metrics.IncrementCounter("visitor.parse_errors", map[string]string{"kind": "metadata"})
	}
	if md.Coordinate().IsZero() {
		return fmt.Errorf("metadata at %s has no coordinate", pageURL)
	}

	md.Repository = v.SeedFor(pageURL)
	accepted, err := v.metadata.Merge(ctx, md)
	if err != nil {
		v.metrics.IncrementCounter("visitor.failed", map[string]string{"kind": "metadata"})
		return fmt.Errorf("failed to merge metadata %s: %w", md.Coordinate(), err)
	}

	v.logger.Info("Metadata visited",
		"coordinate", md.Coordinate().String(),
		"versions", len(md.Versions),
		"accepted", accepted)
	v.metrics.IncrementCounter("visitor.metadata", map[string]string{"accepted": fmt.Sprint(accepted)})
	return nil
}

func (v *Visitor) visitPOM(ctx context.Context, pageURL string, body io.Reader) error {
	pom, err := extractor.ExtractPOM(ctx, body)
	if err != nil {
		v.logger.Error("Malformed pom", "url", pageURL, "error", err)
		v.metrics.IncrementCounter("visitor.parse_errors", map[string]string{"kind": "pom"})
	}
	pom.Repository = v.SeedFor(pageURL)

	// A groupId or version inherited from <parent> is not in the project
	// element; the directory layout still carries it.
	if pom.GroupID == "" || pom.Version == "" {
		if g, a, ver, ok := coordinateFromPath(pom.Repository, pageURL); ok && a == pom.ArtifactID {
			if pom.GroupID == "" {
				pom.GroupID = g
			}
			if pom.Version == "" {
				pom.Version = ver
			}
		}
	}
	if pom.GroupID == "" || pom.ArtifactID == "" || pom.Version == "" {
		return fmt.Errorf("pom at %s has no complete coordinate", pageURL)
	}

	if err := v.poms.Upsert(ctx, pom); err != nil {
		v.metrics.IncrementCounter("visitor.failed", map[string]string{"kind": "pom"})
		return fmt.Errorf("failed to store pom %s:%s:%s: %w", pom.GroupID, pom.ArtifactID, pom.Version, err)
	}

	v.metrics.IncrementCounter("visitor.poms", nil)
	return nil
}

// coordinateFromPath reads {group/path}/{artifactId}/{version}/{file} below
// seed.
func coordinateFromPath(seed, pageURL string) (groupID, artifactID, version string, ok bool) {
	if seed == "" || !strings.HasPrefix(pageURL, seed) {
		return "", "", "", false
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(pageURL, seed), "/"), "/")
	if len(parts) < 4 {
		return "", "", "", false
	}
	n := len(parts)
	return strings.Join(parts[:n-3], "."), parts[n-3], parts[n-2], true
}
