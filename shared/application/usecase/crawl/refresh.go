package crawl

import (
	"context"
	"fmt"
	"time"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
	"mavencrawler/shared/domain/extractor"
	"mavencrawler/shared/domain/maven"
)

// RefreshResult counts one RefreshArchetypes pass. Coordinates is the
// number of distinct (coordinate, repository) pairs fetched.
type RefreshResult struct {
	Archetypes  int
	Coordinates int
	Accepted    int
	Stale       int
	Failed      int
}

// MetadataRefresher fetches maven-metadata.xml for every stored archetype and
// merges it into the metadata store.
type MetadataRefresher struct {
	fetcher    ports.Fetcher
	archetypes ports.ArchetypeRepository
	metadata   ports.MetadataRepository
	logger     ports.Logger
	metrics    ports.Metrics
}

func NewMetadataRefresher(fetcher ports.Fetcher, archetypes ports.ArchetypeRepository, metadata ports.MetadataRepository, obs ports.Observability) (*MetadataRefresher, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.refresh")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return &MetadataRefresher{
		fetcher:    fetcher,
		archetypes: archetypes,
		metadata:   metadata,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

type refreshTarget struct {
	coordinate entity.Coordinate
	repository string
}

// RefreshArchetypes only fails when the archetype list cannot be read; a
// bad document is logged and counted.
func (r *MetadataRefresher) RefreshArchetypes(ctx context.Context) (RefreshResult, error) {
	var result RefreshResult
	startTime := time.Now()

	archetypes, err := r.archetypes.ListAll(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list archetypes: %w", err)
	}
	result.Archetypes = len(archetypes)

	// A catalog lists one entry per version; metadata is per coordinate.
	seen := make(map[refreshTarget]bool, len(archetypes))
	for _, a := range archetypes {
		target := refreshTarget{coordinate: a.Coordinate(), repository: a.Repository}
		if seen[target] {
			continue
		}
		seen[target] = true
		result.Coordinates++

		if err := ctx.Err(); err != nil {
			return result, err
		}

		accepted, err := r.refresh(ctx, target)
		switch {
		case err != nil:
			result.Failed++
			r.logger.Error("Failed to refresh metadata",
				"coordinate", target.coordinate.String(),
				"repository", target.repository,
				"error", err)
		case accepted:
			result.Accepted++
		default:
			result.Stale++
		}
	}

	r.logger.Info("Archetype metadata refreshed",
		"archetypes", result.Archetypes,
		"coordinates", result.Coordinates,
		"accepted", result.Accepted,
		"stale", result.Stale,
		"failed", result.Failed,
		"duration", time.Since(startTime).String())
	r.metrics.RecordHistogram("refresh.duration_ms", float64(time.Since(startTime).Milliseconds()), nil)
	r.metrics.RecordGauge("refresh.failed", float64(result.Failed), nil)

	return result, nil
}

func (r *MetadataRefresher) refresh(ctx context.Context, target refreshTarget) (bool, error) {
	url, err := maven.MetadataURL(target.repository, target.coordinate.GroupID, target.coordinate.ArtifactID)
	if err != nil {
		return false, err
	}

	body, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return false, err
	}
	defer body.Close()

	md, err := extractor.ExtractMetadata(ctx, body)
	if err != nil {
		r.logger.Error("Malformed maven-metadata.xml", "url", url, "error", err)
	}
	if md.Coordinate().IsZero() {
		return false, fmt.Errorf("metadata at %s has no coordinate", url)
	}
	md.Repository = target.repository

	accepted, err := r.metadata.Merge(ctx, md)
	if err != nil {
		return false, fmt.Errorf("failed to merge metadata: %w", err)
	}
	return accepted, nil
}
