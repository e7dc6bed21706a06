// Package crawl discovers artifacts: it reads repository archetype catalogs,
// refreshes per-artifact metadata and stores what the directory walker
// finds.
package crawl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/extractor"
	"mavencrawler/shared/domain/maven"
)

// CatalogResult describes one Crawl call.
type CatalogResult struct {
	Root       string
	Archetypes int
	Upserted   int
	Failed     int

	// SkipReason is "fresh" or "locked" when nothing was fetched.
	SkipReason string
}

type CatalogCrawler struct {
	fetcher    ports.Fetcher
	archetypes ports.ArchetypeRepository
	states     ports.RepositoryStateRepository
	leaser     ports.Leaser
	leaseTTL   time.Duration
	minRecheck time.Duration
	logger     ports.Logger
	metrics    ports.Metrics
	now        func() time.Time
}

// NewCatalogCrawler builds the crawler. leaser may be nil; concurrent crawls
// of one root are then not prevented.
func NewCatalogCrawler(
	fetcher ports.Fetcher,
	archetypes ports.ArchetypeRepository,
	states ports.RepositoryStateRepository,
	leaser ports.Leaser,
	leaseTTL time.Duration,
	minRecheck time.Duration,
	obs ports.Observability,
) (*CatalogCrawler, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.catalog")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return &CatalogCrawler{
		fetcher:    fetcher,
		archetypes: archetypes,
		states:     states,
		leaser:     leaser,
		leaseTTL:   leaseTTL,
		minRecheck: minRecheck,
		logger:     logger,
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Crawl reads root's archetype-catalog.xml and upserts every entry. Unless
// force is set, a root checked within the recheck interval is skipped. Once
// the catalog is attempted the root is marked checked whatever the outcome.
func (c *CatalogCrawler) Crawl(ctx context.Context, root string, force bool) (CatalogResult, error) {
	root = strings.TrimRight(root, "/")
	result := CatalogResult{Root: root}
	logger := c.logger.WithFields(map[string]interface{}{"repository": root})

	catalogURL, err := maven.CatalogURL(root)
	if err != nil {
		return result, fmt.Errorf("invalid repository root: %w", err)
	}

	if !force {
		state, err := c.states.Touch(ctx, root)
		if err != nil {
			return result, fmt.Errorf("failed to read repository state: %w", err)
		}
		if state.IsFresh(c.now(), c.minRecheck) {
			logger.Info("Repository checked recently, skipping", "last_checked_at", state.LastCheckedAt)
			c.metrics.IncrementCounter("catalog.skipped", map[string]string{"reason": "fresh"})
			result.SkipReason = "fresh"
			return result, nil
		}
	}

	if c.leaser != nil {
		release, ok, err := c.leaser.Acquire(ctx, "crawl:"+root, c.leaseTTL)
		if err != nil {
			return result, fmt.Errorf("failed to acquire crawl lease: %w", err)
		}
		if !ok {
			logger.Info("Another crawl holds the lease, skipping")
			c.metrics.IncrementCounter("catalog.skipped", map[string]string{"reason": "locked"})
			result.SkipReason = "locked"
			return result, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Error("Failed to release crawl lease", "error", err)
			}
		}()
	}

	defer c.markChecked(ctx, root, logger)

	startTime := time.Now()
	body, err := c.fetcher.Fetch(ctx, catalogURL)
	if err != nil {
		logger.Error("Failed to fetch archetype catalog", "url", catalogURL, "error", err)
		c.metrics.IncrementCounter("catalog.failed", map[string]string{"stage": "fetch"})
		return result, fmt.Errorf("failed to fetch %s: %w", catalogURL, err)
	}
	defer body.Close()

	archetypes, err := extractor.ExtractCatalog(ctx, body)
	if err != nil {
		// Entries parsed before the failure are still stored.
		logger.Error("Malformed archetype catalog", "url", catalogURL, "parsed", len(archetypes), "error", err)
		c.metrics.IncrementCounter("catalog.failed", map[string]string{"stage": "parse"})
	}
	result.Archetypes = len(archetypes)

	for i := range archetypes {
		a := &archetypes[i]
		if a.Repository == "" {
			a.Repository = root
		}
		if a.Coordinate().IsZero() || a.Version == "" {
			result.Failed++
			logger.Error("Catalog entry without coordinate", "index", i)
			continue
		}
		if err := c.archetypes.Upsert(ctx, a); err != nil {
			result.Failed++
			logger.Error("Failed to store archetype",
				"coordinate", a.Coordinate().String(),
				"version", a.Version,
				"error", err)
			continue
		}
		result.Upserted++
	}

	if result.Upserted > 0 {
		if err := c.states.MarkUpdated(ctx, root, c.now()); err != nil {
			logger.Error("Failed to mark repository updated", "error", err)
		}
	}

	logger.Info("Archetype catalog crawled",
		"archetypes", result.Archetypes,
		"upserted", result.Upserted,
		"failed", result.Failed,
		"duration", time.Since(startTime).String())
	c.metrics.RecordHistogram("catalog.duration_ms", float64(time.Since(startTime).Milliseconds()), nil)
	c.metrics.RecordGauge("catalog.archetypes", float64(result.Upserted), map[string]string{"repository": root})

	return result, nil
}

func (c *CatalogCrawler) markChecked(ctx context.Context, root string, logger ports.Logger) {
	if err := c.states.MarkChecked(context.WithoutCancel(ctx), root, c.now()); err != nil {
		logger.Error("Failed to mark repository checked", "error", err)
	}
}
