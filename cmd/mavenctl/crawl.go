package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/application/usecase/crawl"
	"mavencrawler/shared/infrastructure/cache"
	"mavencrawler/shared/infrastructure/walker"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one discovery step",
}

var crawlCatalogCmd = &cobra.Command{
	Use:   "catalog [root...]",
	Short: "Read archetype catalogs of the given roots, or of every seed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		a, err := newApp("CrawlCatalog")
		if err != nil {
			return err
		}
		defer a.Close()

		roots, err := a.seeds(args)
		if err != nil {
			return err
		}
		repos, err := a.repositories(ctx)
		if err != nil {
			return err
		}
		fetcher, err := a.fetcher()
		if err != nil {
			return err
		}

		lease, err := cache.Create(ctx, a.cfg, a.obs)
		if err != nil {
			return fmt.Errorf("connecting lock backend: %w", err)
		}
		var leaser ports.Leaser
		if lease != nil {
			defer lease.Close()
			leaser = lease
		}

		crawler, err := crawl.NewCatalogCrawler(fetcher, repos.Archetypes(), repos.RepositoryStates(),
			leaser, a.cfg.Redis.CrawlLeaseTTL, a.cfg.Crawler.MinRecheck, a.obs)
		if err != nil {
			return err
		}

		results := make([]crawl.CatalogResult, 0, len(roots))
		var failed int
		for _, root := range roots {
			res, err := crawler.Crawl(ctx, root, force)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed++
				a.logger.Error("Catalog crawl failed", "repository", root, "error", err)
			}
			results = append(results, res)
		}

		if err := renderCatalogResults(cmd.OutOrStdout(), results); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d catalogs failed", failed, len(roots))
		}
		return nil
	},
}

var crawlMetadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Refresh maven-metadata.xml of every stored archetype",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp("CrawlMetadata")
		if err != nil {
			return err
		}
		defer a.Close()

		repos, err := a.repositories(ctx)
		if err != nil {
			return err
		}
		fetcher, err := a.fetcher()
		if err != nil {
			return err
		}

		refresher, err := crawl.NewMetadataRefresher(fetcher, repos.Archetypes(), repos.Metadata(), a.obs)
		if err != nil {
			return err
		}
		res, err := refresher.RefreshArchetypes(ctx)
		if err != nil {
			return err
		}

		return renderCounts(cmd.OutOrStdout(), []countRow{
			{"archetypes", res.Archetypes},
			{"coordinates", res.Coordinates},
			{"accepted", res.Accepted},
			{"stale", res.Stale},
			{"failed", res.Failed},
		})
	},
}

var crawlWalkCmd = &cobra.Command{
	Use:   "walk [root...]",
	Short: "Walk the directory listings of the given roots, or of every seed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp("CrawlWalk")
		if err != nil {
			return err
		}
		defer a.Close()

		roots, err := a.seeds(args)
		if err != nil {
			return err
		}
		repos, err := a.repositories(ctx)
		if err != nil {
			return err
		}
		fetcher, err := a.fetcher()
		if err != nil {
			return err
		}

		depth, err := cmd.Flags().GetInt("max-depth")
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("max-depth") {
			depth = a.cfg.Crawler.MaxDepth
		}

		visitor, err := crawl.NewVisitor(roots, repos.Metadata(), repos.VersionPoms(), a.obs)
		if err != nil {
			return err
		}
		w, err := walker.New(fetcher, visitor, depth, a.cfg.Crawler.Delay, a.obs)
		if err != nil {
			return err
		}

		stats, err := w.WalkAll(ctx, roots)
		if err != nil {
			return err
		}

		return renderCounts(cmd.OutOrStdout(), []countRow{
			{"listings", stats.Pages},
			{"files visited", stats.Visited},
			{"failed", stats.Failed},
		})
	},
}

func init() {
	crawlCatalogCmd.Flags().BoolP("force", "f", false, "Crawl even if the repository was checked recently")
	crawlWalkCmd.Flags().Int("max-depth", 0, "Listing depth limit, 0 for unbounded (default from CRAWLER_MAX_DEPTH)")
	crawlCmd.AddCommand(crawlCatalogCmd, crawlMetadataCmd, crawlWalkCmd)
}
