package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/application/usecase/crawl"
	"mavencrawler/shared/infrastructure/cache"
	"mavencrawler/shared/infrastructure/config"
	httpx "mavencrawler/shared/infrastructure/http"
	"mavencrawler/shared/infrastructure/observability"
	"mavencrawler/shared/infrastructure/repository"
	"mavencrawler/shared/infrastructure/runtime"
	"mavencrawler/shared/infrastructure/scheduler"
	"mavencrawler/shared/infrastructure/walker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := loadConfiguration()

	deps := initializeDependencies(ctx, cfg)
	defer deps.close()

	app := buildApplication(cfg, deps)

	startApplication(ctx, app)
}

// Dependencies holds all initialized infrastructure components
type Dependencies struct {
	obs     ports.Observability
	repos   ports.Repositories
	fetcher ports.Fetcher
	lease   *cache.Redis
	seeds   []string
	logger  ports.Logger
	metrics ports.Metrics
}

func (d *Dependencies) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if d.lease != nil {
		d.lease.Close()
	}
	if err := d.repos.Close(ctx); err != nil {
		d.logger.Error("Failed to close repositories", "error", err)
	}
}

// Application holds the complete application stack
type Application struct {
	scheduler *scheduler.Scheduler
	ops       *runtime.OpsServer
	logger    ports.Logger
}

// cycle is one full discovery pass: every catalog, then the metadata of
// every archetype, then the directory walk of every seed.
type cycle struct {
	seeds     []string
	catalogs  *crawl.CatalogCrawler
	refresher *crawl.MetadataRefresher
	walker    *walker.Walker
	logger    ports.Logger
}

func (c *cycle) run(ctx context.Context) error {
	var failed int
	for _, seed := range c.seeds {
		if _, err := c.catalogs.Crawl(ctx, seed, false); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
		}
	}

	if _, err := c.refresher.RefreshArchetypes(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("Archetype metadata refresh failed", "error", err)
		failed++
	}

	stats, err := c.walker.WalkAll(ctx, c.seeds)
	if err != nil {
		return err
	}
	failed += stats.Failed

	if failed > 0 {
		return errors.New("crawl cycle finished with failures")
	}
	return nil
}

func loadConfiguration() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func initializeDependencies(ctx context.Context, cfg *config.Config) *Dependencies {
	obs, err := observability.CreateObservability(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}

	logger, metrics, err := obs.ComponentsScoped("main")
	if err != nil {
		log.Fatalf("Failed to get observability components: %v", err)
	}

	seeds, err := config.LoadSeeds(cfg.Crawler.SeedsFile)
	if err != nil {
		log.Fatalf("Failed to load seeds: %v", err)
	}

	logger.Info("Starting crawler",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
		"seeds", len(seeds),
		"interval", cfg.Crawler.Interval.String())
	metrics.IncrementCounter("application.starts", nil)

	repos, err := repository.Open(ctx, cfg, obs)
	if err != nil {
		metrics.IncrementCounter("init.failures", map[string]string{"component": "repository"})
		log.Fatalf("Failed to open repositories: %v", err)
	}

	client, err := httpx.NewClient(cfg.HTTP, obs)
	if err != nil {
		metrics.IncrementCounter("init.failures", map[string]string{"component": "http"})
		log.Fatalf("Failed to create HTTP client: %v", err)
	}

	lease, err := cache.Create(ctx, cfg, obs)
	if err != nil {
		metrics.IncrementCounter("init.failures", map[string]string{"component": "lock"})
		log.Fatalf("Failed to connect lock backend: %v", err)
	}

	return &Dependencies{
		obs:     obs,
		repos:   repos,
		fetcher: client,
		lease:   lease,
		seeds:   seeds,
		logger:  logger,
		metrics: metrics,
	}
}

func buildApplication(cfg *config.Config, deps *Dependencies) *Application {
	var leaser ports.Leaser
	if deps.lease != nil {
		leaser = deps.lease
	}

	catalogs, err := crawl.NewCatalogCrawler(
		deps.fetcher,
		deps.repos.Archetypes(),
		deps.repos.RepositoryStates(),
		leaser,
		cfg.Redis.CrawlLeaseTTL,
		cfg.Crawler.MinRecheck,
		deps.obs,
	)
	if err != nil {
		log.Fatalf("Failed to create catalog crawler: %v", err)
	}

	refresher, err := crawl.NewMetadataRefresher(deps.fetcher, deps.repos.Archetypes(), deps.repos.Metadata(), deps.obs)
	if err != nil {
		log.Fatalf("Failed to create metadata refresher: %v", err)
	}

	visitor, err := crawl.NewVisitor(deps.seeds, deps.repos.Metadata(), deps.repos.VersionPoms(), deps.obs)
	if err != nil {
		log.Fatalf("Failed to create visitor: %v", err)
	}

	w, err := walker.New(deps.fetcher, visitor, cfg.Crawler.MaxDepth, cfg.Crawler.Delay, deps.obs)
	if err != nil {
		log.Fatalf("Failed to create walker: %v", err)
	}

	c := &cycle{
		seeds:     deps.seeds,
		catalogs:  catalogs,
		refresher: refresher,
		walker:    w,
		logger:    deps.logger,
	}

	sched, err := scheduler.New("crawl", cfg.Crawler.Interval, c.run, deps.obs)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	var ops *runtime.OpsServer
	if cfg.Ops.Addr != "" {
		ops, err = runtime.NewOpsServer(cfg.Ops.Addr, deps.repos.Ping, prometheus.DefaultGatherer, deps.obs)
		if err != nil {
			log.Fatalf("Failed to create ops server: %v", err)
		}
	}

	return &Application{scheduler: sched, ops: ops, logger: deps.logger}
}

func startApplication(ctx context.Context, app *Application) {
	if app.ops != nil {
		go func() {
			if err := app.ops.Start(); err != nil {
				app.logger.Error("Ops server stopped", "error", err)
			}
		}()
	}

	if err := app.scheduler.Run(ctx); err != nil {
		app.logger.Error("Scheduler failed", "error", err)
	}

	if app.ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ops.Stop(shutdownCtx); err != nil {
			app.logger.Error("Failed to stop ops server", "error", err)
		}
	}
	app.logger.Info("Crawler stopped")
}
