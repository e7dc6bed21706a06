package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/application/usecase/download"
	"mavencrawler/shared/infrastructure/cache"
	"mavencrawler/shared/infrastructure/config"
	httpx "mavencrawler/shared/infrastructure/http"
	"mavencrawler/shared/infrastructure/observability"
	"mavencrawler/shared/infrastructure/repository"
	"mavencrawler/shared/infrastructure/runtime"
	infrastorage "mavencrawler/shared/infrastructure/storage"

	"mavencrawler/workers/downloader/internal/worker"
)

const shutdownTimeout = 30 * time.Second

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
	obs      ports.Observability
	repos    ports.Repositories
	storage  ports.Storage
	fetcher  *httpx.Client
	inFlight *cache.Redis
	logger   ports.Logger
	metrics  ports.Metrics
}

func (d *Dependencies) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if d.inFlight != nil {
		d.inFlight.Close()
	}
	if err := d.repos.Close(ctx); err != nil {
		d.logger.Error("Failed to close repositories", "error", err)
	}
}

// Application holds the complete application stack
type Application struct {
	runtime ports.Runtime
	ops     *runtime.OpsServer
	logger  ports.Logger
	metrics ports.Metrics
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

	logger.Info("Starting downloader",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
		"concurrency", cfg.Downloader.Concurrency)
	metrics.IncrementCounter("application.starts", nil)

	repos, err := repository.Open(ctx, cfg, obs)
	if err != nil {
		logger.Error("Failed to open repositories", "error", err)
		metrics.IncrementCounter("init.failures", map[string]string{"component": "repository"})
		log.Fatalf("Failed to open repositories: %v", err)
	}

	storage, err := infrastorage.CreateStorage(cfg, obs)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		metrics.IncrementCounter("init.failures", map[string]string{"component": "storage"})
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	client, err := httpx.NewClient(cfg.HTTP, obs)
	if err != nil {
		log.Fatalf("Failed to create HTTP client: %v", err)
	}

	inFlight, err := cache.Create(ctx, cfg, obs)
	if err != nil {
		logger.Error("Failed to connect lock backend", "error", err)
		metrics.IncrementCounter("init.failures", map[string]string{"component": "lock"})
		log.Fatalf("Failed to connect lock backend: %v", err)
	}

	logger.Info("Dependencies initialized",
		"database", cfg.Adapters.Database,
		"storage", cfg.Adapters.Storage,
		"lock", cfg.Adapters.Lock)

	return &Dependencies{
		obs:      obs,
		repos:    repos,
		storage:  storage,
		fetcher:  client.WithoutRetries(),
		inFlight: inFlight,
		logger:   logger,
		metrics:  metrics,
	}
}

func buildApplication(cfg *config.Config, deps *Dependencies) *Application {
	var tracker ports.InFlightTracker
	if deps.inFlight != nil {
		tracker = deps.inFlight
	}

	useCase, err := download.NewDownloadArtifact(
		deps.fetcher,
		deps.storage,
		deps.repos.Completions(),
		tracker,
		cfg.Downloader.Timeout,
		deps.obs,
	)
	if err != nil {
		log.Fatalf("Failed to create download use case: %v", err)
	}

	handler, err := worker.NewDownloadHandler(useCase, deps.obs)
	if err != nil {
		log.Fatalf("Failed to create handler: %v", err)
	}

	rt, err := runtime.Create(cfg, handler, deps.obs)
	if err != nil {
		log.Fatalf("Failed to create runtime: %v", err)
	}

	var ops *runtime.OpsServer
	if cfg.Ops.Addr != "" {
		ops, err = runtime.NewOpsServer(cfg.Ops.Addr, deps.repos.Ping, prometheus.DefaultGatherer, deps.obs)
		if err != nil {
			log.Fatalf("Failed to create ops server: %v", err)
		}
	}

	return &Application{
		runtime: rt,
		ops:     ops,
		logger:  deps.logger,
		metrics: deps.metrics,
	}
}

// startApplication blocks until the runtime stops, then drains in-flight
// handlers within shutdownTimeout.
func startApplication(ctx context.Context, app *Application) {
	if app.ops != nil {
		go func() {
			if err := app.ops.Start(); err != nil {
				app.logger.Error("Ops server stopped", "error", err)
			}
		}()
	}

	app.logger.Info("Starting runtime")
	app.metrics.IncrementCounter("runtime.starts", nil)

	runErr := app.runtime.Start(ctx)
	if runErr != nil {
		app.logger.Error("Runtime stopped with error", "error", runErr)
		app.metrics.IncrementCounter("start.failures", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.runtime.Stop(shutdownCtx); err != nil {
		app.logger.Error("Graceful shutdown incomplete", "error", err)
	}
	if app.ops != nil {
		if err := app.ops.Stop(shutdownCtx); err != nil {
			app.logger.Error("Failed to stop ops server", "error", err)
		}
	}
	app.logger.Info("Downloader stopped")

	if runErr != nil {
		log.Fatalf("Runtime failed: %v", runErr)
	}
}
