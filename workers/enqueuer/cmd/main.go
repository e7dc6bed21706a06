package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/application/usecase/enqueue"
	"mavencrawler/shared/infrastructure/cache"
	"mavencrawler/shared/infrastructure/config"
	"mavencrawler/shared/infrastructure/observability"
	"mavencrawler/shared/infrastructure/queue"
	"mavencrawler/shared/infrastructure/repository"
	"mavencrawler/shared/infrastructure/runtime"
	"mavencrawler/shared/infrastructure/scheduler"
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
	obs      ports.Observability
	repos    ports.Repositories
	queue    ports.Queue
	inFlight *cache.Redis
	logger   ports.Logger
	metrics  ports.Metrics
}

func (d *Dependencies) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.queue.Close(); err != nil {
		d.logger.Error("Failed to close queue", "error", err)
	}
	if d.inFlight != nil {
		d.inFlight.Close()
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

	logger.Info("Starting enqueuer",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
		"interval", cfg.Enqueuer.Interval.String())
	metrics.IncrementCounter("application.starts", nil)

	repos, err := repository.Open(ctx, cfg, obs)
	if err != nil {
		metrics.IncrementCounter("init.failures", map[string]string{"component": "repository"})
		log.Fatalf("Failed to open repositories: %v", err)
	}

	q, err := queue.CreateQueue(cfg, obs)
	if err != nil {
		metrics.IncrementCounter("init.failures", map[string]string{"component": "queue"})
		log.Fatalf("Failed to connect to queue: %v", err)
	}

	inFlight, err := cache.Create(ctx, cfg, obs)
	if err != nil {
		metrics.IncrementCounter("init.failures", map[string]string{"component": "lock"})
		log.Fatalf("Failed to connect lock backend: %v", err)
	}

	return &Dependencies{
		obs:      obs,
		repos:    repos,
		queue:    q,
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

	sweeper, err := enqueue.NewSweeper(
		deps.repos.Metadata(),
		deps.repos.Completions(),
		deps.queue,
		tracker,
		cfg.Queue.Name,
		cfg.Enqueuer.PageSize,
		deps.obs,
	)
	if err != nil {
		log.Fatalf("Failed to create sweeper: %v", err)
	}

	sched, err := scheduler.New("enqueue", cfg.Enqueuer.Interval, func(ctx context.Context) error {
		_, err := sweeper.Sweep(ctx)
		return err
	}, deps.obs)
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
	app.logger.Info("Enqueuer stopped")
}
