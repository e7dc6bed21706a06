package runtime

import (
	"fmt"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
)

// Create builds the download queue consumer from configuration. The handler
// is wrapped with recovery, logging and metrics middleware, in that order.
func Create(cfg *config.Config, handler ports.Handler, obs ports.Observability) (ports.Runtime, error) {
	if cfg.Queue.URL == "" {
		return nil, fmt.Errorf("unsupported runtime: RABBITMQ_URL is not set")
	}

	logger, metrics, err := obs.ComponentsScoped("runtime.middleware")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	wrapped := Chain(handler,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		MetricsMiddleware(metrics),
	)
	return NewRabbitMQRuntime(&cfg.Queue, cfg.Downloader.Concurrency, wrapped, obs)
}
