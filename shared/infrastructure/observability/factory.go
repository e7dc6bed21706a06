package observability

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
	"mavencrawler/shared/infrastructure/observability/adapters/console"
	"mavencrawler/shared/infrastructure/observability/adapters/noop"
	promAdapter "mavencrawler/shared/infrastructure/observability/adapters/prometheus"
	"mavencrawler/shared/infrastructure/observability/adapters/stdout"
	zapAdapter "mavencrawler/shared/infrastructure/observability/adapters/zap"
)

// Registerer is where the prometheus adapter registers its collectors. The
// ops server exposes the matching gatherer on /metrics.
var Registerer prometheus.Registerer = prometheus.DefaultRegisterer

func createObservability(cfg *config.Config) (ports.Logger, ports.Metrics, error) {
	logger, err := createLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := createMetrics(cfg)
	if err != nil {
		return nil, nil, err
	}

	return logger, metrics, nil
}

func createLogger(cfg *config.Config) (ports.Logger, error) {
	switch cfg.Adapters.Logger {
	case "stdout":
		return stdout.NewLogger(cfg.LogFormat == "json"), nil
	case "zap":
		return zapAdapter.NewLogger(zapAdapter.Options{
			Level: cfg.LogLevel,
			JSON:  cfg.LogFormat == "json",
		}), nil
	case "console":
		return console.NewLogger(os.Stderr, cfg.LogLevel), nil
	case "noop":
		return noop.Logger{}, nil
	default:
		return nil, fmt.Errorf("unsupported logger adapter: %s", cfg.Adapters.Logger)
	}
}

func createMetrics(cfg *config.Config) (ports.Metrics, error) {
	switch cfg.Adapters.Metrics {
	case "stdout":
		return stdout.NewMetrics(cfg.LogFormat == "json"), nil
	case "prometheus":
		return promAdapter.NewMetrics(Registerer, "mavencrawler"), nil
	case "noop":
		return noop.Metrics{}, nil
	default:
		return nil, fmt.Errorf("unsupported metrics adapter: %s", cfg.Adapters.Metrics)
	}
}
