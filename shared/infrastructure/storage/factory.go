package infrastorage

import (
	"fmt"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
	"mavencrawler/shared/infrastructure/storage/adapters/fs"
	"mavencrawler/shared/infrastructure/storage/adapters/s3"
)

type Factory struct {
	logger  ports.Logger
	metrics ports.Metrics
}

func NewFactory(obs ports.Observability) (*Factory, error) {
	logger, metrics, err := obs.ComponentsScoped("storage")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}
	return &Factory{logger: logger, metrics: metrics}, nil
}

func (f *Factory) Create(cfg *config.Config) (ports.Storage, error) {
	switch cfg.Adapters.Storage {
	case "s3":
		f.logger.Info("Creating S3 storage adapter",
			"bucket", cfg.Storage.S3.Bucket,
			"region", cfg.Storage.S3.Region)
		return s3.New(&cfg.Storage, cfg.HTTP.Timeout, f.logger, f.metrics)

	case "filesystem", "":
		f.logger.Info("Creating filesystem storage adapter",
			"path", cfg.Storage.DownloadFolder)
		return fs.NewStorage(cfg.Storage.DownloadFolder, f.logger, f.metrics)

	default:
		return nil, fmt.Errorf("unsupported storage adapter: %s", cfg.Adapters.Storage)
	}
}

// CreateStorage is a shorthand for NewFactory(obs).Create(cfg).
func CreateStorage(cfg *config.Config, obs ports.Observability) (ports.Storage, error) {
	f, err := NewFactory(obs)
	if err != nil {
		return nil, err
	}
	return f.Create(cfg)
}
