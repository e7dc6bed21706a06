package cache

import (
	"context"
	"fmt"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
)

// Create connects to Redis when cfg.Adapters.Lock is "redis". It returns a
// nil *Redis otherwise; callers treat that as "no suppression, no leases".
func Create(ctx context.Context, cfg *config.Config, obs ports.Observability) (*Redis, error) {
	switch cfg.Adapters.Lock {
	case "redis":
		return NewRedis(ctx, &cfg.Redis, obs)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported lock adapter: %s", cfg.Adapters.Lock)
	}
}
