package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
)

const (
	inFlightPrefix = "mavencrawler:inflight:"
	leasePrefix    = "mavencrawler:lease:"
)

// releaseScript deletes a lease only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis implements ports.InFlightTracker and ports.Leaser.
type Redis struct {
	client      redis.UniversalClient
	inFlightTTL time.Duration
	logger      ports.Logger
	metrics     ports.Metrics
}

// NewRedis connects to cfg.URL and pings it.
func NewRedis(ctx context.Context, cfg *config.RedisConfig, obs ports.Observability) (*Redis, error) {
	logger, metrics, err := obs.ComponentsScoped("cache.redis")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		logger.Error("failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connected", "addr", opts.Addr, "inflight_ttl", cfg.InFlightTTL.String())
	return NewFromClient(client, cfg.InFlightTTL, logger, metrics), nil
}

func NewFromClient(client redis.UniversalClient, inFlightTTL time.Duration, logger ports.Logger, metrics ports.Metrics) *Redis {
	return &Redis{
		client:      client,
		inFlightTTL: inFlightTTL,
		logger:      logger,
		metrics:     metrics,
	}
}

// Mark sets the in-flight marker for key if absent.
func (r *Redis) Mark(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, inFlightPrefix+key, time.Now().UTC().Format(time.RFC3339), r.inFlightTTL).Result()
	if err != nil {
		r.metrics.IncrementCounter("cache.inflight.errors", map[string]string{"op": "mark"})
		return false, fmt.Errorf("failed to mark %s in flight: %w", key, err)
	}
	if !ok {
		r.metrics.IncrementCounter("cache.inflight.suppressed", nil)
	}
	return ok, nil
}

func (r *Redis) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, inFlightPrefix+key).Err(); err != nil {
		r.metrics.IncrementCounter("cache.inflight.errors", map[string]string{"op": "clear"})
		return fmt.Errorf("failed to clear in-flight marker %s: %w", key, err)
	}
	return nil
}

// Acquire takes the lease on key for ttl. The returned release is safe to call
// after the lease expired or was taken over; it then does nothing.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	full := leasePrefix + key

	ok, err := r.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		r.metrics.IncrementCounter("cache.lease.errors", nil)
		return nil, false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		r.metrics.IncrementCounter("cache.lease.contended", nil)
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		err := releaseScript.Run(ctx, r.client, []string{full}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to release lease %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
