package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT: %s (must be json or text)", c.LogFormat))
	}

	if err := c.Adapters.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	switch c.Adapters.Database {
	case "postgres":
		if err := c.Database.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	case "mongo":
		if err := c.Mongo.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if err := c.Queue.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.Storage.Validate(c.Adapters); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.HTTP.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.Adapters.Lock == "redis" {
		if err := c.Redis.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if c.Enqueuer.Interval <= 0 {
		errors = append(errors, "ENQUEUER_INTERVAL must be positive")
	}
	if c.Enqueuer.PageSize <= 0 {
		errors = append(errors, "ENQUEUER_PAGE_SIZE must be positive")
	}

	if c.Downloader.Timeout <= 0 {
		errors = append(errors, "DOWNLOAD_TIMEOUT must be positive")
	}

	if err := c.Crawler.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate validates adapter configuration
func (a *AdapterConfig) Validate() error {
	validDatabases := map[string]bool{"postgres": true, "mongo": true}
	if !validDatabases[a.Database] {
		return fmt.Errorf("invalid database adapter: %s (must be postgres or mongo)", a.Database)
	}

	validStorage := map[string]bool{"s3": true, "filesystem": true}
	if !validStorage[a.Storage] {
		return fmt.Errorf("invalid storage adapter: %s (must be s3 or filesystem)", a.Storage)
	}

	validLogger := map[string]bool{"stdout": true, "zap": true, "console": true, "noop": true}
	if !validLogger[a.Logger] {
		return fmt.Errorf("invalid logger adapter: %s (must be stdout, zap, console or noop)", a.Logger)
	}

	validMetrics := map[string]bool{"stdout": true, "prometheus": true, "noop": true}
	if !validMetrics[a.Metrics] {
		return fmt.Errorf("invalid metrics adapter: %s (must be stdout, prometheus or noop)", a.Metrics)
	}

	validLock := map[string]bool{"none": true, "redis": true}
	if !validLock[a.Lock] {
		return fmt.Errorf("invalid lock adapter: %s (must be none or redis)", a.Lock)
	}

	return nil
}

// Validate validates Database configuration
func (d *DatabaseConfig) Validate() error {
	var errors []string

	if d.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}

	if d.Port <= 0 || d.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}

	if d.Database == "" {
		errors = append(errors, "DB_NAME is required")
	}

	if d.Username == "" {
		errors = append(errors, "DB_USER is required")
	}

	if d.MaxOpenConns < 0 {
		errors = append(errors, "DB_MAX_OPEN_CONNS cannot be negative")
	}

	if d.MaxIdleConns < 0 {
		errors = append(errors, "DB_MAX_IDLE_CONNS cannot be negative")
	}

	if d.MaxOpenConns > 0 && d.MaxIdleConns > d.MaxOpenConns {
		errors = append(errors, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	if len(errors) > 0 {
		return fmt.Errorf("database configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (m *MongoConfig) Validate() error {
	if m.URI == "" {
		return fmt.Errorf("MONGODB_URI is required for mongo adapter")
	}
	if m.Database == "" {
		return fmt.Errorf("MONGODB_DATABASE is required for mongo adapter")
	}
	return nil
}

func (q *QueueConfig) Validate() error {
	if q.URL == "" {
		return fmt.Errorf("RABBITMQ_URL is required")
	}
	if q.Name == "" {
		return fmt.Errorf("RABBITMQ_QUEUE is required")
	}
	if q.PrefetchCount < 0 {
		return fmt.Errorf("RABBITMQ_PREFETCH_COUNT cannot be negative")
	}
	if q.Timeout <= 0 {
		return fmt.Errorf("RABBITMQ_TIMEOUT must be positive")
	}
	if q.ReconnectAttempts < 0 {
		return fmt.Errorf("RABBITMQ_RECONNECT_ATTEMPTS cannot be negative")
	}
	return nil
}

func (s *StorageConfig) Validate(adapters AdapterConfig) error {
	switch adapters.Storage {
	case "s3":
		if s.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for S3 storage")
		}
		if s.S3.Region == "" {
			return fmt.Errorf("AWS_REGION is required for S3 storage")
		}
	case "filesystem":
		if s.DownloadFolder == "" {
			return fmt.Errorf("DOWNLOAD_FOLDER is required for filesystem storage")
		}
	}
	return nil
}

func (h *HTTPConfig) Validate() error {
	if h.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if h.MaxRetries < 0 {
		return fmt.Errorf("HTTP_MAX_RETRIES cannot be negative")
	}
	return nil
}

func (r *RedisConfig) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("REDIS_URL is required for redis lock adapter")
	}
	if _, err := url.Parse(r.URL); err != nil {
		return fmt.Errorf("REDIS_URL is invalid: %v", err)
	}
	if r.InFlightTTL <= 0 {
		return fmt.Errorf("INFLIGHT_TTL must be positive")
	}
	if r.CrawlLeaseTTL <= 0 {
		return fmt.Errorf("CRAWL_LEASE_TTL must be positive")
	}
	return nil
}

func (c *CrawlerConfig) Validate() error {
	if c.MinRecheck < 0 {
		return fmt.Errorf("CRAWLER_MIN_RECHECK cannot be negative")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("CRAWLER_MAX_DEPTH cannot be negative")
	}
	if c.Delay < 0 {
		return fmt.Errorf("CRAWLER_DELAY cannot be negative")
	}
	return nil
}
