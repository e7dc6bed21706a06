package config

// parse reads configuration from environment variables
func parse() (*Config, error) {
	queue := DefaultQueueConfig()
	crawler := DefaultCrawlerConfig()

	cfg := &Config{
		// Core
		Environment: getEnv("ENVIRONMENT", "local"),
		ServiceName: getEnv("SERVICE_NAME", "mavencrawler"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		Version:     getEnv("SERVICE_VERSION", "1.0.0"),

		Adapters: AdapterConfig{
			Database: getEnv("ADAPTER_DATABASE", ""),
			Storage:  getEnv("ADAPTER_STORAGE", ""),
			Logger:   getEnv("ADAPTER_LOGGER", ""),
			Metrics:  getEnv("ADAPTER_METRICS", ""),
			Lock:     getEnv("ADAPTER_LOCK", ""),
		},

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getInt("DB_PORT", 5432),
			Database: getEnv("DB_NAME", "maven"),
			Username: getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),

			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 5),
		},

		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "maven"),
		},

		Queue: QueueConfig{
			URL:           getEnv("RABBITMQ_URL", queue.URL),
			Name:          getEnv("RABBITMQ_QUEUE", queue.Name),
			PrefetchCount: getInt("RABBITMQ_PREFETCH_COUNT", queue.PrefetchCount),
			Timeout:       getDuration("RABBITMQ_TIMEOUT", queue.Timeout.String()),

			ReconnectAttempts: getInt("RABBITMQ_RECONNECT_ATTEMPTS", queue.ReconnectAttempts),
			ReconnectDelay:    getDuration("RABBITMQ_RECONNECT_DELAY", queue.ReconnectDelay.String()),
		},

		Storage: StorageConfig{
			DownloadFolder: getEnv("DOWNLOAD_FOLDER", ""),
			S3: S3Config{
				Bucket:          getEnv("S3_BUCKET", ""),
				Prefix:          getEnv("S3_PREFIX", ""),
				Region:          getEnv("AWS_REGION", "us-east-2"),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
			},
		},

		HTTP: HTTPConfig{
			Timeout:    getDuration("HTTP_TIMEOUT", "120s"),
			MaxRetries: getInt("HTTP_MAX_RETRIES", 3),
			UserAgent:  getEnv("HTTP_USER_AGENT", "mavencrawler/1.0"),
		},

		Redis: RedisConfig{
			URL:           getEnv("REDIS_URL", ""),
			InFlightTTL:   getDuration("INFLIGHT_TTL", "6h"),
			CrawlLeaseTTL: getDuration("CRAWL_LEASE_TTL", "30m"),
		},

		Ops: OpsConfig{
			Addr: getEnv("OPS_ADDR", ":9090"),
		},

		Enqueuer: EnqueuerConfig{
			Interval: getDuration("ENQUEUER_INTERVAL", "1h"),
			PageSize: getInt("ENQUEUER_PAGE_SIZE", 500),
		},

		Downloader: DownloaderConfig{
			Timeout:     getDuration("DOWNLOAD_TIMEOUT", "2m"),
			Concurrency: getInt("DOWNLOADER_CONCURRENCY", 4),
		},

		Crawler: CrawlerConfig{
			SeedsFile:  getEnv("CRAWLER_SEEDS_FILE", crawler.SeedsFile),
			MinRecheck: getDuration("CRAWLER_MIN_RECHECK", crawler.MinRecheck.String()),
			MaxDepth:   getInt("CRAWLER_MAX_DEPTH", crawler.MaxDepth),
			Delay:      getDuration("CRAWLER_DELAY", crawler.Delay.String()),
			Interval:   getDuration("CRAWLER_INTERVAL", crawler.Interval.String()),
		},
	}

	return cfg, nil
}
