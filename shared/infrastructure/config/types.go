package config

import (
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	LogFormat   string // "json" or "text"
	Version     string

	Adapters AdapterConfig

	Database   DatabaseConfig
	Mongo      MongoConfig
	Queue      QueueConfig
	Storage    StorageConfig
	HTTP       HTTPConfig
	Redis      RedisConfig
	Ops        OpsConfig
	Enqueuer   EnqueuerConfig
	Downloader DownloaderConfig
	Crawler    CrawlerConfig
}

// AdapterConfig specifies which implementations to use
type AdapterConfig struct {
	Database string // "postgres", "mongo"
	Storage  string // "filesystem", "s3"
	Logger   string // "stdout", "zap", "console", "noop"
	Metrics  string // "stdout", "prometheus", "noop"
	Lock     string // "none", "redis"
}

type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type MongoConfig struct {
	URI      string
	Database string
}

// QueueConfig holds the broker connection and the download queue name.
type QueueConfig struct {
	URL           string
	Name          string
	PrefetchCount int
	Timeout       time.Duration // per-message handler deadline

	// ReconnectAttempts bounds consecutive failed reconnects after the broker
	// drops the connection; ReconnectDelay is the first backoff step.
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

type StorageConfig struct {
	// DownloadFolder is the root for the filesystem adapter.
	DownloadFolder string

	S3 S3Config
}

type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // For MinIO or S3-compatible services
}

type HTTPConfig struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

type RedisConfig struct {
	URL string

	// InFlightTTL bounds how long a published job suppresses re-publishing.
	InFlightTTL   time.Duration
	CrawlLeaseTTL time.Duration
}

// OpsConfig configures the health and metrics listener. Empty Addr disables it.
type OpsConfig struct {
	Addr string
}

type EnqueuerConfig struct {
	Interval time.Duration
	PageSize int
}

type DownloaderConfig struct {
	Timeout     time.Duration
	Concurrency int
}

type CrawlerConfig struct {
	SeedsFile  string
	MinRecheck time.Duration
	MaxDepth   int
	Delay      time.Duration
	Interval   time.Duration
}
