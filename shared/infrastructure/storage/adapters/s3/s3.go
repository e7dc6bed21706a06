package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
)

// api is the subset of *s3.Client used outside uploads.
type api interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	s3.ListObjectsV2APIClient
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Client stores artifacts in a single bucket under an optional key prefix.
// Uploads are streamed through the multipart manager, so artifact size is
// not bounded by memory.
type Client struct {
	api      api
	uploader uploader
	config   *config.S3Config
	logger   ports.Logger
	metrics  ports.Metrics
}

func New(cfg *config.StorageConfig, httpTimeout time.Duration, logger ports.Logger, metrics ports.Metrics) (*Client, error) {
	if cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("invalid S3 configuration: bucket is required")
	}

	awsCfg, err := buildAWSConfig(&cfg.S3, httpTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	c := newClient(s3Client, manager.NewUploader(s3Client), &cfg.S3, logger, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.ensureBucketExists(ctx); err != nil {
		logger.Error("Failed to verify bucket existence", "error", err, "bucket", cfg.S3.Bucket)
		return nil, fmt.Errorf("failed to verify bucket existence: %w", err)
	}

	logger.Info("S3 storage initialized", "bucket", cfg.S3.Bucket, "prefix", cfg.S3.Prefix, "region", cfg.S3.Region)
	return c, nil
}

func newClient(a api, u uploader, cfg *config.S3Config, logger ports.Logger, metrics ports.Metrics) *Client {
	return &Client{
		api:      a,
		uploader: u,
		config:   cfg,
		logger:   logger,
		metrics:  metrics.WithTags(map[string]string{"storage": "s3"}),
	}
}

func (c *Client) Put(ctx context.Context, key string, reader io.Reader, metadata ports.ObjectMetadata) (int64, error) {
	start := time.Now()
	counted := &countingReader{r: reader}

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(c.fullKey(key)),
		Body:   counted,
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if userMeta := objectMetadata(metadata); len(userMeta) > 0 {
		input.Metadata = userMeta
	}

	if _, err := c.uploader.Upload(ctx, input); err != nil {
		c.logger.Error("Failed to upload object", "error", err, "key", key)
		c.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "s3_error"})
		return 0, fmt.Errorf("failed to upload object: %w", err)
	}

	duration := time.Since(start)
	c.logger.Info("Object stored",
		"bucket", c.config.Bucket,
		"key", key,
		"bytes", counted.n,
		"duration_ms", duration.Milliseconds())

	c.metrics.IncrementCounter("storage.put.success", nil)
	c.metrics.RecordHistogram("storage.put.bytes", float64(counted.n), nil)
	c.metrics.RecordHistogram("storage.put.duration_ms", float64(duration.Milliseconds()), nil)

	return counted.n, nil
}

func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(c.fullKey(key)),
	})
	if err != nil {
		if isNotFoundError(err) {
			c.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "not_found"})
			return nil, fmt.Errorf("%s: %w", key, ports.ErrObjectNotFound)
		}
		c.logger.Error("Failed to get object", "error", err, "key", key)
		c.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "s3_error"})
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	c.metrics.IncrementCounter("storage.get.success", nil)
	return result.Body, nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(c.fullKey(key)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		c.logger.Error("Failed to check object existence", "error", err, "key", key)
		c.metrics.IncrementCounter("storage.exists.errors", nil)
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(c.fullKey(key)),
	})
	if err != nil {
		c.logger.Error("Failed to delete object", "error", err, "key", key)
		c.metrics.IncrementCounter("storage.delete.errors", nil)
		return fmt.Errorf("failed to delete object: %w", err)
	}

	c.logger.Info("Object deleted", "key", key)
	c.metrics.IncrementCounter("storage.delete.success", nil)
	return nil
}

// List returns keys relative to the configured prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]ports.ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.config.Bucket),
	}
	if full := c.fullKey(prefix); full != "" {
		input.Prefix = aws.String(full)
	}

	var objects []ports.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.api, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			c.logger.Error("Failed to list objects", "error", err, "prefix", prefix)
			c.metrics.IncrementCounter("storage.list.errors", nil)
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			objects = append(objects, ports.ObjectInfo{
				Key:          c.relativeKey(aws.ToString(obj.Key)),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	c.metrics.RecordHistogram("storage.list.count", float64(len(objects)), nil)
	return objects, nil
}

func (c *Client) URI(key string) string {
	return fmt.Sprintf("s3://%s/%s", c.config.Bucket, c.fullKey(key))
}

func (c *Client) fullKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	prefix := strings.Trim(c.config.Prefix, "/")
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix + "/"
	}
	return prefix + "/" + key
}

func (c *Client) relativeKey(full string) string {
	prefix := strings.Trim(c.config.Prefix, "/")
	if prefix == "" {
		return full
	}
	return strings.TrimPrefix(full, prefix+"/")
}

// ensureBucketExists creates the configured bucket on first use, which is
// what local MinIO setups expect.
func (c *Client) ensureBucketExists(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err == nil {
		return nil
	}

	var nf *s3types.NotFound
	if !errors.As(err, &nf) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	c.logger.Info("Bucket does not exist, attempting to create", "bucket", c.config.Bucket)

	input := &s3.CreateBucketInput{Bucket: aws.String(c.config.Bucket)}
	if c.config.Region != "" && c.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.config.Region),
		}
	}

	if _, err := c.api.CreateBucket(ctx, input); err != nil {
		var bae *s3types.BucketAlreadyExists
		var baoyb *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &bae) || errors.As(err, &baoyb) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func buildAWSConfig(s3Config *config.S3Config, timeout time.Duration) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if s3Config.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(s3Config.Region))
	}

	if s3Config.AccessKeyID != "" && s3Config.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3Config.AccessKeyID,
				s3Config.SecretAccessKey,
				"",
			),
		))
	}

	if timeout > 0 {
		optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{Timeout: timeout}))
	}

	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}

func objectMetadata(metadata ports.ObjectMetadata) map[string]string {
	out := make(map[string]string, len(metadata.UserMetadata)+1)
	for k, v := range metadata.UserMetadata {
		out[k] = v
	}
	if metadata.SourceURL != "" {
		out["source-url"] = metadata.SourceURL
	}
	return out
}

func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
