package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
)

const defaultUserAgent = "mavencrawler/1.0"

// Client fetches repository resources. It implements ports.Fetcher.
type Client struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	backoff    time.Duration
	logger     ports.Logger
	metrics    ports.Metrics
}

// NewClient builds a client from cfg. Per-request deadlines come from the
// caller's context; cfg.Timeout bounds a whole request including the body.
func NewClient(cfg config.HTTPConfig, obs ports.Observability) (*Client, error) {
	logger, metrics, err := obs.ComponentsScoped("http.client")
	if err != nil {
		return nil, fmt.Errorf("failed to get observability components: %w", err)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		client:     &http.Client{Timeout: cfg.Timeout},
		userAgent:  userAgent,
		maxRetries: cfg.MaxRetries,
		backoff:    500 * time.Millisecond,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// WithoutRetries returns a copy that makes a single attempt per Fetch.
func (c *Client) WithoutRetries() *Client {
	clone := *c
	clone.maxRetries = 0
	return &clone
}

// Fetch GETs url and returns the body for the caller to close. A 404 yields
// an error wrapping ErrNotFound; 5xx and transport failures are retried up
// to maxRetries times and then wrap ErrNetwork.
func (c *Client) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	start := time.Now()

	var body io.ReadCloser
	err := Retry(ctx, c.maxRetries+1, c.backoff, func() error {
		rc, err := c.do(ctx, url)
		if err != nil {
			return err
		}
		body = rc
		return nil
	})

	c.metrics.RecordHistogram("http.fetch.duration_ms", float64(time.Since(start).Milliseconds()), nil)
	if err != nil {
		c.metrics.IncrementCounter("http.fetch.errors", nil)
		return nil, err
	}

	c.metrics.IncrementCounter("http.fetch.success", nil)
	return body, nil
}

func (c *Client) do(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Retryable(fmt.Errorf("%w: GET %s: %v", ErrNetwork, url, err))
	}

	if err := checkStatus(url, resp.StatusCode); err != nil {
		resp.Body.Close()
		c.logger.Info("Fetch returned non-OK status", "url", url, "status", resp.StatusCode)
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(url string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return fmt.Errorf("GET %s: %w", url, ErrNotFound)
	case code == http.StatusTooManyRequests || code >= 500:
		return Retryable(fmt.Errorf("%w: GET %s: status %s", ErrNetwork, url, strconv.Itoa(code)))
	default:
		return fmt.Errorf("GET %s: unexpected status %d", url, code)
	}
}
