package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mavencrawler/shared/infrastructure/config"
	"mavencrawler/shared/infrastructure/observability"
	"mavencrawler/shared/infrastructure/observability/adapters/noop"
)

func newTestClient(t *testing.T, retries int) *Client {
	t.Helper()
	obs := observability.New(&config.Config{}, noop.Logger{}, noop.Metrics{})
	c, err := NewClient(config.HTTPConfig{Timeout: 5 * time.Second, MaxRetries: retries, UserAgent: "test-agent"}, obs)
	require.NoError(t, err)
	c.backoff = time.Millisecond
	return c
}

func TestFetch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/ok.jar":
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			w.Write([]byte("jar"))
		case "/flaky.jar":
			if calls.Load() < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("eventually"))
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	t.Run("ok", func(t *testing.T) {
		c := newTestClient(t, 0)
		rc, err := c.Fetch(context.Background(), srv.URL+"/ok.jar")
		require.NoError(t, err)
		defer rc.Close()
		body, _ := io.ReadAll(rc)
		assert.Equal(t, "jar", string(body))
	})

	t.Run("not found is not retried", func(t *testing.T) {
		calls.Store(0)
		c := newTestClient(t, 3)
		_, err := c.Fetch(context.Background(), srv.URL+"/missing.jar")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("server errors are retried", func(t *testing.T) {
		calls.Store(0)
		c := newTestClient(t, 3)
		rc, err := c.Fetch(context.Background(), srv.URL+"/flaky.jar")
		require.NoError(t, err)
		rc.Close()
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("without retries", func(t *testing.T) {
		calls.Store(0)
		c := newTestClient(t, 3).WithoutRetries()
		_, err := c.Fetch(context.Background(), srv.URL+"/flaky.jar")
		assert.ErrorIs(t, err, ErrNetwork)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("client errors", func(t *testing.T) {
		c := newTestClient(t, 3)
		_, err := c.Fetch(context.Background(), srv.URL+"/forbidden")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
		assert.False(t, IsRetryable(err))
	})
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("non retryable stops immediately", func(t *testing.T) {
		n := 0
		err := Retry(ctx, 3, time.Millisecond, func() error {
			n++
			return ErrNotFound
		})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 1, n)
	})

	t.Run("retryable until success", func(t *testing.T) {
		n := 0
		err := Retry(ctx, 3, time.Millisecond, func() error {
			n++
			if n < 3 {
				return Retryable(ErrNetwork)
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("context cancel", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := Retry(cctx, 3, time.Second, func() error { return Retryable(ErrNetwork) })
		assert.ErrorIs(t, err, context.Canceled)
	})

	assert.Nil(t, Retryable(nil))
}
