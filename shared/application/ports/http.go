package ports

import (
	"context"
	"errors"
	"io"
)

// ErrRemoteNotFound is wrapped by Fetcher implementations for 404 responses
// so callers can tell "missing" apart from transport failures.
var ErrRemoteNotFound = errors.New("not found")

// Fetcher performs GET requests against repositories.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}
