package ports

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata is stored alongside a payload where the backend supports it.
type ObjectMetadata struct {
	ContentType  string            `json:"content_type,omitempty"`
	SourceURL    string            `json:"source_url,omitempty"`
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
}

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage keeps downloaded artifacts under slash-separated keys such as
// "log4j.log4j/log4j-1.2.17.jar".
type Storage interface {
	// Put streams reader to key. A failed Put leaves no object behind.
	Put(ctx context.Context, key string, reader io.Reader, metadata ObjectMetadata) (int64, error)

	// Get returns ErrObjectNotFound for missing keys.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// URI is the location recorded in the completion ledger for key.
	URI(key string) string
}
