package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mavencrawler/shared/application/ports"
)

const (
	metadataSuffix = ".metadata.json"
	tempPrefix     = ".tmp-"
)

// Storage keeps objects as plain files under basePath. Writes go to a temp
// file in the target directory and are renamed into place, so a reader
// never sees a partial artifact.
type Storage struct {
	basePath string
	logger   ports.Logger
	metrics  ports.Metrics
}

func NewStorage(basePath string, logger ports.Logger, metrics ports.Metrics) (*Storage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error("Failed to create base path", "path", basePath, "error", err)
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	logger.Info("Filesystem storage initialized", "base_path", abs)

	return &Storage{
		basePath: abs,
		logger:   logger,
		metrics:  metrics.WithTags(map[string]string{"storage": "filesystem"}),
	}, nil
}

func (s *Storage) Put(ctx context.Context, key string, reader io.Reader, metadata ports.ObjectMetadata) (int64, error) {
	startTime := time.Now()

	objectPath, err := s.objectPath(key)
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "invalid_key"})
		return 0, err
	}

	dir := filepath.Dir(objectPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Error("Failed to create directory", "path", dir, "error", err)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "mkdir"})
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "create"})
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	bytesWritten, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: reader})
	if err != nil {
		s.logger.Error("Failed to write data", "key", key, "error", err)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "write"})
		return 0, fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "sync"})
		return 0, fmt.Errorf("failed to sync data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "close"})
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, objectPath); err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"error": "rename"})
		return 0, fmt.Errorf("failed to move object into place: %w", err)
	}
	committed = true

	if err := s.saveMetadata(objectPath, metadata); err != nil {
		// The artifact itself is complete; a missing sidecar only loses provenance.
		s.logger.Error("Failed to save metadata", "key", key, "error", err)
	}

	duration := time.Since(startTime)
	s.logger.Info("Object stored",
		"key", key,
		"bytes", bytesWritten,
		"duration_ms", duration.Milliseconds())

	s.metrics.IncrementCounter("storage.put.success", nil)
	s.metrics.RecordHistogram("storage.put.bytes", float64(bytesWritten), nil)
	s.metrics.RecordHistogram("storage.put.duration_ms", float64(duration.Milliseconds()), nil)

	return bytesWritten, nil
}

func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectPath, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(objectPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "not_found"})
			return nil, fmt.Errorf("%s: %w", key, ports.ErrObjectNotFound)
		}
		s.metrics.IncrementCounter("storage.get.errors", map[string]string{"error": "open"})
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	s.metrics.IncrementCounter("storage.get.success", nil)
	return file, nil
}

// Metadata reads the sidecar written by Put. Objects stored without
// metadata yield a zero value.
func (s *Storage) Metadata(key string) (ports.ObjectMetadata, error) {
	objectPath, err := s.objectPath(key)
	if err != nil {
		return ports.ObjectMetadata{}, err
	}

	data, err := os.ReadFile(objectPath + metadataSuffix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ports.ObjectMetadata{}, nil
		}
		return ports.ObjectMetadata{}, err
	}

	var metadata ports.ObjectMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return ports.ObjectMetadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return metadata, nil
}

func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	objectPath, err := s.objectPath(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(objectPath)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	s.logger.Error("Failed to check object existence", "key", key, "error", err)
	return false, fmt.Errorf("failed to check object existence: %w", err)
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	objectPath, err := s.objectPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(objectPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.metrics.IncrementCounter("storage.delete.errors", nil)
		return fmt.Errorf("failed to delete object: %w", err)
	}
	os.Remove(objectPath + metadataSuffix)

	s.logger.Info("Object deleted", "key", key)
	s.metrics.IncrementCounter("storage.delete.success", nil)
	return nil
}

// List walks the tree and returns every stored object whose key starts with
// prefix, skipping metadata sidecars and in-progress temp files.
func (s *Storage) List(ctx context.Context, prefix string) ([]ports.ObjectInfo, error) {
	var objects []ports.ObjectInfo

	err := filepath.WalkDir(s.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if strings.HasSuffix(name, metadataSuffix) || strings.HasPrefix(name, tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ports.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to list objects", "prefix", prefix, "error", err)
		s.metrics.IncrementCounter("storage.list.errors", nil)
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	s.metrics.RecordHistogram("storage.list.count", float64(len(objects)), nil)
	return objects, nil
}

// URI returns the absolute path of key.
func (s *Storage) URI(key string) string {
	p, err := s.objectPath(key)
	if err != nil {
		return ""
	}
	return p
}

// objectPath maps key below basePath and rejects keys that would escape it.
func (s *Storage) objectPath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.basePath, cleaned), nil
}

func (s *Storage) saveMetadata(objectPath string, metadata ports.ObjectMetadata) error {
	if metadata.ContentType == "" && metadata.SourceURL == "" && len(metadata.UserMetadata) == 0 {
		return nil
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(objectPath+metadataSuffix, data, 0o644)
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
