// Package download fetches artifact payloads into storage and records them in
// the completion ledger.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
	"mavencrawler/shared/domain/maven"
)

var contentTypes = map[string]string{
	maven.ExtJAR: "application/java-archive",
	maven.ExtAAR: "application/octet-stream",
}

// Result describes a completed job.
type Result struct {
	Job         entity.DownloadJob `json:"job"`
	Extension   string             `json:"extension"`
	SourceURL   string             `json:"sourceUrl,omitempty"`
	StoragePath string             `json:"storagePath"`
	Bytes       int64              `json:"bytes"`

	// AlreadyStored is set when the payload was found in storage and no
	// fetch happened.
	AlreadyStored bool `json:"alreadyStored"`
}

// DownloadArtifact executes one download job. Running it twice for the same
// job leaves exactly one stored object and one ledger entry.
type DownloadArtifact struct {
	fetcher     ports.Fetcher
	storage     ports.Storage
	completions ports.CompletionRepository
	inFlight    ports.InFlightTracker
	timeout     time.Duration
	logger      ports.Logger
	metrics     ports.Metrics
	now         func() time.Time
}

// NewDownloadArtifact builds the use case. inFlight may be nil. timeout bounds
// the fetch and store of one payload; zero means no bound beyond ctx.
func NewDownloadArtifact(
	fetcher ports.Fetcher,
	storage ports.Storage,
	completions ports.CompletionRepository,
	inFlight ports.InFlightTracker,
	timeout time.Duration,
	obs ports.Observability,
) (*DownloadArtifact, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.download")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	return &DownloadArtifact{
		fetcher:     fetcher,
		storage:     storage,
		completions: completions,
		inFlight:    inFlight,
		timeout:     timeout,
		logger:      logger,
		metrics:     metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (uc *DownloadArtifact) Execute(ctx context.Context, job entity.DownloadJob) (*Result, error) {
	startTime := time.Now()
	defer func() {
		uc.metrics.RecordHistogram("download.duration_ms",
			float64(time.Since(startTime).Milliseconds()), nil)
	}()

	if err := job.Validate(); err != nil {
		uc.metrics.IncrementCounter("download.rejected", map[string]string{"reason": "invalid_job"})
		return nil, NewDomainError(CodeInvalidJob, "incomplete download job", err, false)
	}

	urls := make(map[string]string, 2)
	for _, ext := range []string{maven.ExtJAR, maven.ExtAAR} {
		u, err := maven.ArtifactURL(job.Repository, job.GroupID, job.ArtifactID, job.Version, ext)
		if err != nil {
			uc.metrics.IncrementCounter("download.rejected", map[string]string{"reason": "invalid_url"})
			return nil, NewDomainError(CodeInvalidURL, "repository is not an absolute http(s) url", err, false)
		}
		urls[ext] = u
	}

	logger := uc.logger.WithFields(map[string]interface{}{
		"group_id":    job.GroupID,
		"artifact_id": job.ArtifactID,
		"version":     job.Version,
		"repository":  job.Repository,
	})

	if result, err := uc.existing(ctx, job); err != nil || result != nil {
		if result != nil {
			logger.Info("artifact already stored, skipping fetch", "path", result.StoragePath)
			uc.metrics.IncrementCounter("download.skipped", map[string]string{"reason": "already_stored"})
			uc.clearInFlight(ctx, job, logger)
		}
		return result, err
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	body, ext, err := uc.fetch(ctx, urls, logger)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	key := maven.StorageKey(job.GroupID, job.ArtifactID, job.Version, ext)
	n, err := uc.storage.Put(ctx, key, body, ports.ObjectMetadata{
		ContentType: contentTypes[ext],
		SourceURL:   urls[ext],
	})
	if err != nil {
		logger.Error("failed to store artifact", "error", err, "key", key)
		uc.metrics.IncrementCounter("download.failed", map[string]string{"code": CodeStorageFailed})
		return nil, NewDomainError(CodeStorageFailed, "failed to store artifact", err, true)
	}

	result := &Result{
		Job:         job,
		Extension:   ext,
		SourceURL:   urls[ext],
		StoragePath: uc.storage.URI(key),
		Bytes:       n,
	}
	if err := uc.record(ctx, job, result.StoragePath); err != nil {
		logger.Error("artifact stored but ledger write failed", "error", err, "key", key)
		return nil, err
	}
	uc.clearInFlight(ctx, job, logger)

	logger.Info("artifact downloaded", "extension", ext, "bytes", n, "path", result.StoragePath)
	uc.metrics.IncrementCounter("download.success", map[string]string{"extension": ext})
	uc.metrics.RecordHistogram("download.bytes", float64(n), nil)
	return result, nil
}

// existing looks for an already stored payload under either extension and
// makes sure the ledger knows about it.
func (uc *DownloadArtifact) existing(ctx context.Context, job entity.DownloadJob) (*Result, error) {
	for _, ext := range []string{maven.ExtJAR, maven.ExtAAR} {
		key := maven.StorageKey(job.GroupID, job.ArtifactID, job.Version, ext)
		ok, err := uc.storage.Exists(ctx, key)
		if err != nil {
			uc.metrics.IncrementCounter("download.failed", map[string]string{"code": CodeStorageFailed})
			return nil, NewDomainError(CodeStorageFailed, "failed to check storage", err, true)
		}
		if !ok {
			continue
		}

		path := uc.storage.URI(key)
		if err := uc.record(ctx, job, path); err != nil {
			return nil, err
		}
		return &Result{Job: job, Extension: ext, StoragePath: path, AlreadyStored: true}, nil
	}
	return nil, nil
}

// fetch GETs the jar and falls back to the aar once when the jar is missing.
func (uc *DownloadArtifact) fetch(ctx context.Context, urls map[string]string, logger ports.Logger) (io.ReadCloser, string, error) {
	var lastErr error
	for _, ext := range []string{maven.ExtJAR, maven.ExtAAR} {
		body, err := uc.fetcher.Fetch(ctx, urls[ext])
		if err == nil {
			return body, ext, nil
		}
		if !errors.Is(err, ports.ErrRemoteNotFound) {
			logger.Error("failed to fetch artifact", "error", err, "url", urls[ext])
			uc.metrics.IncrementCounter("download.failed", map[string]string{"code": CodeDownloadFailed})
			return nil, "", NewDomainError(CodeDownloadFailed, "failed to fetch artifact", err, true)
		}
		lastErr = err
	}

	logger.Info("artifact not found as jar or aar")
	uc.metrics.IncrementCounter("download.failed", map[string]string{"code": CodeNotFound})
	return nil, "", NewDomainError(CodeNotFound, "artifact not found as jar or aar", lastErr, true)
}

func (uc *DownloadArtifact) record(ctx context.Context, job entity.DownloadJob, path string) error {
	err := uc.completions.Record(ctx, &entity.Downloaded{
		GroupID:      job.GroupID,
		ArtifactID:   job.ArtifactID,
		Repository:   job.Repository,
		Version:      job.Version,
		DownloadedAt: uc.now(),
		StoragePath:  path,
	})
	if err != nil {
		uc.metrics.IncrementCounter("download.failed", map[string]string{"code": CodeLedgerFailed})
		return NewDomainError(CodeLedgerFailed, "failed to record completion", err, true)
	}
	return nil
}

// clearInFlight drops the marker set by the enqueuer. Failures only delay the
// next publish until the marker expires.
func (uc *DownloadArtifact) clearInFlight(ctx context.Context, job entity.DownloadJob, logger ports.Logger) {
	if uc.inFlight == nil {
		return
	}
	if err := uc.inFlight.Clear(ctx, job.Key()); err != nil {
		logger.Error("failed to clear in-flight marker", "error", err)
	}
}
