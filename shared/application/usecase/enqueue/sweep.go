// Package enqueue publishes a download job for every known version that the
// completion ledger does not list yet.
package enqueue

import (
	"context"
	"fmt"
	"time"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
)

// MessageType is set as the "type" header of published jobs.
const MessageType = "download"

// SweepResult counts what one pass did. Versions is the sum of the four
// outcome counters.
type SweepResult struct {
	Records  int
	Versions int
	Enqueued int
	Skipped  int // already downloaded
	InFlight int // suppressed by an in-flight marker
	Failed   int
}

type Sweeper struct {
	metadata    ports.MetadataRepository
	completions ports.CompletionRepository
	queue       ports.Queue
	inFlight    ports.InFlightTracker
	queueName   string
	pageSize    int
	logger      ports.Logger
	metrics     ports.Metrics
}

// NewSweeper builds the enqueuer. inFlight may be nil, in which case every
// missing version is published on every pass.
func NewSweeper(
	metadata ports.MetadataRepository,
	completions ports.CompletionRepository,
	queue ports.Queue,
	inFlight ports.InFlightTracker,
	queueName string,
	pageSize int,
	obs ports.Observability,
) (*Sweeper, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.enqueue")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	if pageSize < 1 {
		pageSize = 500
	}

	return &Sweeper{
		metadata:    metadata,
		completions: completions,
		queue:       queue,
		inFlight:    inFlight,
		queueName:   queueName,
		pageSize:    pageSize,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Sweep walks the metadata store once. A failure on one record or one
// publish is counted and logged; only a failing page read aborts the pass.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	startTime := time.Now()
	var result SweepResult

	var after entity.Coordinate
	for {
		page, err := s.metadata.List(ctx, after, s.pageSize)
		if err != nil {
			s.logger.Error("failed to list metadata", "error", err, "after", after.String())
			return result, fmt.Errorf("failed to list metadata: %w", err)
		}

		for _, md := range page {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			s.sweepRecord(ctx, md, &result)
		}

		if len(page) < s.pageSize {
			break
		}
		after = page[len(page)-1].Coordinate()
	}

	s.logger.Info("sweep finished",
		"records", result.Records,
		"versions", result.Versions,
		"enqueued", result.Enqueued,
		"skipped", result.Skipped,
		"in_flight", result.InFlight,
		"failed", result.Failed,
		"duration", time.Since(startTime).String())
	s.metrics.RecordHistogram("enqueue.sweep.duration_ms", float64(time.Since(startTime).Milliseconds()), nil)
	s.metrics.RecordGauge("enqueue.sweep.enqueued", float64(result.Enqueued), nil)
	s.metrics.RecordGauge("enqueue.sweep.failed", float64(result.Failed), nil)

	return result, nil
}

func (s *Sweeper) sweepRecord(ctx context.Context, md *entity.Metadata, result *SweepResult) {
	result.Records++
	jobs := md.Jobs()
	result.Versions += len(jobs)

	done, err := s.completions.DownloadedVersions(ctx, md.Coordinate(), md.Repository)
	if err != nil {
		s.logger.Error("failed to read completion ledger",
			"coordinate", md.Coordinate().String(),
			"repository", md.Repository,
			"error", err)
		result.Failed += len(jobs)
		s.metrics.IncrementCounter("enqueue.failed", map[string]string{"reason": "ledger"})
		return
	}

	for _, job := range jobs {
		if _, ok := done[job.Version]; ok {
			result.Skipped++
			continue
		}

		switch s.publish(ctx, job) {
		case outcomeEnqueued:
			result.Enqueued++
		case outcomeInFlight:
			result.InFlight++
		default:
			result.Failed++
		}
	}
}

type outcome int

const (
	outcomeEnqueued outcome = iota
	outcomeInFlight
	outcomeFailed
)

func (s *Sweeper) publish(ctx context.Context, job entity.DownloadJob) outcome {
	marked := false
	if s.inFlight != nil {
		fresh, err := s.inFlight.Mark(ctx, job.Key())
		switch {
		case err != nil:
			// Publish without a marker.
			s.logger.Error("failed to set in-flight marker", "job", job.String(), "error", err)
		case !fresh:
			s.metrics.IncrementCounter("enqueue.suppressed", nil)
			return outcomeInFlight
		default:
			marked = true
		}
	}

	err := s.queue.Publish(ctx, &ports.QueueMessage{
		Target:  s.queueName,
		Body:    job,
		Headers: map[string]string{"type": MessageType},
	})
	if err != nil {
		s.logger.Error("failed to publish download job", "job", job.String(), "error", err)
		s.metrics.IncrementCounter("enqueue.failed", map[string]string{"reason": "publish"})
		if marked {
			if err := s.inFlight.Clear(ctx, job.Key()); err != nil {
				s.logger.Error("failed to clear in-flight marker", "job", job.String(), "error", err)
			}
		}
		return outcomeFailed
	}

	s.metrics.IncrementCounter("enqueue.published", nil)
	return outcomeEnqueued
}
