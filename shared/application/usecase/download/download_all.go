package download

import (
	"context"
	"fmt"
	"sync"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/domain/entity"
)

// Executor runs one job; *DownloadArtifact implements it.
type Executor interface {
	Execute(ctx context.Context, job entity.DownloadJob) (*Result, error)
}

// BatchResult summarizes a DownloadAll run.
type BatchResult struct {
	Jobs          int
	Downloaded    int
	AlreadyStored int
	Failed        int
}

// DownloadAll executes a job for every version of every stored metadata
// record, without going through the queue. It is the operator's way to fill
// the download folder in one pass.
type DownloadAll struct {
	metadata    ports.MetadataRepository
	executor    Executor
	pageSize    int
	concurrency int
	logger      ports.Logger
	metrics     ports.Metrics
}

func NewDownloadAll(metadata ports.MetadataRepository, executor Executor, pageSize, concurrency int, obs ports.Observability) (*DownloadAll, error) {
	logger, metrics, err := obs.ComponentsScoped("usecase.download_all")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	if pageSize < 1 {
		pageSize = 500
	}
	if concurrency < 1 {
		concurrency = 1
	}

	return &DownloadAll{
		metadata:    metadata,
		executor:    executor,
		pageSize:    pageSize,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Run stops early only when ctx is cancelled or the metadata store fails;
// individual job failures are counted and logged.
func (d *DownloadAll) Run(ctx context.Context) (BatchResult, error) {
	var (
		mu     sync.Mutex
		result BatchResult
		wg     sync.WaitGroup
	)

	jobs := make(chan entity.DownloadJob)
	for i := 0; i < d.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res, err := d.executor.Execute(ctx, job)

				mu.Lock()
				switch {
				case err != nil:
					result.Failed++
				case res.AlreadyStored:
					result.AlreadyStored++
				default:
					result.Downloaded++
				}
				mu.Unlock()

				if err != nil {
					d.logger.Error("download failed", "job", job.String(), "error", err)
				}
			}
		}()
	}

	listErr := d.produce(ctx, jobs, &mu, &result)
	close(jobs)
	wg.Wait()

	d.logger.Info("batch download finished",
		"jobs", result.Jobs,
		"downloaded", result.Downloaded,
		"already_stored", result.AlreadyStored,
		"failed", result.Failed)
	d.metrics.RecordGauge("download_all.failed", float64(result.Failed), nil)

	return result, listErr
}

func (d *DownloadAll) produce(ctx context.Context, jobs chan<- entity.DownloadJob, mu *sync.Mutex, result *BatchResult) error {
	var after entity.Coordinate
	for {
		page, err := d.metadata.List(ctx, after, d.pageSize)
		if err != nil {
			return fmt.Errorf("failed to list metadata: %w", err)
		}

		for _, md := range page {
			for _, job := range md.Jobs() {
				if err := ctx.Err(); err != nil {
					return err
				}
				select {
				case jobs <- job:
					mu.Lock()
					result.Jobs++
					mu.Unlock()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		if len(page) < d.pageSize {
			return nil
		}
		after = page[len(page)-1].Coordinate()
	}
}
