package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/application/usecase/enqueue"
	"mavencrawler/shared/domain/entity"
	"mavencrawler/shared/infrastructure/cache"
	"mavencrawler/shared/infrastructure/queue"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Publish a download job for every version missing from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp("Sweep")
		if err != nil {
			return err
		}
		defer a.Close()

		repos, err := a.repositories(ctx)
		if err != nil {
			return err
		}

		q, err := queue.CreateQueue(a.cfg, a.obs)
		if err != nil {
			return fmt.Errorf("connecting to queue: %w", err)
		}
		defer q.Close()

		inFlight, err := cache.Create(ctx, a.cfg, a.obs)
		if err != nil {
			return fmt.Errorf("connecting lock backend: %w", err)
		}
		var tracker ports.InFlightTracker
		if inFlight != nil {
			defer inFlight.Close()
			tracker = inFlight
		}

		sweeper, err := enqueue.NewSweeper(repos.Metadata(), repos.Completions(), q, tracker,
			a.cfg.Queue.Name, a.cfg.Enqueuer.PageSize, a.obs)
		if err != nil {
			return err
		}

		res, err := sweeper.Sweep(ctx)
		if err != nil {
			return err
		}

		return renderCounts(cmd.OutOrStdout(), []countRow{
			{"records", res.Records},
			{"versions", res.Versions},
			{"enqueued", res.Enqueued},
			{"already downloaded", res.Skipped},
			{"in flight", res.InFlight},
			{"failed", res.Failed},
		})
	},
}

var jobCmd = &cobra.Command{
	Use:   "job <groupId> <artifactId> <repository> <version>",
	Short: "Publish one download job",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := parseJob(args)
		if err != nil {
			return err
		}

		a, err := newApp("PublishJob")
		if err != nil {
			return err
		}
		defer a.Close()

		q, err := queue.CreateQueue(a.cfg, a.obs)
		if err != nil {
			return fmt.Errorf("connecting to queue: %w", err)
		}
		defer q.Close()

		id := uuid.New().String()
		err = q.Publish(cmd.Context(), &ports.QueueMessage{
			ID:      id,
			Target:  a.cfg.Queue.Name,
			Body:    job,
			Headers: map[string]string{"type": enqueue.MessageType},
		})
		if err != nil {
			return fmt.Errorf("publishing %s: %w", job, err)
		}

		a.logger.Info("Job published", "job", job.String(), "message_id", id)
		fmt.Fprintf(cmd.OutOrStdout(), "Published %s\n", job)
		return nil
	},
}

func parseJob(args []string) (entity.DownloadJob, error) {
	if len(args) != 4 {
		return entity.DownloadJob{}, fmt.Errorf("expected 4 arguments, got %d", len(args))
	}
	job := entity.DownloadJob{
		GroupID:    args[0],
		ArtifactID: args[1],
		Repository: args[2],
		Version:    args[3],
	}
	if err := job.Validate(); err != nil {
		return entity.DownloadJob{}, err
	}
	return job, nil
}
